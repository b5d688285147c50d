package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkoPoloResearchLab/collections/internal/blobstore"
	"github.com/MarkoPoloResearchLab/collections/internal/httpapi"
	"github.com/MarkoPoloResearchLab/collections/internal/oplog"
	"github.com/MarkoPoloResearchLab/collections/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/collections/internal/workbook"
	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
	defaultSQLite  = "collections.db"
)

type application struct {
	service *collection.Service
	cleanup func() error
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := openApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.cleanup() }()

	return httpapi.Run(ctx, httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: httpapi.ParseAllowedOrigins(cfg.AllowedOrigins),
		JWTSigningKey:  cfg.JWTSigningKey,
		JWTIssuer:      cfg.JWTIssuer,
		RequestTimeout: cfg.RequestTimeout,
	}, app.service, logger)
}

// openApplication wires the database, blob storage, workbook codec and operation log into a service.
func openApplication(ctx context.Context, cfg *runtimeConfig, logger *zap.Logger) (*application, error) {
	gormDB, closeDB, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}
	if err := gormstore.Migrate(gormDB); err != nil {
		_ = closeDB()
		return nil, err
	}

	blobs, closeBlobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		_ = closeDB()
		return nil, fmt.Errorf("blob store: %w", err)
	}
	cleanup := func() error {
		return errors.Join(closeBlobs(), closeDB())
	}

	codec, err := workbook.NewCodec(workbook.Config{ProtectionPassword: cfg.ProtectionPassword})
	if err != nil {
		_ = cleanup()
		return nil, err
	}

	service, err := collection.NewService(gormstore.New(gormDB), collection.DefaultConfig(),
		collection.WithOperationLogger(oplog.New(logger)),
		collection.WithBlobStore(blobs),
		collection.WithSpreadsheetCodec(codec),
	)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("collection service init: %w", err)
	}
	return &application{service: service, cleanup: cleanup}, nil
}

func openBlobStore(ctx context.Context, cfg *runtimeConfig) (collection.BlobStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.BlobBackend {
	case blobBackendGCS:
		gcsConfig := blobstore.GCSConfig{Bucket: cfg.GCSBucket, Prefix: cfg.GCSPrefix}
		if cfg.GCSCredentialsFile != "" {
			credentials, err := os.ReadFile(cfg.GCSCredentialsFile)
			if err != nil {
				return nil, nil, fmt.Errorf("read gcs credentials: %w", err)
			}
			gcsConfig.CredentialsJSON = string(credentials)
		}
		store, err := blobstore.NewGCSStore(ctx, gcsConfig)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := blobstore.NewLocalStore(cfg.BlobDir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	cfg := &gorm.Config{}
	switch driver {
	case driverPostgres:
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case driverSQLite:
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres, "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = defaultSQLite
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return driverSQLite, sqlitePath, err
	}
	// Anything else is a plain sqlite file path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return driverSQLite, sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(".", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}
