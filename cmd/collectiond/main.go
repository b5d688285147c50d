package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagDatabaseURL        = "database-url"
	flagListenAddr         = "listen-addr"
	flagAllowedOrigins     = "allowed-origins"
	flagJWTSigningKey      = "jwt-signing-key"
	flagJWTIssuer          = "jwt-issuer"
	flagRequestTimeout     = "request-timeout"
	flagBlobBackend        = "blob-backend"
	flagBlobDir            = "blob-dir"
	flagGCSBucket          = "gcs-bucket"
	flagGCSPrefix          = "gcs-prefix"
	flagGCSCredentials     = "gcs-credentials-file"
	flagProtectionPassword = "sheet-password"
	envPrefix              = "COLLECTIONS"
	envFile                = ".env"

	defaultDatabaseURL = "sqlite:///tmp/collections.db"
	defaultBlobBackend = blobBackendLocal
	defaultBlobDir     = "data/attachments"
	blobBackendLocal   = "local"
	blobBackendGCS     = "gcs"
)

type runtimeConfig struct {
	DatabaseURL        string
	ListenAddr         string
	AllowedOrigins     string
	JWTSigningKey      string
	JWTIssuer          string
	RequestTimeout     time.Duration
	BlobBackend        string
	BlobDir            string
	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsFile string
	ProtectionPassword string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "collectiond: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "collectiond",
		Short:         "Collection period tax estimation and reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(flagDatabaseURL, defaultDatabaseURL, "database URL (sqlite:// path or postgres:// DSN)")
	flags.String(flagBlobBackend, defaultBlobBackend, "attachment storage backend (local or gcs)")
	flags.String(flagBlobDir, defaultBlobDir, "attachment directory for the local backend")
	flags.String(flagGCSBucket, "", "bucket for the gcs backend")
	flags.String(flagGCSPrefix, "", "object prefix for the gcs backend")
	flags.String(flagGCSCredentials, "", "service account JSON file for the gcs backend")
	flags.String(flagProtectionPassword, "", "password protecting exported worksheets")

	cmd.AddCommand(newServeCommand(cfg), newReconcileAllCommand(cfg), newExportCommand(cfg))
	return cmd
}

func newServeCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	cmd.Flags().String(flagListenAddr, ":8080", "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagJWTSigningKey, "", "HMAC key for bearer tokens (required)")
	cmd.Flags().String(flagJWTIssuer, "", "expected token issuer")
	cmd.Flags().Duration(flagRequestTimeout, 30*time.Second, "per-request timeout")
	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{
		flagDatabaseURL, flagListenAddr, flagAllowedOrigins, flagJWTSigningKey, flagJWTIssuer, flagRequestTimeout,
		flagBlobBackend, flagBlobDir, flagGCSBucket, flagGCSPrefix, flagGCSCredentials, flagProtectionPassword,
	} {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(flagName, flag); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.AllowedOrigins = v.GetString(flagAllowedOrigins)
	cfg.JWTSigningKey = v.GetString(flagJWTSigningKey)
	cfg.JWTIssuer = strings.TrimSpace(v.GetString(flagJWTIssuer))
	cfg.RequestTimeout = v.GetDuration(flagRequestTimeout)
	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(v.GetString(flagBlobBackend)))
	cfg.BlobDir = strings.TrimSpace(v.GetString(flagBlobDir))
	cfg.GCSBucket = strings.TrimSpace(v.GetString(flagGCSBucket))
	cfg.GCSPrefix = strings.TrimSpace(v.GetString(flagGCSPrefix))
	cfg.GCSCredentialsFile = strings.TrimSpace(v.GetString(flagGCSCredentials))
	cfg.ProtectionPassword = v.GetString(flagProtectionPassword)

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%s is required", flagDatabaseURL)
	}
	switch cfg.BlobBackend {
	case blobBackendLocal:
		if cfg.BlobDir == "" {
			return fmt.Errorf("%s is required for the local blob backend", flagBlobDir)
		}
	case blobBackendGCS:
		if cfg.GCSBucket == "" {
			return fmt.Errorf("%s is required for the gcs blob backend", flagGCSBucket)
		}
	default:
		return fmt.Errorf("unsupported blob backend %q", cfg.BlobBackend)
	}
	return nil
}
