// Package httpapi exposes the collection service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run serves the API until ctx is cancelled.
func Run(ctx context.Context, cfg Config, service *collection.Service, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	router, err := NewRouter(cfg, service, logger)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("collections api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config, service *collection.Service, logger *zap.Logger) (*gin.Engine, error) {
	if service == nil {
		return nil, fmt.Errorf("%w: service is nil", collection.ErrInvalidServiceConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &httpHandler{
		logger:  logger,
		service: service,
		cfg:     cfg,
	}
	return setupRouter(cfg, handler, newTokenValidator(cfg)), nil
}

func setupRouter(cfg Config, handler *httpHandler, validator *tokenValidator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(handler.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Origin", "Accept"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(validator.middleware())
	editor := requireEditor()

	api.GET("/venues", handler.handleListVenues)
	api.POST("/venues", editor, handler.handleCreateVenue)
	api.GET("/venues/:venueID/last-period-end", handler.handleLastPeriodEnd)
	api.POST("/venues/:venueID/labels/resolve", handler.handleResolveLabels)
	api.PUT("/venues/:venueID/mappings", editor, handler.handleApplyOverrides)
	api.POST("/machine-types", editor, handler.handleCreateMachineType)
	api.POST("/machines", editor, handler.handleAddMachine)

	api.GET("/periods", handler.handleListPeriods)
	api.POST("/periods", editor, handler.handleCreatePeriod)
	api.POST("/periods/suggest", handler.handleSuggestPeriod)
	api.GET("/periods/:periodID", handler.handleGetPeriod)
	api.PATCH("/periods/:periodID", editor, handler.handleUpdatePeriod)
	api.DELETE("/periods/:periodID", editor, handler.handleDeletePeriod)
	api.POST("/periods/:periodID/reconcile", editor, handler.handleReconcile)
	api.GET("/periods/:periodID/export", handler.handleExport)
	api.POST("/periods/:periodID/import", editor, handler.handleImport)
	api.POST("/periods/:periodID/import/preview", handler.handlePreviewImport)
	api.GET("/periods/:periodID/imports", handler.handleImportHistory)
	api.GET("/periods/:periodID/attachments", handler.handleListAttachments)
	api.POST("/periods/:periodID/attachments", editor, handler.handleAttachFile)
	api.GET("/periods/:periodID/attachments/:attachmentID", handler.handleOpenAttachment)
	api.DELETE("/periods/:periodID/attachments/:attachmentID", editor, handler.handleDeleteAttachment)
	api.POST("/periods/:periodID/attachments/:attachmentID/import", editor, handler.handleImportAttachment)

	api.PATCH("/details/:detailID", editor, handler.handleUpdateDetail)
	api.DELETE("/details/:detailID", editor, handler.handleDeleteDetail)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()
		logger.Info("http request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
