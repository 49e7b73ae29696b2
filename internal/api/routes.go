// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store          storage.Store
	Content        ContentSource
	Scanner        UnusedScanner
	Deleter        BatchDeleter
	Stats          StatsReporter
	Database       Pinger
	MaxUploadBytes int64
	Version        string
	Log            *zap.SugaredLogger
}

// Handlers holds all handler instances
type Handlers struct {
	Health      HealthHandler
	Content     ContentHandler
	Files       FileHandler
	UnusedFiles UnusedFilesHandler
}

// RouteOptions switches optional routes on or off
type RouteOptions struct {
	AllowFileDeletion bool
	AllowUploads      bool
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handlers{
		Health:      NewHealthHandler(deps.Version, deps.Database),
		Content:     NewContentHandler(deps.Content, log.With("component", "content")),
		Files:       NewFileHandler(deps.Store, deps.MaxUploadBytes, log.With("component", "files")),
		UnusedFiles: NewUnusedFilesHandler(deps.Scanner, deps.Deleter, deps.Stats, log.With("component", "unused-files")),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, opts RouteOptions) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Cached content
	e.GET("/api/content", handlers.Content.HandleGetContent)
	e.GET("/api/content/workshop", handlers.Content.HandleGetWorkshop)
	e.GET("/api/techelons", handlers.Content.HandleGetEvents)
	e.POST("/api/cache/invalidate", handlers.Content.HandleInvalidateCache)

	// Files
	fileGroup := e.Group("/api/files")
	fileGroup.GET("/unused", handlers.UnusedFiles.HandleListUnused)
	fileGroup.GET("/unused/msgpack", handlers.UnusedFiles.HandleListUnusedMsgpack)
	fileGroup.GET("/stats", handlers.UnusedFiles.HandleStats)
	fileGroup.GET("/methodology", handlers.UnusedFiles.HandleMethodology)
	fileGroup.GET("/debug", handlers.UnusedFiles.HandleDebug)
	if opts.AllowFileDeletion {
		fileGroup.DELETE("/unused", handlers.UnusedFiles.HandleDeleteUnused)
	}
	if opts.AllowUploads {
		fileGroup.POST("", handlers.Files.HandleUploadFile)
	}
	fileGroup.GET("/:id", handlers.Files.HandleGetFile)
	fileGroup.GET("/:id/info", handlers.Files.HandleGetFileInfo)
}
