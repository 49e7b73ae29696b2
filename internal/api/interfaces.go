// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/techelons/site/internal/models"
)

// ContentHandler serves the cached site documents
type ContentHandler interface {
	HandleGetContent(c echo.Context) error
	HandleGetEvents(c echo.Context) error
	HandleGetWorkshop(c echo.Context) error
	HandleInvalidateCache(c echo.Context) error
}

// FileHandler handles asset upload and raw retrieval
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleGetFileInfo(c echo.Context) error
}

// UnusedFilesHandler backs the unused-file admin page
type UnusedFilesHandler interface {
	HandleListUnused(c echo.Context) error
	HandleListUnusedMsgpack(c echo.Context) error
	HandleDeleteUnused(c echo.Context) error
	HandleStats(c echo.Context) error
	HandleMethodology(c echo.Context) error
	HandleDebug(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// ContentSource is the content cache as seen by handlers.
// This allows mocking in tests
type ContentSource interface {
	SiteContent(ctx context.Context) (models.Document, error)
	EventData(ctx context.Context) (models.Document, error)
	Workshop(ctx context.Context) (models.Workshop, error)
	Invalidate()
}

// UnusedScanner computes the unused file list
type UnusedScanner interface {
	Scan(ctx context.Context) (*models.ScanResult, error)
}

// BatchDeleter removes a selection of files
type BatchDeleter interface {
	DeleteBatch(ctx context.Context, ids []string) (models.DeleteResult, error)
}

// StatsReporter answers debug panel queries
type StatsReporter interface {
	TotalAssetCount(ctx context.Context) (int64, error)
	DescribeMethodology() models.Methodology
	Report(ctx context.Context) models.DebugReport
}

// Pinger checks a backing service
type Pinger interface {
	Ping(ctx context.Context) error
}
