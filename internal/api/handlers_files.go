// handlers_files.go - Unused file report and cleanup handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/cleanup"
	"github.com/techelons/site/internal/models"
	"github.com/techelons/site/internal/scanner"
)

// UnusedFilesHandlerImpl implements the UnusedFilesHandler interface
type UnusedFilesHandlerImpl struct {
	scanner UnusedScanner
	deleter BatchDeleter
	stats   StatsReporter
	log     *zap.SugaredLogger
}

// NewUnusedFilesHandler creates a new unused files handler instance
func NewUnusedFilesHandler(s UnusedScanner, d BatchDeleter, stats StatsReporter, log *zap.SugaredLogger) UnusedFilesHandler {
	return &UnusedFilesHandlerImpl{
		scanner: s,
		deleter: d,
		stats:   stats,
		log:     log,
	}
}

// HandleListUnused runs a full scan and returns the unreferenced files
func (h *UnusedFilesHandlerImpl) HandleListUnused(c echo.Context) error {
	result, apiErr := h.scan(c)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, result)
}

// HandleListUnusedMsgpack returns the scan result in MessagePack format
func (h *UnusedFilesHandlerImpl) HandleListUnusedMsgpack(c echo.Context) error {
	result, apiErr := h.scan(c)
	if apiErr != nil {
		return apiErr
	}

	data, err := msgpack.Marshal(result)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleDeleteUnused deletes the selected files and reports how many went away
func (h *UnusedFilesHandlerImpl) HandleDeleteUnused(c echo.Context) error {
	var req deleteFilesRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	result, err := h.deleter.DeleteBatch(c.Request().Context(), req.FileIDs)
	if errors.Is(err, cleanup.ErrEmptySelection) {
		return NewBadRequestError("no files selected", err)
	}
	if err != nil {
		return NewInternalError("failed to delete files", err)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleStats returns the total number of stored files
func (h *UnusedFilesHandlerImpl) HandleStats(c echo.Context) error {
	n, err := h.stats.TotalAssetCount(c.Request().Context())
	if err != nil {
		h.log.Warnw("total file count not available", "error", err)
		return NewServiceUnavailableError("total file count not available", err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"totalCount": n})
}

// HandleMethodology describes how the scan decides a file is unused
func (h *UnusedFilesHandlerImpl) HandleMethodology(c echo.Context) error {
	return c.JSON(http.StatusOK, h.stats.DescribeMethodology())
}

// HandleDebug returns the debug panel payload
func (h *UnusedFilesHandlerImpl) HandleDebug(c echo.Context) error {
	return c.JSON(http.StatusOK, h.stats.Report(c.Request().Context()))
}

func (h *UnusedFilesHandlerImpl) scan(c echo.Context) (*models.ScanResult, *APIError) {
	result, err := h.scanner.Scan(c.Request().Context())
	if errors.Is(err, scanner.ErrScanIncomplete) {
		return nil, NewScanIncompleteError(err)
	}
	if err != nil {
		h.log.Errorw("unused file scan failed", "error", err)
		return nil, NewInternalError("failed to scan for unused files", err)
	}
	return result, nil
}

// Request/Response types

type deleteFilesRequest struct {
	FileIDs []string `json:"fileIds"`
}

func (r *deleteFilesRequest) validate() error {
	if len(r.FileIDs) == 0 {
		return NewValidationError("fileIds")
	}
	return nil
}
