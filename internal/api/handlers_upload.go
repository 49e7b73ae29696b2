// handlers_upload.go - File upload and retrieval handlers
package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/storage"
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store          storage.Store
	maxUploadBytes int64
	log            *zap.SugaredLogger
}

// NewFileHandler creates a new file handler instance. A maxUploadBytes of
// zero disables the size check.
func NewFileHandler(store storage.Store, maxUploadBytes int64, log *zap.SugaredLogger) FileHandler {
	return &FileHandlerImpl{
		store:          store,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// HandleUploadFile accepts a multipart upload with a "file" part and an
// optional "section" field
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		return NewTooLargeError(h.maxUploadBytes)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	section := strings.TrimSpace(c.FormValue("section"))
	asset, err := h.store.Save(c.Request().Context(), file.Filename, uploadContentType(file.Header.Get(echo.HeaderContentType), file.Filename), section, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	h.log.Infow("file uploaded", "id", asset.ID, "name", asset.OriginalName, "size", asset.Size, "section", asset.Section)
	return c.JSON(http.StatusCreated, asset)
}

// HandleGetFile streams the raw bytes of a file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	asset, rc, err := h.store.Open(c.Request().Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("file", id)
	}
	if err != nil {
		return NewInternalError("failed to open file", err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", asset.OriginalName))
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if asset.Size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, fmt.Sprint(asset.Size))
	}
	return c.Stream(http.StatusOK, asset.ContentType, rc)
}

// HandleGetFileInfo returns metadata for a specific file
func (h *FileHandlerImpl) HandleGetFileInfo(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	asset, err := h.store.Get(c.Request().Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("file", id)
	}
	if err != nil {
		return NewInternalError("failed to read file metadata", err)
	}
	return c.JSON(http.StatusOK, asset)
}

// Helper functions

// uploadContentType prefers the declared type and falls back to the extension
func uploadContentType(declared, name string) string {
	if declared != "" && declared != echo.MIMEOctetStream {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return echo.MIMEOctetStream
}
