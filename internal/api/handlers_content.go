// handlers_content.go - Cached site content handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/content"
	"github.com/techelons/site/internal/models"
)

// ContentHandlerImpl implements the ContentHandler interface
type ContentHandlerImpl struct {
	content ContentSource
	log     *zap.SugaredLogger
}

// NewContentHandler creates a new content handler instance
func NewContentHandler(src ContentSource, log *zap.SugaredLogger) ContentHandler {
	return &ContentHandlerImpl{
		content: src,
		log:     log,
	}
}

// HandleGetContent returns the site content document
func (h *ContentHandlerImpl) HandleGetContent(c echo.Context) error {
	doc, err := h.content.SiteContent(c.Request().Context())
	return h.respondDocument(c, "site content", string(content.ResourceSiteContent), doc, err)
}

// HandleGetEvents returns the event data document
func (h *ContentHandlerImpl) HandleGetEvents(c echo.Context) error {
	doc, err := h.content.EventData(c.Request().Context())
	return h.respondDocument(c, "event data", string(content.ResourceEventData), doc, err)
}

// HandleGetWorkshop returns the workshop section of the site content
func (h *ContentHandlerImpl) HandleGetWorkshop(c echo.Context) error {
	w, err := h.content.Workshop(c.Request().Context())
	if err != nil {
		return fetchError("site content", err)
	}
	return c.JSON(http.StatusOK, w)
}

// HandleInvalidateCache drops both cached documents
func (h *ContentHandlerImpl) HandleInvalidateCache(c echo.Context) error {
	h.content.Invalidate()
	h.log.Infow("content cache invalidated", "remote", c.RealIP())
	return c.NoContent(http.StatusNoContent)
}

func (h *ContentHandlerImpl) respondDocument(c echo.Context, what, name string, doc models.Document, err error) error {
	if err != nil {
		return fetchError(what, err)
	}
	if doc == nil {
		return NewNotFoundError(what, name)
	}
	return c.JSON(http.StatusOK, doc)
}

func fetchError(what string, err error) *APIError {
	switch {
	case errors.Is(err, content.ErrTimeout):
		return &APIError{
			Status:  http.StatusGatewayTimeout,
			Code:    "TIMEOUT",
			Message: "timed out loading " + what,
			Details: err.Error(),
		}
	case errors.Is(err, content.ErrNetworkFailure):
		return NewUpstreamError("failed to load "+what, err)
	default:
		return NewInternalError("failed to load "+what, err)
	}
}
