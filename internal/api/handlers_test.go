package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/cleanup"
	"github.com/techelons/site/internal/content"
	"github.com/techelons/site/internal/docstore"
	"github.com/techelons/site/internal/models"
	"github.com/techelons/site/internal/scanner"
	"github.com/techelons/site/internal/stats"
	"github.com/techelons/site/internal/testutil"
)

const (
	usedID   = "65f1b0000000000000000001"
	unusedID = "65f1b0000000000000000002"
)

type testServer struct {
	e     *echo.Echo
	store *testutil.MockStorage
	docs  *docstore.MemoryStore
	src   *fakeContent
}

type fakeContent struct {
	site        models.Document
	events      models.Document
	err         error
	invalidated int
}

func (f *fakeContent) SiteContent(context.Context) (models.Document, error) { return f.site, f.err }
func (f *fakeContent) EventData(context.Context) (models.Document, error)   { return f.events, f.err }
func (f *fakeContent) Workshop(context.Context) (models.Workshop, error) {
	if f.err != nil {
		return models.Workshop{}, f.err
	}
	return content.WorkshopFrom(f.site), nil
}
func (f *fakeContent) Invalidate() { f.invalidated++ }

func newTestServer(t *testing.T, opts RouteOptions, scanOpts scanner.Options) *testServer {
	t.Helper()
	log := zap.NewNop().Sugar()
	store := testutil.NewMockStorage()
	docs := docstore.NewMemoryStore()
	src := &fakeContent{}

	s := scanner.New(store, docs, log, scanOpts)
	deps := &Dependencies{
		Store:          store,
		Content:        src,
		Scanner:        s,
		Deleter:        cleanup.NewCoordinator(store, log),
		Stats:          stats.NewReporter(store, s, nil, log),
		MaxUploadBytes: 1024,
		Version:        "test",
		Log:            log,
	}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, NewHandlers(deps), opts)
	return &testServer{e: e, store: store, docs: docs, src: src}
}

func (ts *testServer) do(method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func TestContentHandlers(t *testing.T) {
	ts := newTestServer(t, RouteOptions{}, scanner.Options{})

	// 1. Nothing stored yet
	rec := ts.do(http.MethodGet, "/api/content", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	// 2. Content available
	ts.src.site = models.Document{"title": "Techelons", "workshop": map[string]any{"title": "Go 101", "isRegistrationOpen": true}}
	ts.src.events = models.Document{"events": []any{"hackathon"}}

	rec = ts.do(http.MethodGet, "/api/content", nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		assert.Contains(t, rec.Body.String(), `"title":"Techelons"`)
	}

	rec = ts.do(http.MethodGet, "/api/techelons", nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		assert.Contains(t, rec.Body.String(), `"hackathon"`)
	}

	rec = ts.do(http.MethodGet, "/api/content/workshop", nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		var w models.Workshop
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
		assert.Equal(t, "Go 101", w.Title)
		assert.True(t, w.IsRegistrationOpen)
	}

	// 3. Invalidate
	rec = ts.do(http.MethodPost, "/api/cache/invalidate", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, ts.src.invalidated)
}

func TestContentHandlers_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"timeout", content.ErrTimeout, http.StatusGatewayTimeout, "TIMEOUT"},
		{"network failure", &content.StatusError{Resource: content.ResourceEventData, Status: 500}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, RouteOptions{}, scanner.Options{})
			ts.src.err = tt.err

			rec := ts.do(http.MethodGet, "/api/techelons", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestUnusedFilesFlow(t *testing.T) {
	ts := newTestServer(t, RouteOptions{AllowFileDeletion: true}, scanner.Options{})
	ts.store.AddFileAt(usedID, "banner.png", time.Now().Add(-time.Hour))
	ts.store.AddFileAt(unusedID, "old.pdf", time.Now())
	ts.docs.Insert("sitecontents", models.Document{
		"images": []any{map[string]any{"url": "https://example.com/api/files/" + usedID}},
	})

	// 1. List unused
	rec := ts.do(http.MethodGet, "/api/files/unused", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.UnusedAssets, 1)
	assert.Equal(t, unusedID, result.UnusedAssets[0].ID)
	assert.Equal(t, 2, result.TotalAssetCount)

	// 2. Same list as msgpack
	rec = ts.do(http.MethodGet, "/api/files/unused/msgpack", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))
	var packed models.ScanResult
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &packed))
	require.Len(t, packed.UnusedAssets, 1)
	assert.Equal(t, unusedID, packed.UnusedAssets[0].ID)

	// 3. Stats
	rec = ts.do(http.MethodGet, "/api/files/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalCount":2}`, rec.Body.String())

	// 4. Delete selection, one of which is already gone
	body, _ := json.Marshal(map[string][]string{"fileIds": {unusedID, "65f1b0000000000000000009"}})
	rec = ts.do(http.MethodDelete, "/api/files/unused", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var del models.DeleteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &del))
	assert.Equal(t, 1, del.DeletedCount)
	assert.Equal(t, 1, ts.store.GetFileCount())

	// 5. Nothing unused any more
	rec = ts.do(http.MethodGet, "/api/files/unused", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"files":[]`)
}

func TestDeleteUnused_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"empty list", `{"fileIds":[]}`, "VALIDATION_ERROR"},
		{"missing list", `{}`, "VALIDATION_ERROR"},
		{"blank ids only", `{"fileIds":["", " "]}`, "BAD_REQUEST"},
		{"malformed json", `{"fileIds":`, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, RouteOptions{AllowFileDeletion: true}, scanner.Options{})
			ts.store.AddFile(unusedID, "a.png", "image/png", "", []byte("a"))

			rec := ts.do(http.MethodDelete, "/api/files/unused", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
			assert.Equal(t, 0, ts.store.DeleteCalls())
		})
	}
}

func TestDeleteUnused_Disabled(t *testing.T) {
	ts := newTestServer(t, RouteOptions{AllowFileDeletion: false}, scanner.Options{})
	ts.store.AddFile(unusedID, "a.png", "image/png", "", []byte("a"))

	rec := ts.do(http.MethodDelete, "/api/files/unused", []byte(`{"fileIds":["`+unusedID+`"]}`))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 1, ts.store.GetFileCount())
}

func TestListUnused_Incomplete(t *testing.T) {
	ts := newTestServer(t, RouteOptions{}, scanner.Options{MaxDocuments: 1})
	ts.store.AddFile(unusedID, "a.png", "image/png", "", []byte("a"))
	ts.docs.Insert("pages", models.Document{"n": 1})
	ts.docs.Insert("pages", models.Document{"n": 2})

	rec := ts.do(http.MethodGet, "/api/files/unused", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "SCAN_INCOMPLETE", apiErr.Code)
	assert.NotContains(t, rec.Body.String(), `"files"`)
}

func TestStats_NotAvailable(t *testing.T) {
	ts := newTestServer(t, RouteOptions{}, scanner.Options{})
	ts.store.CountErr = errors.New("count timed out")

	rec := ts.do(http.MethodGet, "/api/files/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.do(http.MethodGet, "/api/files/debug", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalCount":null`)
}

func TestMethodology(t *testing.T) {
	ts := newTestServer(t, RouteOptions{}, scanner.Options{MaxDocuments: 42})

	rec := ts.do(http.MethodGet, "/api/files/methodology", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var m models.Methodology
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Len(t, m.Strategies, 4)
	assert.Equal(t, 42, m.Bounds.MaxDocuments)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, RouteOptions{}, scanner.Options{})

	rec := ts.do(http.MethodGet, "/api/health", nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
		assert.Contains(t, rec.Body.String(), `"version":"test"`)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("no reachable servers") }

func TestHealth_DatabaseDown(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler("test", failingPinger{})
	if assert.NoError(t, h.HandleHealth(c)) {
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "no reachable servers"))
	}
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()

	t.Run("api error keeps status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		ErrorHandler(NewNotFoundError("file", "x"), c)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
	})

	t.Run("unknown error hides details by default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		ErrorHandler(errors.New("secret"), c)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret")
	})
}
