// Package content serves the site content and event data documents through a
// process-wide cache backed by either the document store or the site API.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/techelons/site/internal/docstore"
	"github.com/techelons/site/internal/models"
)

// Resource names a cached document.
type Resource string

const (
	ResourceSiteContent Resource = "siteContent"
	ResourceEventData   Resource = "eventData"
)

// DefaultEventTimeout bounds network fetches of event data.
const DefaultEventTimeout = 5 * time.Second

var (
	// ErrNetworkFailure is returned when the site API answers with a non-success status.
	ErrNetworkFailure = errors.New("network failure")
	// ErrTimeout is returned when an event data request is cancelled by its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrUnknownResource is returned for resources a fetcher has no source for.
	ErrUnknownResource = errors.New("unknown resource")
)

// StatusError carries the HTTP status of a failed fetch.
type StatusError struct {
	Resource Resource
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %d %s", e.Resource, e.Status, http.StatusText(e.Status))
}

func (e *StatusError) Unwrap() error { return ErrNetworkFailure }

// ResourceFetcher loads the current value of a resource. A nil document with
// a nil error means the resource does not exist.
type ResourceFetcher interface {
	Fetch(ctx context.Context, r Resource) (models.Document, error)
}

// DirectStoreFetcher reads resources straight from the document store.
// Store failures are logged and reported as absent so rendering never fails
// because the database is down.
type DirectStoreFetcher struct {
	store       docstore.Store
	collections map[Resource]string
	log         *zap.SugaredLogger
}

// NewDirectStoreFetcher creates a fetcher reading the given collections.
func NewDirectStoreFetcher(store docstore.Store, siteCollection, eventCollection string, log *zap.SugaredLogger) *DirectStoreFetcher {
	return &DirectStoreFetcher{
		store: store,
		collections: map[Resource]string{
			ResourceSiteContent: siteCollection,
			ResourceEventData:   eventCollection,
		},
		log: log,
	}
}

func (f *DirectStoreFetcher) Fetch(ctx context.Context, r Resource) (models.Document, error) {
	collection, ok := f.collections[r]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, r)
	}

	doc, err := f.store.FindOne(ctx, collection)
	if err != nil {
		f.log.Errorw("document store unavailable, serving without content",
			"resource", r, "collection", collection, "error", err)
		return nil, nil
	}
	if doc == nil {
		f.log.Warnw("no document found", "resource", r, "collection", collection)
		return nil, nil
	}
	return doc, nil
}

// NetworkFetcher reads resources from the site API over HTTP. Every non-2xx
// status, 404 included, is a *StatusError.
type NetworkFetcher struct {
	baseURL      string
	http         *http.Client
	eventTimeout time.Duration
	paths        map[Resource]string
}

// NewNetworkFetcher creates a fetcher for the API at baseURL. A zero
// eventTimeout uses DefaultEventTimeout.
func NewNetworkFetcher(baseURL string, client *http.Client, eventTimeout time.Duration) *NetworkFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if eventTimeout <= 0 {
		eventTimeout = DefaultEventTimeout
	}
	return &NetworkFetcher{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         client,
		eventTimeout: eventTimeout,
		paths: map[Resource]string{
			ResourceSiteContent: "/api/content",
			ResourceEventData:   "/api/techelons",
		},
	}
}

func (f *NetworkFetcher) Fetch(ctx context.Context, r Resource) (models.Document, error) {
	path, ok := f.paths[r]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, r)
	}

	reqCtx := ctx
	if r == ResourceEventData {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.eventTimeout)
		defer cancel()
	}

	doc, err := f.get(reqCtx, r, path)
	if err != nil && ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s, check the network connection and try again", ErrTimeout, f.eventTimeout)
	}
	return doc, err
}

func (f *NetworkFetcher) get(ctx context.Context, r Resource, path string) (models.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", r, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Resource: r, Status: resp.StatusCode}
	}

	var doc models.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r, err)
	}
	return doc, nil
}
