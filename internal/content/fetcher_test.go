package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/docstore"
	"github.com/techelons/site/internal/models"
)

func TestDirectStoreFetcher(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop().Sugar()

	t.Run("returns first document", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		store.Insert("sitecontents", models.Document{"_id": "1", "title": "Techelons"})
		f := NewDirectStoreFetcher(store, "sitecontents", "techelonsdatas", log)

		doc, err := f.Fetch(ctx, ResourceSiteContent)
		require.NoError(t, err)
		assert.Equal(t, "Techelons", doc["title"])
	})

	t.Run("missing document is absent", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		f := NewDirectStoreFetcher(store, "sitecontents", "techelonsdatas", log)

		doc, err := f.Fetch(ctx, ResourceEventData)
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("store failure is swallowed", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		store.Err = errors.New("connection refused")
		f := NewDirectStoreFetcher(store, "sitecontents", "techelonsdatas", log)

		doc, err := f.Fetch(ctx, ResourceSiteContent)
		assert.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("unknown resource", func(t *testing.T) {
		f := NewDirectStoreFetcher(docstore.NewMemoryStore(), "a", "b", log)
		_, err := f.Fetch(ctx, Resource("other"))
		assert.ErrorIs(t, err, ErrUnknownResource)
	})

	t.Run("cache over store reads once", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		store.Insert("sitecontents", models.Document{"_id": "1", "title": "Techelons"})
		c := NewCache(NewDirectStoreFetcher(store, "sitecontents", "techelonsdatas", log), log)

		for i := 0; i < 3; i++ {
			_, err := c.SiteContent(ctx)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, store.FindCalls("sitecontents"))
	})
}

func TestNetworkFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes site content", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/content", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"title":"Techelons","workshop":{"title":"Go"}}`))
		}))
		defer srv.Close()

		f := NewNetworkFetcher(srv.URL+"/", srv.Client(), 0)
		doc, err := f.Fetch(ctx, ResourceSiteContent)
		require.NoError(t, err)
		assert.Equal(t, "Techelons", doc["title"])
		assert.Equal(t, "Go", WorkshopFrom(doc).Title)
	})

	t.Run("server error is a network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		f := NewNetworkFetcher(srv.URL, srv.Client(), 0)
		_, err := f.Fetch(ctx, ResourceSiteContent)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNetworkFailure)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
	})

	t.Run("not found is a network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		f := NewNetworkFetcher(srv.URL, srv.Client(), 0)
		for _, r := range []Resource{ResourceSiteContent, ResourceEventData} {
			doc, err := f.Fetch(ctx, r)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrNetworkFailure, r)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, http.StatusNotFound, statusErr.Status)
		}
	})

	t.Run("slow event data times out", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		f := NewNetworkFetcher(srv.URL, srv.Client(), 50*time.Millisecond)
		_, err := f.Fetch(ctx, ResourceEventData)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Contains(t, err.Error(), "check the network connection")
	})

	t.Run("timeout falls back to stale cache entry", func(t *testing.T) {
		var slow atomic.Bool
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slow.Load() {
				select {
				case <-release:
				case <-r.Context().Done():
				}
				return
			}
			w.Write([]byte(`{"event":"techelons"}`))
		}))
		defer srv.Close()
		defer close(release)

		clock := &fakeClock{t: time.Now()}
		c := NewCache(NewNetworkFetcher(srv.URL, srv.Client(), 50*time.Millisecond),
			zap.NewNop().Sugar(), WithClock(clock.now))

		doc, err := c.EventData(ctx)
		require.NoError(t, err)
		assert.Equal(t, "techelons", doc["event"])

		slow.Store(true)
		clock.advance(DefaultEventTTL)
		doc, err = c.EventData(ctx)
		require.NoError(t, err)
		assert.Equal(t, "techelons", doc["event"])
	})

	t.Run("not found after expiry falls back to stale cache entry", func(t *testing.T) {
		var gone atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gone.Load() {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(`{"events":["a"]}`))
		}))
		defer srv.Close()

		clock := &fakeClock{t: time.Now()}
		c := NewCache(NewNetworkFetcher(srv.URL, srv.Client(), 0),
			zap.NewNop().Sugar(), WithClock(clock.now))

		_, err := c.EventData(ctx)
		require.NoError(t, err)

		gone.Store(true)
		clock.advance(6 * time.Minute)
		doc, err := c.EventData(ctx)
		require.NoError(t, err)
		assert.Equal(t, []any{"a"}, doc["events"])
	})

	t.Run("not found site content is surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		c := NewCache(NewNetworkFetcher(srv.URL, srv.Client(), 0), zap.NewNop().Sugar())
		doc, err := c.SiteContent(ctx)
		assert.Nil(t, doc)
		assert.ErrorIs(t, err, ErrNetworkFailure)
	})
}
