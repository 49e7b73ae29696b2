package content

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/techelons/site/internal/models"
)

// DefaultEventTTL is how long fetched event data stays fresh.
const DefaultEventTTL = 5 * time.Minute

// Cache holds one site content document for the life of the process and one
// event data document for a bounded window. Concurrent callers may fetch in
// parallel on a miss; the last completed fetch wins.
type Cache struct {
	fetcher ResourceFetcher
	ttl     time.Duration
	now     func() time.Time
	log     *zap.SugaredLogger

	mu              sync.RWMutex
	site            models.Document
	siteFetchedAt   time.Time
	events          models.Document
	eventsFetchedAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithEventTTL overrides the event data validity window.
func WithEventTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache reading through fetcher.
func NewCache(fetcher ResourceFetcher, log *zap.SugaredLogger, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultEventTTL,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SiteContent returns the site content document. The first non-empty result
// is kept until Invalidate; an absent document is not cached.
func (c *Cache) SiteContent(ctx context.Context) (models.Document, error) {
	c.mu.RLock()
	site := c.site
	c.mu.RUnlock()
	if site != nil {
		return site, nil
	}

	doc, err := c.fetcher.Fetch(ctx, ResourceSiteContent)
	if err != nil {
		c.log.Errorw("error fetching site content", "error", err)
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	c.mu.Lock()
	c.site = doc
	c.siteFetchedAt = c.now()
	c.mu.Unlock()
	return doc, nil
}

// EventData returns the event data document, refetching once the validity
// window has passed. If the refetch fails and an older document is held, the
// older document is returned and the error is only logged.
func (c *Cache) EventData(ctx context.Context) (models.Document, error) {
	now := c.now()

	c.mu.RLock()
	events, fetchedAt := c.events, c.eventsFetchedAt
	c.mu.RUnlock()
	if events != nil && now.Sub(fetchedAt) < c.ttl {
		return events, nil
	}

	doc, err := c.fetcher.Fetch(ctx, ResourceEventData)
	if err != nil {
		c.log.Errorw("error fetching event data", "error", err)
		if events != nil {
			c.log.Warnw("returning expired cached event data due to fetch error",
				"fetchedAt", fetchedAt)
			return events, nil
		}
		return nil, err
	}

	if doc == nil {
		// Held value stays as the fallback for a later failed refetch.
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = doc
	c.eventsFetchedAt = now
	return doc, nil
}

// Workshop returns the workshop section of the site content.
func (c *Cache) Workshop(ctx context.Context) (models.Workshop, error) {
	doc, err := c.SiteContent(ctx)
	if err != nil {
		return models.Workshop{}, err
	}
	return WorkshopFrom(doc), nil
}

// InvalidateSiteContent drops the cached site content.
func (c *Cache) InvalidateSiteContent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.site = nil
	c.siteFetchedAt = time.Time{}
}

// InvalidateEventData drops the cached event data.
func (c *Cache) InvalidateEventData() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.eventsFetchedAt = time.Time{}
}

// Invalidate drops both entries.
func (c *Cache) Invalidate() {
	c.InvalidateSiteContent()
	c.InvalidateEventData()
}

// Status reports what each slot currently holds.
func (c *Cache) Status() []models.CachedResource {
	c.mu.RLock()
	defer c.mu.RUnlock()

	site := models.CachedResource{Name: string(ResourceSiteContent), Populated: c.site != nil}
	if site.Populated {
		at := c.siteFetchedAt
		site.FetchedAt = &at
	}

	events := models.CachedResource{Name: string(ResourceEventData), Populated: c.events != nil}
	if events.Populated {
		at := c.eventsFetchedAt
		exp := at.Add(c.ttl)
		events.FetchedAt = &at
		events.ExpiresAt = &exp
	}
	return []models.CachedResource{site, events}
}
