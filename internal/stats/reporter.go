// Package stats answers the read-only questions of the admin debug panel.
package stats

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/techelons/site/internal/models"
)

// Counter counts stored assets.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// MethodologySource describes the scan strategies.
type MethodologySource interface {
	Methodology() models.Methodology
}

// CacheStatus reports the content cache slots.
type CacheStatus interface {
	Status() []models.CachedResource
}

// Reporter gathers counts and descriptions for operators.
type Reporter struct {
	counter Counter
	method  MethodologySource
	cache   CacheStatus
	log     *zap.SugaredLogger
}

// NewReporter creates a Reporter. cache may be nil.
func NewReporter(counter Counter, method MethodologySource, cache CacheStatus, log *zap.SugaredLogger) *Reporter {
	return &Reporter{counter: counter, method: method, cache: cache, log: log}
}

// TotalAssetCount returns the number of stored assets.
func (r *Reporter) TotalAssetCount(ctx context.Context) (int64, error) {
	n, err := r.counter.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return n, nil
}

// DescribeMethodology returns the strategies, limitations and bounds of the scan.
func (r *Reporter) DescribeMethodology() models.Methodology {
	return r.method.Methodology()
}

// Report assembles the debug panel. A failed count leaves TotalCount nil.
func (r *Reporter) Report(ctx context.Context) models.DebugReport {
	report := models.DebugReport{
		Cache:       []models.CachedResource{},
		Methodology: r.DescribeMethodology(),
	}
	if n, err := r.TotalAssetCount(ctx); err != nil {
		r.log.Warnw("total file count not available", "error", err)
	} else {
		report.TotalCount = &n
	}
	if r.cache != nil {
		report.Cache = r.cache.Status()
	}
	return report
}
