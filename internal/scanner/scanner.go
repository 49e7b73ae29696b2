package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/techelons/site/internal/docstore"
	"github.com/techelons/site/internal/models"
	"github.com/techelons/site/internal/storage"
)

// ErrScanIncomplete is returned when a scan stops at one of its bounds.
var ErrScanIncomplete = errors.New("scan incomplete")

// IncompleteError reports which bound stopped a scan.
type IncompleteError struct {
	Reason           string
	DocumentsScanned int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("scan incomplete after %d documents: %s", e.DocumentsScanned, e.Reason)
}

func (e *IncompleteError) Unwrap() error { return ErrScanIncomplete }

// AssetLister lists every stored asset.
type AssetLister interface {
	List(ctx context.Context) ([]*models.Asset, error)
}

// Options configures a Scanner.
type Options struct {
	// MaxDocuments caps how many documents one scan may visit. Zero means no cap.
	MaxDocuments int
	// MaxDuration caps the wall time of one scan. Zero means no cap.
	MaxDuration time.Duration
	// Exclude lists collections that never hold content references.
	Exclude []string
	// Matchers overrides DefaultMatchers(DefaultRules()).
	Matchers []ReferenceMatcher
}

// Scanner computes the set of unreferenced assets.
type Scanner struct {
	assets   AssetLister
	docs     docstore.Store
	matchers []ReferenceMatcher
	exclude  map[string]struct{}
	opts     Options
	now      func() time.Time
	log      *zap.SugaredLogger
}

// New creates a Scanner.
func New(assets AssetLister, docs docstore.Store, log *zap.SugaredLogger, opts Options) *Scanner {
	matchers := opts.Matchers
	if len(matchers) == 0 {
		matchers = DefaultMatchers(DefaultRules())
	}
	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, name := range opts.Exclude {
		exclude[name] = struct{}{}
	}
	return &Scanner{
		assets:   assets,
		docs:     docs,
		matchers: matchers,
		exclude:  exclude,
		opts:     opts,
		now:      time.Now,
		log:      log,
	}
}

// Scan lists all assets and walks every content document, returning the
// assets no matcher found a reference to. A scan that hits a bound returns an
// *IncompleteError and no list.
func (s *Scanner) Scan(ctx context.Context) (*models.ScanResult, error) {
	start := s.now()

	assets, err := s.assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	idx := NewIndex(assets)

	result := &models.ScanResult{
		TotalAssetCount:   len(assets),
		MatchesByStrategy: make(map[string]int, len(s.matchers)),
	}
	for _, m := range s.matchers {
		result.MatchesByStrategy[m.Name()] = 0
	}

	referenced := make(map[string]struct{})
	if len(idx) > 0 {
		scanned, err := s.walk(ctx, start, idx, referenced, result.MatchesByStrategy)
		result.DocumentsScanned = scanned
		if err != nil {
			return nil, err
		}
	}

	unused := make([]*models.Asset, 0, len(assets)-len(referenced))
	for _, a := range assets {
		if _, ok := referenced[a.ID]; !ok {
			unused = append(unused, a)
		}
	}
	storage.SortNewestFirst(unused)
	result.UnusedAssets = unused
	result.DurationMs = s.now().Sub(start).Milliseconds()

	s.log.Infow("unused file scan finished",
		"assets", result.TotalAssetCount,
		"unused", len(unused),
		"documents", result.DocumentsScanned,
		"durationMs", result.DurationMs)
	return result, nil
}

func (s *Scanner) walk(ctx context.Context, start time.Time, idx Index, referenced map[string]struct{}, counts map[string]int) (int, error) {
	collections, err := s.docs.Collections(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing collections: %w", err)
	}
	sort.Strings(collections)

	scanCtx := ctx
	if s.opts.MaxDuration > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithDeadline(ctx, start.Add(s.opts.MaxDuration))
		defer cancel()
	}

	scanned := 0
	var stop *IncompleteError
	for _, name := range collections {
		if s.excluded(name) {
			continue
		}
		err := s.docs.Walk(scanCtx, name, func(doc models.ContentDocument) error {
			if s.opts.MaxDocuments > 0 && scanned >= s.opts.MaxDocuments {
				stop = &IncompleteError{
					Reason:           fmt.Sprintf("document limit of %d reached", s.opts.MaxDocuments),
					DocumentsScanned: scanned,
				}
				return docstore.ErrStopWalk
			}
			if s.opts.MaxDuration > 0 && s.now().Sub(start) >= s.opts.MaxDuration {
				stop = &IncompleteError{
					Reason:           fmt.Sprintf("time limit of %s reached", s.opts.MaxDuration),
					DocumentsScanned: scanned,
				}
				return docstore.ErrStopWalk
			}

			scanned++
			for _, m := range s.matchers {
				seen := make(map[string]struct{})
				for _, id := range m.Match(doc, idx) {
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}
					referenced[id] = struct{}{}
					counts[m.Name()]++
				}
			}
			return nil
		})
		if stop != nil {
			s.log.Warnw("unused file scan stopped", "collection", name, "reason", stop.Reason)
			return scanned, stop
		}
		if err != nil {
			if ctx.Err() == nil && errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
				return scanned, &IncompleteError{
					Reason:           fmt.Sprintf("time limit of %s reached", s.opts.MaxDuration),
					DocumentsScanned: scanned,
				}
			}
			return scanned, fmt.Errorf("scanning collection %s: %w", name, err)
		}
	}
	return scanned, nil
}

func (s *Scanner) excluded(name string) bool {
	if strings.HasPrefix(name, "system.") {
		return true
	}
	_, ok := s.exclude[name]
	return ok
}

// Methodology describes how scans decide that a file is unused.
func (s *Scanner) Methodology() models.Methodology {
	strategies := make([]models.Strategy, 0, len(s.matchers))
	for _, m := range s.matchers {
		strategies = append(strategies, models.Strategy{Name: m.Name(), Description: m.Description()})
	}
	return models.Methodology{
		Summary: "A file is unused when none of the strategies below finds its ID in any document of any content collection. " +
			"The strategies run in order and their findings are combined.",
		Strategies: strategies,
		Limitations: []string{
			"References held outside the database, such as hard-coded links in page templates, are not seen.",
			"A file referenced after the scan started may still be listed as unused.",
			"The full-text strategy can report a reference when an ID appears by coincidence inside unrelated text.",
		},
		Bounds: models.ScanBounds{
			MaxDocuments:  s.opts.MaxDocuments,
			MaxDurationMs: s.opts.MaxDuration.Milliseconds(),
		},
	}
}
