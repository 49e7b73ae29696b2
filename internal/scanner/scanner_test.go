package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/docstore"
	"github.com/techelons/site/internal/models"
)

const (
	idA = "65f1a0000000000000000001"
	idB = "65f1a0000000000000000002"
	idC = "65f1a0000000000000000003"
)

type assetList struct {
	assets []*models.Asset
	err    error
}

func (l *assetList) List(context.Context) ([]*models.Asset, error) {
	return l.assets, l.err
}

func asset(id string, created time.Time) *models.Asset {
	a := models.NewAsset(id, id+".png", id+".png", "image/png", 10, "")
	a.CreatedAt = created
	return a
}

func newTestScanner(assets []*models.Asset, docs docstore.Store, opts Options) *Scanner {
	return New(&assetList{assets: assets}, docs, zap.NewNop().Sugar(), opts)
}

func ids(assets []*models.Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.ID)
	}
	return out
}

func TestScan_EndToEnd(t *testing.T) {
	now := time.Now()
	docs := docstore.NewMemoryStore()
	docs.Insert("sitecontents", models.Document{
		"_id":    "site",
		"images": []any{map[string]any{"url": "https://cdn.example.com/files/" + idA}},
	})

	s := newTestScanner([]*models.Asset{asset(idA, now), asset(idB, now)}, docs, Options{})
	result, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{idB}, ids(result.UnusedAssets))
	assert.Equal(t, 2, result.TotalAssetCount)
	assert.Equal(t, 1, result.DocumentsScanned)
	assert.Equal(t, 1, result.MatchesByStrategy["url"])
}

func TestScan_ReferenceForms(t *testing.T) {
	tests := []struct {
		name string
		doc  models.Document
	}{
		{"top level id", models.Document{"bannerImage": idA}},
		{"nested array of ids", models.Document{"gallery": map[string]any{"items": []any{"x", idA}}}},
		{"typed string slice", models.Document{"fileIds": []string{idA}}},
		{"known field path", models.Document{"logo": "uploads/" + idA}},
		{"api url with query", models.Document{"link": "/api/files/" + idA + "?download=1"}},
		{"absolute url with fragment", models.Document{"href": "https://site.example/files/" + idA + "#top"}},
		{"embedded in markdown", models.Document{"body": "See ![poster](" + idA + ") for details"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := docstore.NewMemoryStore()
			docs.Insert("techelonsdatas", tt.doc)
			now := time.Now()
			s := newTestScanner([]*models.Asset{asset(idA, now), asset(idB, now)}, docs, Options{})

			result, err := s.Scan(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{idB}, ids(result.UnusedAssets))
		})
	}
}

func TestScan_UnusedIffNoMatcherFinds(t *testing.T) {
	docs := docstore.NewMemoryStore()
	docs.Insert("events", models.Document{"poster": idA, "title": "Hackathon"})
	docs.Insert("pages", models.Document{"html": `<img src="/files/` + idC + `">`})
	docs.Insert("pages", models.Document{"note": "nothing here"})

	now := time.Now()
	assets := []*models.Asset{asset(idA, now), asset(idB, now), asset(idC, now)}
	s := newTestScanner(assets, docs, Options{})
	result, err := s.Scan(context.Background())
	require.NoError(t, err)

	unused := make(map[string]bool)
	for _, a := range result.UnusedAssets {
		unused[a.ID] = true
	}

	idx := NewIndex(assets)
	for _, a := range assets {
		found := false
		for _, collection := range []string{"events", "pages"} {
			require.NoError(t, docs.Walk(context.Background(), collection, func(doc models.ContentDocument) error {
				for _, m := range s.matchers {
					for _, id := range m.Match(doc, idx) {
						if id == a.ID {
							found = true
						}
					}
				}
				return nil
			}))
		}
		assert.Equal(t, !found, unused[a.ID], "asset %s", a.ID)
	}
	assert.Equal(t, []string{idB}, ids(result.UnusedAssets))
}

func TestScan_Idempotent(t *testing.T) {
	docs := docstore.NewMemoryStore()
	docs.Insert("sitecontents", models.Document{"image": idC})

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assets := []*models.Asset{asset(idA, base), asset(idB, base.Add(time.Hour)), asset(idC, base)}
	s := newTestScanner(assets, docs, Options{})

	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	second, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ids(first.UnusedAssets), ids(second.UnusedAssets))
	assert.Equal(t, []string{idB, idA}, ids(first.UnusedAssets), "newest first")
}

func TestScan_Exclusions(t *testing.T) {
	docs := docstore.NewMemoryStore()
	docs.Insert("files", models.Document{"_id": idA, "filename": idA + ".png"})
	docs.Insert("uploads.files", models.Document{"_id": idA})
	docs.Insert("system.views", models.Document{"ref": idA})
	docs.Insert("audit", models.Document{"ref": idA})

	s := newTestScanner([]*models.Asset{asset(idA, time.Now())}, docs, Options{
		Exclude: []string{"files", "uploads.files", "uploads.chunks", "audit"},
	})
	result, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{idA}, ids(result.UnusedAssets))
	assert.Equal(t, 0, result.DocumentsScanned)
}

func TestScan_NoAssets(t *testing.T) {
	docs := docstore.NewMemoryStore()
	docs.Insert("sitecontents", models.Document{"title": "x"})

	s := newTestScanner(nil, docs, Options{})
	result, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.UnusedAssets)
	assert.Equal(t, 0, result.TotalAssetCount)
}

func TestScan_Bounds(t *testing.T) {
	t.Run("document limit", func(t *testing.T) {
		docs := docstore.NewMemoryStore()
		for i := 0; i < 5; i++ {
			docs.Insert("pages", models.Document{"n": i})
		}
		s := newTestScanner([]*models.Asset{asset(idA, time.Now())}, docs, Options{MaxDocuments: 3})

		result, err := s.Scan(context.Background())
		assert.Nil(t, result)
		require.ErrorIs(t, err, ErrScanIncomplete)

		var incomplete *IncompleteError
		require.True(t, errors.As(err, &incomplete))
		assert.Equal(t, 3, incomplete.DocumentsScanned)
	})

	t.Run("exact limit completes", func(t *testing.T) {
		docs := docstore.NewMemoryStore()
		for i := 0; i < 3; i++ {
			docs.Insert("pages", models.Document{"n": i})
		}
		s := newTestScanner([]*models.Asset{asset(idA, time.Now())}, docs, Options{MaxDocuments: 3})

		result, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, result.DocumentsScanned)
	})

	t.Run("time limit", func(t *testing.T) {
		docs := docstore.NewMemoryStore()
		for i := 0; i < 5; i++ {
			docs.Insert("pages", models.Document{"n": i})
		}
		s := newTestScanner([]*models.Asset{asset(idA, time.Now())}, docs, Options{MaxDuration: time.Hour})
		clock := time.Now()
		s.now = func() time.Time {
			clock = clock.Add(30 * time.Minute)
			return clock
		}

		result, err := s.Scan(context.Background())
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrScanIncomplete)
		assert.Contains(t, err.Error(), "time limit")
	})
}

func TestScan_Errors(t *testing.T) {
	t.Run("asset listing failure", func(t *testing.T) {
		s := New(&assetList{err: errors.New("db down")}, docstore.NewMemoryStore(), zap.NewNop().Sugar(), Options{})
		_, err := s.Scan(context.Background())
		assert.ErrorContains(t, err, "listing assets")
	})

	t.Run("document store failure", func(t *testing.T) {
		docs := docstore.NewMemoryStore()
		docs.Err = errors.New("db down")
		s := newTestScanner([]*models.Asset{asset(idA, time.Now())}, docs, Options{})
		_, err := s.Scan(context.Background())
		assert.ErrorContains(t, err, "listing collections")
	})
}

func TestMethodology(t *testing.T) {
	s := newTestScanner(nil, docstore.NewMemoryStore(), Options{MaxDocuments: 10, MaxDuration: time.Minute})
	m := s.Methodology()

	require.Len(t, m.Strategies, 4)
	assert.Equal(t, "deep", m.Strategies[0].Name)
	assert.Equal(t, "knownFields", m.Strategies[1].Name)
	assert.Equal(t, "url", m.Strategies[2].Name)
	assert.Equal(t, "fullText", m.Strategies[3].Name)
	assert.NotEmpty(t, m.Limitations)
	assert.Equal(t, 10, m.Bounds.MaxDocuments)
	assert.Equal(t, int64(60000), m.Bounds.MaxDurationMs)
}
