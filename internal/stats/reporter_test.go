package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/content"
	"github.com/techelons/site/internal/docstore"
	"github.com/techelons/site/internal/scanner"
	"github.com/techelons/site/internal/testutil"
)

func newReporter(store *testutil.MockStorage, withCache bool) *Reporter {
	log := zap.NewNop().Sugar()
	s := scanner.New(store, docstore.NewMemoryStore(), log, scanner.Options{MaxDocuments: 500})
	var cache CacheStatus
	if withCache {
		cache = content.NewCache(content.NewDirectStoreFetcher(docstore.NewMemoryStore(), "a", "b", log), log)
	}
	return NewReporter(store, s, cache, log)
}

func TestTotalAssetCount(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("A", "a.png", "image/png", "", []byte("a"))
	store.AddFile("B", "b.pdf", "application/pdf", "brochures", []byte("b"))

	n, err := newReporter(store, false).TotalAssetCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTotalAssetCount_Failure(t *testing.T) {
	store := testutil.NewMockStorage()
	store.CountErr = errors.New("timeout")

	_, err := newReporter(store, false).TotalAssetCount(context.Background())
	assert.ErrorContains(t, err, "counting files")
}

func TestDescribeMethodology(t *testing.T) {
	m := newReporter(testutil.NewMockStorage(), false).DescribeMethodology()
	assert.Len(t, m.Strategies, 4)
	assert.Equal(t, 500, m.Bounds.MaxDocuments)
}

func TestReport(t *testing.T) {
	t.Run("count available", func(t *testing.T) {
		store := testutil.NewMockStorage()
		store.AddFile("A", "a.png", "image/png", "", []byte("a"))

		report := newReporter(store, true).Report(context.Background())
		require.NotNil(t, report.TotalCount)
		assert.Equal(t, int64(1), *report.TotalCount)
		assert.Len(t, report.Cache, 2)
	})

	t.Run("count not available", func(t *testing.T) {
		store := testutil.NewMockStorage()
		store.CountErr = errors.New("timeout")

		report := newReporter(store, false).Report(context.Background())
		assert.Nil(t, report.TotalCount)
		assert.Empty(t, report.Cache)
		assert.NotEmpty(t, report.Methodology.Strategies)
	})
}
