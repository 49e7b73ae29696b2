// Package cleanup deletes batches of assets chosen by an operator.
package cleanup

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/techelons/site/internal/models"
)

// ErrEmptySelection is returned when a batch names no assets.
var ErrEmptySelection = errors.New("no files selected for deletion")

// Deleter removes one asset, payload and metadata together.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Coordinator deletes assets one by one and reports how many went away.
type Coordinator struct {
	store Deleter
	log   *zap.SugaredLogger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store Deleter, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{store: store, log: log}
}

// DeleteBatch attempts every ID independently. A failed item is logged and
// listed in Failed; it does not stop the batch or produce an error. Blank and
// repeated IDs are skipped.
func (c *Coordinator) DeleteBatch(ctx context.Context, ids []string) (models.DeleteResult, error) {
	selection := dedupe(ids)
	if len(selection) == 0 {
		return models.DeleteResult{}, ErrEmptySelection
	}

	var result models.DeleteResult
	for _, id := range selection {
		if err := ctx.Err(); err != nil {
			c.log.Warnw("batch delete cancelled", "deleted", result.DeletedCount, "remaining", len(selection)-result.DeletedCount-len(result.Failed))
			return result, err
		}
		if err := c.store.Delete(ctx, id); err != nil {
			c.log.Errorw("failed to delete file", "id", id, "error", err)
			result.Failed = append(result.Failed, id)
			continue
		}
		c.log.Infow("deleted file", "id", id)
		result.DeletedCount++
	}

	c.log.Infow("batch delete finished", "requested", len(selection), "deleted", result.DeletedCount, "failed", len(result.Failed))
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
