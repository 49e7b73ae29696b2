// Package docstore gives read access to the content document store.
package docstore

import (
	"context"
	"errors"

	"github.com/techelons/site/internal/models"
)

// ErrStopWalk may be returned by a WalkFunc to end a walk early without error.
var ErrStopWalk = errors.New("stop walk")

// WalkFunc is called once per document during a collection walk.
type WalkFunc func(doc models.ContentDocument) error

// Store is the subset of document store operations the site needs.
type Store interface {
	// FindOne returns the first document of a collection, or nil when it is empty.
	FindOne(ctx context.Context, collection string) (models.Document, error)
	// Collections lists every collection name in the database.
	Collections(ctx context.Context) ([]string, error)
	// Walk visits every document of a collection in natural order.
	Walk(ctx context.Context, collection string, fn WalkFunc) error
}
