package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/techelons/site/internal/models"
)

// MongoMetadata stores asset metadata in a MongoDB collection.
type MongoMetadata struct {
	col *mongo.Collection
}

// NewMongoMetadata creates a repository on the given collection.
func NewMongoMetadata(col *mongo.Collection) *MongoMetadata {
	return &MongoMetadata{col: col}
}

func (r *MongoMetadata) Insert(ctx context.Context, a *models.Asset) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, a)
	return err
}

func (r *MongoMetadata) Get(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	err := r.col.FindOne(ctx, idFilter(id)).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *MongoMetadata) List(ctx context.Context) ([]*models.Asset, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}

	var assets []*models.Asset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *MongoMetadata) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.D{})
}

func (r *MongoMetadata) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// idFilter matches both ObjectID and string keys, since uploads made by
// earlier site versions used ObjectIDs.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}
