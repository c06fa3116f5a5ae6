package resource

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/docstore"
)

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(db *mongo.Database) Repository {
	return &repoMongo{coll: db.Collection(docstore.Resources)}
}

func (r *repoMongo) Create(ctx context.Context, res *Resource) error {
	_, err := r.coll.InsertOne(ctx, res)
	return err
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Resource, error) {
	var res Resource
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		return nil, docstore.NotFound(err)
	}
	return &res, nil
}

func (r *repoMongo) Update(ctx context.Context, res *Resource) error {
	out, err := r.coll.UpdateByID(ctx, res.ID, bson.M{"$set": bson.M{
		"title":       res.Title,
		"description": res.Description,
		"url":         res.URL,
		"category":    res.Category,
		"updatedAt":   res.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if out.MatchedCount == 0 {
		return fmt.Errorf("resource %s: %w", res.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) error {
	out, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if out.DeletedCount == 0 {
		return fmt.Errorf("resource %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoMongo) ListByDoctor(ctx context.Context, doctorID string) ([]*Resource, error) {
	cur, err := r.coll.Find(ctx, bson.M{"doctorId": doctorID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var items []*Resource
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
