package assessment

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
	return &repoMongo{coll: db.Collection(docstore.Assessments)}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

func (r *repoMongo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*Assessment, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []*Assessment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoMongo) Create(ctx context.Context, a *Assessment) error {
	_, err := r.coll.InsertOne(ctx, a)
	return err
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Assessment, error) {
	var a Assessment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, docstore.NotFound(err)
	}
	return &a, nil
}

func (r *repoMongo) SetReview(ctx context.Context, id, note string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"doctorNote":              note,
		"recommendationGenerated": true,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("assessment %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoMongo) ListByUser(ctx context.Context, userID string) ([]*Assessment, error) {
	return r.find(ctx, bson.M{"userId": userID}, options.Find().SetSort(newestFirst))
}

func (r *repoMongo) LatestByUser(ctx context.Context, userID string) (*Assessment, error) {
	var a Assessment
	opts := options.FindOne().SetSort(newestFirst)
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&a); err != nil {
		return nil, docstore.NotFound(err)
	}
	return &a, nil
}

func (r *repoMongo) ListPendingReview(ctx context.Context, doctorID string, limit int) ([]*Assessment, error) {
	filter := bson.M{"doctorId": doctorID, "recommendationGenerated": false}
	return r.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
}

func (r *repoMongo) CountPendingReview(ctx context.Context, doctorID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"doctorId": doctorID, "recommendationGenerated": false})
	return int(n), err
}
