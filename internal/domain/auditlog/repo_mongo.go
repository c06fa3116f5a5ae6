package auditlog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindful/mindful/internal/platform/docstore"
)

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(db *mongo.Database) Repository {
	return &repoMongo{coll: db.Collection(docstore.AuditLogs)}
}

func (r *repoMongo) Append(ctx context.Context, e *Entry) error {
	_, err := r.coll.InsertOne(ctx, e)
	return err
}

func (r *repoMongo) list(ctx context.Context, filter bson.M, limit int) ([]*Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []*Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoMongo) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	return r.list(ctx, bson.M{}, limit)
}

func (r *repoMongo) ByActorEmail(ctx context.Context, email string, limit int) ([]*Entry, error) {
	return r.list(ctx, bson.M{"actorEmail": email}, limit)
}

func (r *repoMongo) ByTargetID(ctx context.Context, targetID string, limit int) ([]*Entry, error) {
	return r.list(ctx, bson.M{"targetId": targetID}, limit)
}
