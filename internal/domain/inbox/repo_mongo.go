package inbox

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindful/mindful/internal/platform/docstore"
)

type notificationRepoMongo struct{ coll *mongo.Collection }

func NewNotificationRepoMongo(db *mongo.Database) NotificationRepository {
	return &notificationRepoMongo{coll: db.Collection(docstore.Notifications)}
}

func (r *notificationRepoMongo) Create(ctx context.Context, n *Notification) error {
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

func (r *notificationRepoMongo) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Notification, int, error) {
	filter := bson.M{"doctorId": doctorID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var items []*Notification
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *notificationRepoMongo) CountUnread(ctx context.Context, doctorID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"doctorId": doctorID, "read": false})
	return int(n), err
}

func (r *notificationRepoMongo) MarkAllRead(ctx context.Context, doctorID string) (int, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"doctorId": doctorID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}
