package user

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/internal/platform/docstore"
)

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(db *mongo.Database) Repository {
	return &repoMongo{coll: db.Collection(docstore.Users)}
}

func (r *repoMongo) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, u)
	return err
}

func (r *repoMongo) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, docstore.NotFound(err)
	}
	return &u, nil
}

func (r *repoMongo) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*User, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []*User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *repoMongo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (r *repoMongo) GetMany(ctx context.Context, ids []string) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *repoMongo) FindByEmailAndRole(ctx context.Context, email string, role auth.Role) (*User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email), "role": role})
}

func (r *repoMongo) Update(ctx context.Context, id string, p Patch) error {
	fields := p.fields()
	if len(fields) == 0 {
		return nil
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	for _, f := range fields {
		set[f.key] = f.value
	}
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *repoMongo) ListPatientsByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*User, int, error) {
	filter := bson.M{"doctorId": doctorID, "role": auth.RolePatient}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}, {Key: "email", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	items, err := r.find(ctx, filter, opts)
	return items, int(total), err
}

func (r *repoMongo) CountPatients(ctx context.Context, doctorID string, status AssessmentStatus) (int, error) {
	filter := bson.M{"doctorId": doctorID, "role": auth.RolePatient}
	if status != "" {
		filter["assessmentStatus"] = status
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	return int(n), err
}

func (r *repoMongo) ListByRole(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error) {
	filter := bson.M{"role": role}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit)).SetSkip(int64(offset))
	items, err := r.find(ctx, filter, opts)
	return items, int(total), err
}
