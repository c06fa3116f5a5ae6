package identity

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/internal/platform/docstore"
)

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(db *mongo.Database) Repository {
	return &repoMongo{coll: db.Collection(docstore.Identities)}
}

func (r *repoMongo) Create(ctx context.Context, i *Identity) error {
	_, err := r.coll.InsertOne(ctx, i)
	return err
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Identity, error) {
	var i Identity
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&i); err != nil {
		return nil, docstore.NotFound(err)
	}
	return &i, nil
}

func (r *repoMongo) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	var i Identity
	if err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&i); err != nil {
		return nil, docstore.NotFound(err)
	}
	return &i, nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *repoMongo) UpdateRole(ctx context.Context, id string, role auth.Role) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("identity %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
