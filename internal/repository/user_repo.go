package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/store"
	"planboard/pkg/metrics"
)

type UserRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewUserRepository(s *store.Store, logger *zap.Logger) *UserRepository {
	return &UserRepository{coll: s.DB.Collection(store.CollUsers), logger: logger}
}

func (r *UserRepository) observe(op string, start time.Time) {
	metrics.StorageOpDuration.WithLabelValues(store.CollUsers, op).Observe(time.Since(start).Seconds())
}

func (r *UserRepository) Insert(ctx context.Context, u *model.User) error {
	defer r.observe("insert", time.Now())
	r.logger.Debug("Inserting user", zap.String("email", u.Email), zap.Bool("placeholder", u.Placeholder))
	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		r.logger.Error("Failed to insert user", zap.Error(err), zap.String("email", u.Email))
		return err
	}
	return nil
}

// FindByID returns (nil, nil) when no user matches.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	defer r.observe("find_by_id", time.Now())
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find user", zap.Error(err), zap.String("user_id", id))
		return nil, err
	}
	return &u, nil
}

// FindByIDs loads users keyed by id. Missing ids are simply absent from the
// result map.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	defer r.observe("find_by_ids", time.Now())
	out := map[string]model.User{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		r.logger.Error("Failed to query users", zap.Error(err), zap.Int("count", len(ids)))
		return nil, err
	}
	defer cur.Close(ctx)

	var users []model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// FindByEmail returns (nil, nil) when no user matches.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer r.observe("find_by_email", time.Now())
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find user by email", zap.Error(err), zap.String("email", email))
		return nil, err
	}
	return &u, nil
}

// Update applies a partial $set to one user.
func (r *UserRepository) Update(ctx context.Context, id string, set bson.M) error {
	defer r.observe("update", time.Now())
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		r.logger.Error("Failed to update user", zap.Error(err), zap.String("user_id", id))
		return err
	}
	return nil
}
