package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/store"
	"planboard/pkg/metrics"
)

type PlanRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewPlanRepository(s *store.Store, logger *zap.Logger) *PlanRepository {
	return &PlanRepository{coll: s.DB.Collection(store.CollPlans), logger: logger}
}

func (r *PlanRepository) observe(op string, start time.Time) {
	metrics.StorageOpDuration.WithLabelValues(store.CollPlans, op).Observe(time.Since(start).Seconds())
}

func (r *PlanRepository) Insert(ctx context.Context, p *model.Plan) error {
	defer r.observe("insert", time.Now())
	r.logger.Debug("Inserting plan",
		zap.String("name", p.Name),
		zap.String("owner_id", p.OwnerID),
	)
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		r.logger.Error("Failed to insert plan", zap.Error(err), zap.String("owner_id", p.OwnerID))
		return err
	}
	return nil
}

// FindByID returns (nil, nil) when no plan matches.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	defer r.observe("find_by_id", time.Now())
	var p model.Plan
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find plan", zap.Error(err), zap.String("plan_id", id))
		return nil, err
	}
	return &p, nil
}

// FindForUser lists plans the user owns or is a member of, newest first.
func (r *PlanRepository) FindForUser(ctx context.Context, userID string) ([]model.Plan, error) {
	defer r.observe("find_for_user", time.Now())
	filter := bson.M{"$or": []bson.M{
		{"owner_id": userID},
		{"members.user_id": userID},
	}}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		r.logger.Error("Failed to query plans", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}
	defer cur.Close(ctx)

	plans := []model.Plan{}
	if err := cur.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// Update applies a partial $set. Returns the matched count.
func (r *PlanRepository) Update(ctx context.Context, id string, set bson.M) (int64, error) {
	defer r.observe("update", time.Now())
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		r.logger.Error("Failed to update plan", zap.Error(err), zap.String("plan_id", id))
		return 0, err
	}
	return res.MatchedCount, nil
}

// ReplaceMembers overwrites the full member list.
func (r *PlanRepository) ReplaceMembers(ctx context.Context, id string, members []model.Member) error {
	defer r.observe("replace_members", time.Now())
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"members":    members,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		r.logger.Error("Failed to replace members", zap.Error(err), zap.String("plan_id", id))
		return err
	}
	return nil
}

func (r *PlanRepository) Delete(ctx context.Context, id string) (int64, error) {
	defer r.observe("delete", time.Now())
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		r.logger.Error("Failed to delete plan", zap.Error(err), zap.String("plan_id", id))
		return 0, err
	}
	return res.DeletedCount, nil
}
