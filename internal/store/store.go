package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"planboard/pkg/config"
)

// Collection names.
const (
	CollPlans = "plans"
	CollTasks = "tasks"
	CollUsers = "users"
)

// Store holds the database handle shared by the repositories.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect opens the MongoDB client, pings it and ensures the indexes the
// repositories rely on.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Store, error) {
	logger.Info("Initializing MongoDB connection",
		zap.String("uri", cfg.URI),
		zap.String("database", cfg.Database),
	)

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		logger.Error("MongoDB connection failed", zap.Error(err))
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		logger.Error("MongoDB ping failed", zap.Error(err))
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	s := &Store{Client: client, DB: client.Database(cfg.Database)}
	if err := s.ensureIndexes(ctx); err != nil {
		logger.Error("Failed to ensure indexes", zap.Error(err))
		return nil, err
	}

	logger.Info("MongoDB connection established successfully")
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// Ping reports store liveness for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	tasks := s.DB.Collection(CollTasks)
	_, err := tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "status", Value: 1}, {Key: "order_index", Value: 1}}},
		{Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "parent_id", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}, {Key: "tags", Value: "text"}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create task indexes: %w", err)
	}

	users := s.DB.Collection(CollUsers)
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	plans := s.DB.Collection(CollPlans)
	_, err = plans.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "members.user_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create plan indexes: %w", err)
	}
	return nil
}

// NewID generates a document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
