package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"planboard/internal/access"
	"planboard/internal/handler"
	"planboard/internal/httpserver"
	"planboard/internal/ordering"
	"planboard/internal/repository"
	"planboard/internal/service/auth"
	"planboard/internal/service/plan"
	"planboard/internal/service/task"
	"planboard/internal/store"
	"planboard/pkg/config"
	"planboard/pkg/logger"
	"planboard/pkg/mq"
	redisclient "planboard/pkg/redis"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Server.Development)
	defer log.Sync()

	ctx := context.Background()

	// Init storage
	st, err := store.Connect(ctx, cfg.Mongo, log)
	if err != nil {
		log.Fatal("Storage initialization failed", zap.Error(err))
	}
	defer st.Close(ctx)

	// Init Redis (role cache)
	rdb := redisclient.New(cfg.Redis)
	defer rdb.Close()

	// Init RabbitMQ publisher; event publishing is optional
	var publisher *mq.Publisher
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Publisher initialization failed", zap.Error(err))
		}
		defer publisher.Close()
	} else {
		log.Warn("MQ_URL not set, event publishing disabled")
	}

	// Init repositories
	userRepo := repository.NewUserRepository(st, log)
	planRepo := repository.NewPlanRepository(st, log)
	taskRepo := repository.NewTaskRepository(st, log)

	// Init services
	gate := access.NewGate(planRepo, rdb, log)
	engine := ordering.NewEngine(taskRepo, log)
	authService := auth.NewService(userRepo, cfg.JWT.Secret, log)
	taskService := task.NewService(taskRepo, userRepo, gate, engine, pub(publisher), log)
	planService := plan.NewService(planRepo, taskRepo, userRepo, gate, pub(publisher), log)

	// Init handlers
	authHandler := handler.NewAuthHandler(authService, log)
	planHandler := handler.NewPlanHandler(planService, log)
	taskHandler := handler.NewTaskHandler(taskService, log)

	// Router
	router := httpserver.NewRouter(authHandler, planHandler, taskHandler, cfg.JWT.Secret, log, st, publisher)

	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatal("server start failed", zap.Error(err))
	}
}

// pub keeps a nil *mq.Publisher from becoming a non-nil interface.
func pub(p *mq.Publisher) task.Publisher {
	if p == nil {
		return nil
	}
	return p
}
