package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"planboard/internal/handler"
	"planboard/internal/store"
	"planboard/pkg/mq"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	planHandler *handler.PlanHandler,
	taskHandler *handler.TaskHandler,
	jwtSecret string,
	logger *zap.Logger,
	st *store.Store,
	publisher *mq.Publisher,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready"})
			return
		}
		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.POST("/plans", planHandler.CreatePlan)
		api.GET("/plans", planHandler.ListPlans)
		api.POST("/plans/import", planHandler.ImportPlan)
		api.GET("/plans/:id", planHandler.GetPlan)
		api.PATCH("/plans/:id", planHandler.UpdatePlan)
		api.DELETE("/plans/:id", planHandler.DeletePlan)
		api.GET("/plans/:id/export", planHandler.ExportPlan)

		api.POST("/plans/:id/members", planHandler.AddMember)
		api.PATCH("/plans/:id/members/:user_id", planHandler.UpdateMemberRole)
		api.DELETE("/plans/:id/members/:user_id", planHandler.RemoveMember)

		api.GET("/plans/:id/tasks", taskHandler.ListTasks)
		api.POST("/plans/:id/tasks", taskHandler.CreateTask)
		api.POST("/plans/:id/tasks/bulk", taskHandler.BulkCreateTasks)
		api.POST("/plans/:id/tasks/reorder", taskHandler.ReorderTasks)
		api.GET("/plans/:id/tasks/:task_id", taskHandler.GetTask)
		api.PATCH("/plans/:id/tasks/:task_id", taskHandler.UpdateTask)
		api.DELETE("/plans/:id/tasks/:task_id", taskHandler.DeleteTask)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
