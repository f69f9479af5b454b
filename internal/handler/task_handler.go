package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planboard/internal/repository"
	"planboard/internal/service/task"
)

type TaskHandler struct {
	svc    *task.Service
	logger *zap.Logger
}

func NewTaskHandler(svc *task.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	planID := c.Param("id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	opts := task.ListOptions{
		Filter: repository.TaskFilter{
			Status:   c.Query("status"),
			Priority: c.Query("priority"),
			Assignee: c.Query("assignee"),
			Search:   c.Query("search"),
		},
		Sort: repository.TaskSort{
			Field: c.DefaultQuery("sort", "order_index"),
			Desc:  c.Query("order") == "desc",
		},
		Page:  page,
		Limit: limit,
	}

	views, meta, err := h.svc.List(c.Request.Context(), planID, opts, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": views, "pagination": meta})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"), c.Param("task_id"), actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": view})
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	planID := c.Param("id")
	var in task.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	view, err := h.svc.Create(c.Request.Context(), planID, in, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("CreateTask: success",
		zap.String("task_id", view.ID),
		zap.String("plan_id", planID),
	)
	c.JSON(http.StatusCreated, gin.H{"task": view})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var in task.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	view, err := h.svc.Update(c.Request.Context(), c.Param("id"), c.Param("task_id"), in, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": view})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), c.Param("task_id"), actorID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type bulkCreateRequest struct {
	Tasks []task.BulkItem `json:"tasks"`
}

func (h *TaskHandler) BulkCreateTasks(c *gin.Context) {
	planID := c.Param("id")
	var req bulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	views, err := h.svc.BulkCreate(c.Request.Context(), planID, req.Tasks, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("BulkCreateTasks: success",
		zap.String("plan_id", planID),
		zap.Int("count", len(views)),
	)
	c.JSON(http.StatusCreated, gin.H{"tasks": views})
}

type reorderRequest struct {
	TaskIDs []string `json:"task_ids"`
}

func (h *TaskHandler) ReorderTasks(c *gin.Context) {
	planID := c.Param("id")
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	updated, err := h.svc.Reorder(c.Request.Context(), planID, req.TaskIDs, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
