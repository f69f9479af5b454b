package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/service/plan"
)

type PlanHandler struct {
	svc    *plan.Service
	logger *zap.Logger
}

func NewPlanHandler(svc *plan.Service, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, logger: logger}
}

type createPlanRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), req.Name, req.Description, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("CreatePlan: success", zap.String("plan_id", p.ID))
	c.JSON(http.StatusCreated, gin.H{"plan": p})
}

func (h *PlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.svc.ListForUser(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *PlanHandler) GetPlan(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": p})
}

func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	var in plan.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), in, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": p})
}

func (h *PlanHandler) DeletePlan(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *PlanHandler) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	p, err := h.svc.AddMember(c.Request.Context(), c.Param("id"), req.Email, req.Role, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": p})
}

type memberRoleRequest struct {
	Role string `json:"role"`
}

func (h *PlanHandler) UpdateMemberRole(c *gin.Context) {
	var req memberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	p, err := h.svc.UpdateMemberRole(c.Request.Context(), c.Param("id"), c.Param("user_id"), req.Role, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": p})
}

func (h *PlanHandler) RemoveMember(c *gin.Context) {
	p, err := h.svc.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("user_id"), actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": p})
}

func (h *PlanHandler) ExportPlan(c *gin.Context) {
	snap, err := h.svc.Export(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *PlanHandler) ImportPlan(c *gin.Context) {
	var snap model.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	p, err := h.svc.Import(c.Request.Context(), &snap, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("ImportPlan: success", zap.String("plan_id", p.ID))
	c.JSON(http.StatusCreated, gin.H{"plan": p})
}
