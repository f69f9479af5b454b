// Package plan manages plan lifecycle and membership, and implements the
// export/import snapshot contract.
package plan

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/store"
)

// PlanStore is the plan collection surface. *repository.PlanRepository
// implements it.
type PlanStore interface {
	Insert(ctx context.Context, p *model.Plan) error
	FindByID(ctx context.Context, id string) (*model.Plan, error)
	FindForUser(ctx context.Context, userID string) ([]model.Plan, error)
	Update(ctx context.Context, id string, set bson.M) (int64, error)
	ReplaceMembers(ctx context.Context, id string, members []model.Member) error
	Delete(ctx context.Context, id string) (int64, error)
}

// TaskStore is the slice of the task collection the plan service touches:
// the delete cascade and snapshot export/import.
type TaskStore interface {
	FindAllByPlan(ctx context.Context, planID string) ([]model.Task, error)
	InsertMany(ctx context.Context, tasks []*model.Task) error
	DeleteByPlan(ctx context.Context, planID string) (int64, error)
}

// UserStore resolves and creates users for membership and import.
type UserStore interface {
	Insert(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Gate admission-checks plan operations.
type Gate interface {
	Require(ctx context.Context, actorID, planID, min string) error
	Invalidate(ctx context.Context, planID string, userIDs ...string)
}

// Publisher emits domain events; may be nil.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	plans     PlanStore
	tasks     TaskStore
	users     UserStore
	gate      Gate
	publisher Publisher
	logger    *zap.Logger
}

func NewService(plans PlanStore, tasks TaskStore, users UserStore, gate Gate, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{plans: plans, tasks: tasks, users: users, gate: gate, publisher: publisher, logger: logger}
}

// Create makes the actor the owner of a new, empty plan.
func (s *Service) Create(ctx context.Context, name, description, actorID string) (*model.Plan, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("name", "name is required")
	}
	now := time.Now().UTC()
	p := &model.Plan{
		ID:          store.NewID(),
		Name:        name,
		Description: description,
		OwnerID:     actorID,
		Members:     []model.Member{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.plans.Insert(ctx, p); err != nil {
		return nil, apperr.Storage("plan.Create", err)
	}
	s.logger.Info("Plan created", zap.String("plan_id", p.ID), zap.String("owner_id", actorID))
	return p, nil
}

// Get returns the plan when the actor holds at least viewer.
func (s *Service) Get(ctx context.Context, planID, actorID string) (*model.Plan, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.mustLoad(ctx, planID)
}

// ListForUser lists plans the actor owns or is a member of.
func (s *Service) ListForUser(ctx context.Context, actorID string) ([]model.Plan, error) {
	plans, err := s.plans.FindForUser(ctx, actorID)
	if err != nil {
		return nil, apperr.Storage("plan.ListForUser", err)
	}
	return plans, nil
}

// UpdateInput is a partial plan settings payload.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Update changes plan-level settings. Owner only.
func (s *Service) Update(ctx context.Context, planID string, in UpdateInput, actorID string) (*model.Plan, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleOwner); err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.Validation("name", "name is required")
		}
		set["name"] = *in.Name
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	matched, err := s.plans.Update(ctx, planID, set)
	if err != nil {
		return nil, apperr.Storage("plan.Update", err)
	}
	if matched == 0 {
		return nil, apperr.NotFound("plan", planID)
	}
	return s.mustLoad(ctx, planID)
}

// Delete removes the plan and cascades to all of its tasks. Owner only.
func (s *Service) Delete(ctx context.Context, planID, actorID string) error {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleOwner); err != nil {
		return err
	}
	removed, err := s.tasks.DeleteByPlan(ctx, planID)
	if err != nil {
		return apperr.Storage("plan.Delete", err)
	}
	deleted, err := s.plans.Delete(ctx, planID)
	if err != nil {
		return apperr.Storage("plan.Delete", err)
	}
	if deleted == 0 {
		return apperr.NotFound("plan", planID)
	}
	s.gate.Invalidate(ctx, planID, actorID)
	s.logger.Info("Plan deleted",
		zap.String("plan_id", planID),
		zap.Int64("tasks_removed", removed),
	)
	return nil
}

// AddMember adds a user, looked up by email, to the plan. Owner only.
func (s *Service) AddMember(ctx context.Context, planID, email, role, actorID string) (*model.Plan, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleOwner); err != nil {
		return nil, err
	}
	if !model.ValidRole(role) {
		return nil, apperr.Validation("role", "invalid role %q", role)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Storage("plan.AddMember", err)
	}
	if u == nil {
		return nil, apperr.NotFound("user", email)
	}

	p, err := s.mustLoad(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID == u.ID {
		return nil, apperr.Conflict("user %s is already the plan owner", email)
	}
	for _, m := range p.Members {
		if m.UserID == u.ID {
			return nil, apperr.Conflict("user %s is already a member", email)
		}
	}

	p.Members = append(p.Members, model.Member{
		UserID:   u.ID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
	if err := s.plans.ReplaceMembers(ctx, planID, p.Members); err != nil {
		return nil, apperr.Storage("plan.AddMember", err)
	}
	s.gate.Invalidate(ctx, planID, u.ID)
	s.logger.Info("Member added",
		zap.String("plan_id", planID),
		zap.String("user_id", u.ID),
		zap.String("role", role),
	)
	return p, nil
}

// UpdateMemberRole changes one member's role. Owner only.
func (s *Service) UpdateMemberRole(ctx context.Context, planID, userID, role, actorID string) (*model.Plan, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleOwner); err != nil {
		return nil, err
	}
	if !model.ValidRole(role) {
		return nil, apperr.Validation("role", "invalid role %q", role)
	}

	p, err := s.mustLoad(ctx, planID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			p.Members[i].Role = role
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.NotFound("member", userID)
	}
	if err := s.plans.ReplaceMembers(ctx, planID, p.Members); err != nil {
		return nil, apperr.Storage("plan.UpdateMemberRole", err)
	}
	s.gate.Invalidate(ctx, planID, userID)
	return p, nil
}

// RemoveMember drops a member from the plan. Owner only.
func (s *Service) RemoveMember(ctx context.Context, planID, userID, actorID string) (*model.Plan, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleOwner); err != nil {
		return nil, err
	}
	p, err := s.mustLoad(ctx, planID)
	if err != nil {
		return nil, err
	}
	kept := p.Members[:0]
	found := false
	for _, m := range p.Members {
		if m.UserID == userID {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return nil, apperr.NotFound("member", userID)
	}
	p.Members = kept
	if err := s.plans.ReplaceMembers(ctx, planID, p.Members); err != nil {
		return nil, apperr.Storage("plan.RemoveMember", err)
	}
	s.gate.Invalidate(ctx, planID, userID)
	s.logger.Info("Member removed", zap.String("plan_id", planID), zap.String("user_id", userID))
	return p, nil
}

func (s *Service) mustLoad(ctx context.Context, planID string) (*model.Plan, error) {
	p, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, apperr.Storage("plan.load", err)
	}
	if p == nil {
		return nil, apperr.NotFound("plan", planID)
	}
	return p, nil
}
