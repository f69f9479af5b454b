// Package task orchestrates validation, ordering and persistence for the
// task operations: create, update, delete, bulk create, reorder, listing.
package task

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/ordering"
	"planboard/internal/repository"
	"planboard/internal/store"
	"planboard/internal/validate"
	"planboard/pkg/metrics"
	"planboard/pkg/mq"
)

// TaskStore is the storage surface the service needs. *repository.TaskRepository
// implements it.
type TaskStore interface {
	Insert(ctx context.Context, t *model.Task) error
	InsertMany(ctx context.Context, tasks []*model.Task) error
	FindOne(ctx context.Context, planID, id string) (*model.Task, error)
	FindByPlan(ctx context.Context, planID string, f repository.TaskFilter, sort repository.TaskSort, skip, limit int64) ([]model.Task, int64, error)
	FindAllByPlan(ctx context.Context, planID string) ([]model.Task, error)
	Update(ctx context.Context, planID, id string, set bson.M) (int64, error)
	CountChildren(ctx context.Context, planID, parentID string) (int64, error)
	Delete(ctx context.Context, planID, id string) (int64, error)
}

// UserSource resolves user references to display data.
type UserSource interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error)
}

// Gate admission-checks each entry point against the actor's plan role.
type Gate interface {
	Require(ctx context.Context, actorID, planID, min string) error
}

// Publisher emits domain events. May be nil; publishing is best-effort and
// never fails the operation.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	tasks      TaskStore
	users      UserSource
	gate       Gate
	engine     *ordering.Engine
	publisher  Publisher
	logger     *zap.Logger
	cycleCheck bool
}

type Option func(*Service)

// WithCycleCheck enables rejection of parent/dependency edges that would
// close a cycle. Off by default.
func WithCycleCheck() Option {
	return func(s *Service) { s.cycleCheck = true }
}

func NewService(tasks TaskStore, users UserSource, gate Gate, engine *ordering.Engine, publisher Publisher, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		tasks:     tasks,
		users:     users,
		gate:      gate,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is a full task payload. OrderIndex nil means "append to the
// end of the (plan, status) partition".
type CreateInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Goal          string   `json:"goal"`
	Notes         string   `json:"notes"`
	Deliverables  string   `json:"deliverables"`
	Status        string   `json:"status"`
	Priority      string   `json:"priority"`
	AssigneeIDs   []string `json:"assignee_ids"`
	StartDate     string   `json:"start_date"`
	DueDate       string   `json:"due_date"`
	ProgressPct   int      `json:"progress_pct"`
	ParentID      string   `json:"parent_id"`
	DependencyIDs []string `json:"dependency_ids"`
	Tags          []string `json:"tags"`
	EstimateHours float64  `json:"estimate_hours"`
	OrderIndex    *int     `json:"order_index"`
}

func (in *CreateInput) toTask(planID, actorID string, now time.Time) *model.Task {
	status := in.Status
	if status == "" {
		status = model.StatusTodo
	}
	return &model.Task{
		ID:            store.NewID(),
		PlanID:        planID,
		Title:         in.Title,
		Description:   in.Description,
		Goal:          in.Goal,
		Notes:         in.Notes,
		Deliverables:  in.Deliverables,
		Status:        status,
		Priority:      in.Priority,
		AssigneeIDs:   emptyIfNil(in.AssigneeIDs),
		StartDate:     in.StartDate,
		DueDate:       in.DueDate,
		ProgressPct:   in.ProgressPct,
		ParentID:      in.ParentID,
		DependencyIDs: emptyIfNil(in.DependencyIDs),
		Tags:          emptyIfNil(in.Tags),
		EstimateHours: in.EstimateHours,
		CreatedBy:     actorID,
		UpdatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Create validates the payload, assigns order_index when absent and
// persists the task with the actor as creator and updater.
func (s *Service) Create(ctx context.Context, planID string, in CreateInput, actorID string) (*View, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleEditor); err != nil {
		return nil, err
	}

	t := in.toTask(planID, actorID, time.Now().UTC())
	if err := validate.Fields(t); err != nil {
		return nil, err
	}

	if t.ParentID != "" || len(t.DependencyIDs) > 0 {
		ix, err := s.planIndex(ctx, planID)
		if err != nil {
			return nil, err
		}
		if err := validate.References(t, ix, nil); err != nil {
			return nil, err
		}
		if s.cycleCheck {
			if err := validate.CheckCycles(t, ix); err != nil {
				return nil, err
			}
		}
	}

	if in.OrderIndex != nil {
		t.OrderIndex = *in.OrderIndex
	} else {
		next, err := s.engine.NextIndex(ctx, planID, t.Status)
		if err != nil {
			return nil, err
		}
		t.OrderIndex = next
	}

	if err := s.tasks.Insert(ctx, t); err != nil {
		return nil, apperr.Storage("task.Create", err)
	}
	metrics.TasksCreated.Inc()
	s.publish(mq.EventTaskCreated, taskEvent(t, actorID))

	s.logger.Info("Task created",
		zap.String("task_id", t.ID),
		zap.String("plan_id", planID),
		zap.String("status", t.Status),
		zap.Int("order_index", t.OrderIndex),
	)
	return s.expandOne(ctx, t)
}

// UpdateInput carries only the fields present in the partial payload; nil
// pointers are left untouched. Parent and dependency references are
// re-validated only when they actually change.
type UpdateInput struct {
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	Goal          *string   `json:"goal"`
	Notes         *string   `json:"notes"`
	Deliverables  *string   `json:"deliverables"`
	Status        *string   `json:"status"`
	Priority      *string   `json:"priority"`
	AssigneeIDs   *[]string `json:"assignee_ids"`
	StartDate     *string   `json:"start_date"`
	DueDate       *string   `json:"due_date"`
	ProgressPct   *int      `json:"progress_pct"`
	ParentID      *string   `json:"parent_id"`
	DependencyIDs *[]string `json:"dependency_ids"`
	Tags          *[]string `json:"tags"`
	EstimateHours *float64  `json:"estimate_hours"`
	OrderIndex    *int      `json:"order_index"`
}

// Update merges the partial payload into the stored task. Changing status
// deliberately does not renumber order_index in either partition; callers
// follow a cross-column move with a Reorder.
func (s *Service) Update(ctx context.Context, planID, id string, in UpdateInput, actorID string) (*View, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleEditor); err != nil {
		return nil, err
	}

	existing, err := s.tasks.FindOne(ctx, planID, id)
	if err != nil {
		return nil, apperr.Storage("task.Update", err)
	}
	if existing == nil {
		return nil, apperr.NotFound("task", id)
	}

	merged := *existing
	refChanged := applyPatch(&merged, in)
	merged.UpdatedBy = actorID
	merged.UpdatedAt = time.Now().UTC()

	if err := validate.Fields(&merged); err != nil {
		return nil, err
	}
	if refChanged {
		ix, err := s.planIndex(ctx, planID)
		if err != nil {
			return nil, err
		}
		if err := validate.References(&merged, ix, nil); err != nil {
			return nil, err
		}
		if s.cycleCheck {
			if err := validate.CheckCycles(&merged, ix); err != nil {
				return nil, err
			}
		}
	}

	matched, err := s.tasks.Update(ctx, planID, id, updateSet(&merged))
	if err != nil {
		return nil, apperr.Storage("task.Update", err)
	}
	if matched == 0 {
		return nil, apperr.NotFound("task", id)
	}
	s.publish(mq.EventTaskUpdated, taskEvent(&merged, actorID))

	s.logger.Info("Task updated", zap.String("task_id", id), zap.String("plan_id", planID))
	return s.expandOne(ctx, &merged)
}

func applyPatch(t *model.Task, in UpdateInput) (refChanged bool) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Goal != nil {
		t.Goal = *in.Goal
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
	if in.Deliverables != nil {
		t.Deliverables = *in.Deliverables
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.AssigneeIDs != nil {
		t.AssigneeIDs = emptyIfNil(*in.AssigneeIDs)
	}
	if in.StartDate != nil {
		t.StartDate = *in.StartDate
	}
	if in.DueDate != nil {
		t.DueDate = *in.DueDate
	}
	if in.ProgressPct != nil {
		t.ProgressPct = *in.ProgressPct
	}
	if in.ParentID != nil && *in.ParentID != t.ParentID {
		t.ParentID = *in.ParentID
		refChanged = t.ParentID != ""
	}
	if in.DependencyIDs != nil && !sameIDs(*in.DependencyIDs, t.DependencyIDs) {
		t.DependencyIDs = emptyIfNil(*in.DependencyIDs)
		refChanged = refChanged || len(t.DependencyIDs) > 0
	}
	if in.Tags != nil {
		t.Tags = emptyIfNil(*in.Tags)
	}
	if in.EstimateHours != nil {
		t.EstimateHours = *in.EstimateHours
	}
	if in.OrderIndex != nil {
		t.OrderIndex = *in.OrderIndex
	}
	return refChanged
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func updateSet(t *model.Task) bson.M {
	return bson.M{
		"title":          t.Title,
		"description":    t.Description,
		"goal":           t.Goal,
		"notes":          t.Notes,
		"deliverables":   t.Deliverables,
		"status":         t.Status,
		"priority":       t.Priority,
		"assignee_ids":   t.AssigneeIDs,
		"start_date":     t.StartDate,
		"due_date":       t.DueDate,
		"progress_pct":   t.ProgressPct,
		"parent_id":      t.ParentID,
		"dependency_ids": t.DependencyIDs,
		"tags":           t.Tags,
		"estimate_hours": t.EstimateHours,
		"order_index":    t.OrderIndex,
		"updated_by":     t.UpdatedBy,
		"updated_at":     t.UpdatedAt,
	}
}

// Delete removes a task. A task that still has children cannot be deleted.
func (s *Service) Delete(ctx context.Context, planID, id string, actorID string) error {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleEditor); err != nil {
		return err
	}

	existing, err := s.tasks.FindOne(ctx, planID, id)
	if err != nil {
		return apperr.Storage("task.Delete", err)
	}
	if existing == nil {
		return apperr.NotFound("task", id)
	}

	children, err := s.tasks.CountChildren(ctx, planID, id)
	if err != nil {
		return apperr.Storage("task.Delete", err)
	}
	if children > 0 {
		return apperr.Conflict("task has %d subtasks; delete them first", children)
	}

	deleted, err := s.tasks.Delete(ctx, planID, id)
	if err != nil {
		return apperr.Storage("task.Delete", err)
	}
	if deleted == 0 {
		return apperr.NotFound("task", id)
	}
	s.publish(mq.EventTaskDeleted, taskEvent(existing, actorID))

	s.logger.Info("Task deleted", zap.String("task_id", id), zap.String("plan_id", planID))
	return nil
}

// BulkItem is one payload of a bulk creation. TempID is the client-supplied
// temporary id other items of the batch may use in parent_id or
// dependency_ids.
type BulkItem struct {
	TempID string `json:"temp_id"`
	CreateInput
}

// BulkCreate validates the whole batch against persisted tasks unioned with
// the batch itself, then persists it. A single invalid payload rejects the
// entire batch before any write. Temporary-id references are remapped to the
// generated ids. The write itself is one ordered insert, not a transaction.
func (s *Service) BulkCreate(ctx context.Context, planID string, items []BulkItem, actorID string) ([]View, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleEditor); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []View{}, nil
	}

	ix, err := s.planIndex(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payloads := make([]*model.Task, len(items))
	tempIDs := make([]string, len(items))
	tempToReal := make(map[string]string, len(items))
	for i, item := range items {
		t := item.CreateInput.toTask(planID, actorID, now)
		payloads[i] = t
		tempIDs[i] = item.TempID
		if item.TempID != "" {
			tempToReal[item.TempID] = t.ID
		}
	}

	// All-or-nothing: reject the batch before any write.
	if err := validate.Batch(payloads, tempIDs, ix); err != nil {
		return nil, err
	}

	// Remap in-batch temporary references onto the generated ids and assign
	// order indexes per partition, continuing from the current maximum.
	nextByStatus := map[string]int{}
	for i, t := range payloads {
		if real, ok := tempToReal[t.ParentID]; ok {
			t.ParentID = real
		}
		for j, dep := range t.DependencyIDs {
			if real, ok := tempToReal[dep]; ok {
				t.DependencyIDs[j] = real
			}
		}
		if items[i].OrderIndex != nil {
			t.OrderIndex = *items[i].OrderIndex
			continue
		}
		next, ok := nextByStatus[t.Status]
		if !ok {
			next, err = s.engine.NextIndex(ctx, planID, t.Status)
			if err != nil {
				return nil, err
			}
		}
		t.OrderIndex = next
		nextByStatus[t.Status] = next + 1
	}

	if err := s.tasks.InsertMany(ctx, payloads); err != nil {
		return nil, apperr.Storage("task.BulkCreate", err)
	}
	metrics.TasksCreated.Add(float64(len(payloads)))
	for _, t := range payloads {
		s.publish(mq.EventTaskCreated, taskEvent(t, actorID))
	}

	s.logger.Info("Tasks bulk created",
		zap.String("plan_id", planID),
		zap.Int("count", len(payloads)),
	)
	created := make([]model.Task, len(payloads))
	for i, t := range payloads {
		created[i] = *t
	}
	return s.expand(ctx, created)
}

// Reorder rewrites order_index to the 1-based position of each id in
// taskIDs. Ids not belonging to the plan are silently skipped; the number of
// tasks actually updated is returned.
func (s *Service) Reorder(ctx context.Context, planID string, taskIDs []string, actorID string) (int64, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleEditor); err != nil {
		return 0, err
	}
	metrics.ReorderBatchSize.Observe(float64(len(taskIDs)))

	updated, err := s.engine.Reorder(ctx, planID, taskIDs, actorID)
	if err != nil {
		return 0, err
	}
	s.publish(mq.EventTasksReorder, mq.TasksReorderedPayload{
		PlanID:  planID,
		Updated: updated,
		ActorID: actorID,
	})

	s.logger.Info("Tasks reordered",
		zap.String("plan_id", planID),
		zap.Int("requested", len(taskIDs)),
		zap.Int64("updated", updated),
	)
	return updated, nil
}

// Get loads one task with references expanded.
func (s *Service) Get(ctx context.Context, planID, id string, actorID string) (*View, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleViewer); err != nil {
		return nil, err
	}
	t, err := s.tasks.FindOne(ctx, planID, id)
	if err != nil {
		return nil, apperr.Storage("task.Get", err)
	}
	if t == nil {
		return nil, apperr.NotFound("task", id)
	}
	return s.expandOne(ctx, t)
}

// ListOptions control filtering, sorting and pagination of a plan's tasks.
type ListOptions struct {
	Filter repository.TaskFilter
	Sort   repository.TaskSort
	Page   int
	Limit  int
}

// PageMeta is the pagination envelope returned alongside a listing.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// List returns one page of a plan's tasks with references expanded.
func (s *Service) List(ctx context.Context, planID string, opts ListOptions, actorID string) ([]View, PageMeta, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleViewer); err != nil {
		return nil, PageMeta{}, err
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 50
	}
	skip := int64(opts.Page-1) * int64(opts.Limit)

	tasks, total, err := s.tasks.FindByPlan(ctx, planID, opts.Filter, opts.Sort, skip, int64(opts.Limit))
	if err != nil {
		return nil, PageMeta{}, apperr.Storage("task.List", err)
	}

	views, err := s.expand(ctx, tasks)
	if err != nil {
		return nil, PageMeta{}, err
	}
	pages := (total + int64(opts.Limit) - 1) / int64(opts.Limit)
	return views, PageMeta{Page: opts.Page, Limit: opts.Limit, Total: total, Pages: pages}, nil
}

func (s *Service) planIndex(ctx context.Context, planID string) (*validate.Index, error) {
	all, err := s.tasks.FindAllByPlan(ctx, planID)
	if err != nil {
		return nil, apperr.Storage("task.planIndex", err)
	}
	return validate.NewIndex(all), nil
}

func (s *Service) publish(key string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(key, payload); err != nil {
		s.logger.Warn("Failed to publish event", zap.Error(err), zap.String("event", key))
	}
}

func taskEvent(t *model.Task, actorID string) mq.TaskEventPayload {
	return mq.TaskEventPayload{
		TaskID:  t.ID,
		PlanID:  t.PlanID,
		Title:   t.Title,
		Status:  t.Status,
		ActorID: actorID,
	}
}
