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

// TaskFilter narrows FindByPlan results. Zero values mean "no constraint".
type TaskFilter struct {
	Status   string
	Priority string
	Assignee string
	Search   string // free-text over title/description/tags
}

// TaskSort describes the requested listing order. Sorting by order_index
// groups by status first so board views get disjoint per-column sequences
// in one page.
type TaskSort struct {
	Field string // order_index / due_date / priority / created_at
	Desc  bool
}

type TaskRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewTaskRepository(s *store.Store, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{coll: s.DB.Collection(store.CollTasks), logger: logger}
}

func (r *TaskRepository) observe(op string, start time.Time) {
	metrics.StorageOpDuration.WithLabelValues(store.CollTasks, op).Observe(time.Since(start).Seconds())
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	defer r.observe("insert", time.Now())
	r.logger.Debug("Inserting task",
		zap.String("plan_id", t.PlanID),
		zap.String("title", t.Title),
		zap.String("status", t.Status),
		zap.Int("order_index", t.OrderIndex),
	)
	if _, err := r.coll.InsertOne(ctx, t); err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.String("plan_id", t.PlanID),
		)
		return err
	}
	return nil
}

// InsertMany persists a validated batch in order. The write is not
// transactional: a storage failure mid-batch can leave a partial insert.
func (r *TaskRepository) InsertMany(ctx context.Context, tasks []*model.Task) error {
	defer r.observe("insert_many", time.Now())
	if len(tasks) == 0 {
		return nil
	}
	docs := make([]interface{}, len(tasks))
	for i, t := range tasks {
		docs[i] = t
	}
	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		r.logger.Error("Failed to bulk insert tasks",
			zap.Error(err),
			zap.String("plan_id", tasks[0].PlanID),
			zap.Int("count", len(tasks)),
		)
		return err
	}
	r.logger.Info("Tasks bulk inserted",
		zap.String("plan_id", tasks[0].PlanID),
		zap.Int("count", len(tasks)),
	)
	return nil
}

// FindOne loads a task by id scoped to a plan. Returns (nil, nil) when no
// document matches.
func (r *TaskRepository) FindOne(ctx context.Context, planID, id string) (*model.Task, error) {
	defer r.observe("find_one", time.Now())
	filter := bson.M{"_id": id}
	if planID != "" {
		filter["plan_id"] = planID
	}
	var t model.Task
	err := r.coll.FindOne(ctx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find task", zap.Error(err), zap.String("task_id", id))
		return nil, err
	}
	return &t, nil
}

// FindByPlan returns one page of a plan's tasks plus the unpaged total.
func (r *TaskRepository) FindByPlan(ctx context.Context, planID string, f TaskFilter, sort TaskSort, skip, limit int64) ([]model.Task, int64, error) {
	defer r.observe("find_by_plan", time.Now())
	filter := bson.M{"plan_id": planID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.Assignee != "" {
		filter["assignee_ids"] = f.Assignee
	}
	if f.Search != "" {
		filter["$text"] = bson.M{"$search": f.Search}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count tasks", zap.Error(err), zap.String("plan_id", planID))
		return nil, 0, err
	}

	opts := options.Find().SetSort(sortSpec(sort)).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err), zap.String("plan_id", planID))
		return nil, 0, err
	}
	defer cur.Close(ctx)

	tasks := []model.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		r.logger.Error("Failed to decode tasks", zap.Error(err), zap.String("plan_id", planID))
		return nil, 0, err
	}
	return tasks, total, nil
}

func sortSpec(s TaskSort) bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}
	switch s.Field {
	case "", "order_index":
		// Board contract: group by status first, then manual order.
		return bson.D{{Key: "status", Value: 1}, {Key: "order_index", Value: dir}}
	case "due_date", "priority", "created_at", "title":
		return bson.D{{Key: s.Field, Value: dir}}
	default:
		return bson.D{{Key: "created_at", Value: dir}}
	}
}

// FindAllByPlan loads the complete task set of a plan, used to build the
// validator's adjacency index and for export.
func (r *TaskRepository) FindAllByPlan(ctx context.Context, planID string) ([]model.Task, error) {
	defer r.observe("find_all_by_plan", time.Now())
	cur, err := r.coll.Find(ctx, bson.M{"plan_id": planID},
		options.Find().SetSort(bson.D{{Key: "status", Value: 1}, {Key: "order_index", Value: 1}}))
	if err != nil {
		r.logger.Error("Failed to load plan tasks", zap.Error(err), zap.String("plan_id", planID))
		return nil, err
	}
	defer cur.Close(ctx)

	tasks := []model.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// MaxOrderIndex returns the current maximum order_index in the
// (plan, status) partition, 0 when the partition is empty.
func (r *TaskRepository) MaxOrderIndex(ctx context.Context, planID, status string) (int, error) {
	defer r.observe("max_order_index", time.Now())
	opts := options.FindOne().
		SetSort(bson.D{{Key: "order_index", Value: -1}}).
		SetProjection(bson.M{"order_index": 1})
	var doc struct {
		OrderIndex int `bson:"order_index"`
	}
	err := r.coll.FindOne(ctx, bson.M{"plan_id": planID, "status": status}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		r.logger.Error("Failed to find max order_index",
			zap.Error(err),
			zap.String("plan_id", planID),
			zap.String("status", status),
		)
		return 0, err
	}
	return doc.OrderIndex, nil
}

// Update applies a partial $set to one task in the plan. Returns the number
// of matched documents.
func (r *TaskRepository) Update(ctx context.Context, planID, id string, set bson.M) (int64, error) {
	defer r.observe("update", time.Now())
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "plan_id": planID},
		bson.M{"$set": set},
	)
	if err != nil {
		r.logger.Error("Failed to update task", zap.Error(err), zap.String("task_id", id))
		return 0, err
	}
	return res.MatchedCount, nil
}

// ReorderWrite is one order_index assignment produced by the ordering
// engine.
type ReorderWrite struct {
	TaskID     string
	OrderIndex int
}

// BulkReorder writes order_index/updated_by for each assignment in one bulk
// operation. Ids outside the plan simply do not match; the matched count is
// returned.
func (r *TaskRepository) BulkReorder(ctx context.Context, planID string, writes []ReorderWrite, updatedBy string) (int64, error) {
	defer r.observe("bulk_reorder", time.Now())
	if len(writes) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, len(writes))
	for i, w := range writes {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": w.TaskID, "plan_id": planID}).
			SetUpdate(bson.M{"$set": bson.M{
				"order_index": w.OrderIndex,
				"updated_by":  updatedBy,
				"updated_at":  now,
			}})
	}
	res, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		r.logger.Error("Failed to bulk reorder tasks", zap.Error(err), zap.String("plan_id", planID))
		return 0, err
	}
	return res.MatchedCount, nil
}

// CountChildren counts tasks whose parent_id is the given task. Used by the
// delete guard.
func (r *TaskRepository) CountChildren(ctx context.Context, planID, parentID string) (int64, error) {
	defer r.observe("count_children", time.Now())
	n, err := r.coll.CountDocuments(ctx, bson.M{"plan_id": planID, "parent_id": parentID})
	if err != nil {
		r.logger.Error("Failed to count children", zap.Error(err), zap.String("task_id", parentID))
		return 0, err
	}
	return n, nil
}

func (r *TaskRepository) Delete(ctx context.Context, planID, id string) (int64, error) {
	defer r.observe("delete", time.Now())
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "plan_id": planID})
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Error(err), zap.String("task_id", id))
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByPlan removes every task of a plan (plan-delete cascade).
func (r *TaskRepository) DeleteByPlan(ctx context.Context, planID string) (int64, error) {
	defer r.observe("delete_by_plan", time.Now())
	res, err := r.coll.DeleteMany(ctx, bson.M{"plan_id": planID})
	if err != nil {
		r.logger.Error("Failed to cascade delete tasks", zap.Error(err), zap.String("plan_id", planID))
		return 0, err
	}
	r.logger.Info("Plan tasks deleted",
		zap.String("plan_id", planID),
		zap.Int64("count", res.DeletedCount),
	)
	return res.DeletedCount, nil
}
