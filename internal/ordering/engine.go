// Package ordering maintains the caller-controlled manual order of tasks
// within a (plan, status) partition.
package ordering

import (
	"context"

	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/repository"
)

// Store is the slice of the task repository the engine needs.
type Store interface {
	MaxOrderIndex(ctx context.Context, planID, status string) (int, error)
	BulkReorder(ctx context.Context, planID string, writes []repository.ReorderWrite, updatedBy string) (int64, error)
}

// Engine assigns and recomputes order_index values. order_index is advisory:
// two concurrent creates can race on max+1 and produce duplicates, which a
// follow-up reorder repairs. Status changes do not renumber either partition;
// the caller issues a reorder after moving a task across columns.
type Engine struct {
	store  Store
	logger *zap.Logger
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// NextIndex returns the order_index to assign to a task created without an
// explicit one: current partition maximum + 1, or 1 for an empty partition.
func (e *Engine) NextIndex(ctx context.Context, planID, status string) (int, error) {
	max, err := e.store.MaxOrderIndex(ctx, planID, status)
	if err != nil {
		return 0, apperr.Storage("ordering.NextIndex", err)
	}
	return max + 1, nil
}

// Reorder sets each task's order_index to its 1-based position in taskIDs
// and stamps updated_by. Ids that do not belong to the plan are silently
// skipped; the returned count is the number of tasks actually updated.
func (e *Engine) Reorder(ctx context.Context, planID string, taskIDs []string, actorID string) (int64, error) {
	writes := Assignments(taskIDs)
	updated, err := e.store.BulkReorder(ctx, planID, writes, actorID)
	if err != nil {
		return 0, apperr.Storage("ordering.Reorder", err)
	}
	if updated < int64(len(writes)) {
		e.logger.Warn("Reorder skipped ids not in plan",
			zap.String("plan_id", planID),
			zap.Int("requested", len(writes)),
			zap.Int64("updated", updated),
		)
	}
	return updated, nil
}

// Assignments maps an ordered id list to 1-based order_index writes.
// Duplicate ids keep their last position.
func Assignments(taskIDs []string) []repository.ReorderWrite {
	writes := make([]repository.ReorderWrite, 0, len(taskIDs))
	seen := make(map[string]int, len(taskIDs))
	for i, id := range taskIDs {
		if id == "" {
			continue
		}
		if at, dup := seen[id]; dup {
			writes[at].OrderIndex = i + 1
			continue
		}
		seen[id] = len(writes)
		writes = append(writes, repository.ReorderWrite{TaskID: id, OrderIndex: i + 1})
	}
	return writes
}
