// Package validate checks task payloads against the cross-field rules and
// the referential integrity of a plan's task set: parent_id and every
// dependency_ids entry must resolve to a task in the same plan, or to
// another item of the same uncommitted batch.
package validate

import (
	"strings"
	"time"

	"planboard/internal/apperr"
	"planboard/internal/model"
)

const dateLayout = "2006-01-02"

// Index is an adjacency view over one plan's task set, built once per
// validation call so reference checks stay linear on large plans.
type Index struct {
	byID     map[string]*model.Task
	children map[string][]string
}

// NewIndex builds the index from a plan's tasks.
func NewIndex(tasks []model.Task) *Index {
	ix := &Index{
		byID:     make(map[string]*model.Task, len(tasks)),
		children: make(map[string][]string),
	}
	for i := range tasks {
		t := &tasks[i]
		ix.byID[t.ID] = t
		if t.ParentID != "" {
			ix.children[t.ParentID] = append(ix.children[t.ParentID], t.ID)
		}
	}
	return ix
}

// Has reports whether a task id exists in the plan.
func (ix *Index) Has(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

// Get returns the indexed task.
func (ix *Index) Get(id string) (*model.Task, bool) {
	t, ok := ix.byID[id]
	return t, ok
}

// Children returns the ids of tasks whose parent is id.
func (ix *Index) Children(id string) []string {
	return ix.children[id]
}

// Fields checks the payload's own fields: title, enums, ranges, dates.
func Fields(t *model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return apperr.Validation("title", "title is required")
	}
	if !model.ValidStatus(t.Status) {
		return apperr.Validation("status", "invalid status %q", t.Status)
	}
	if !model.ValidPriority(t.Priority) {
		return apperr.Validation("priority", "invalid priority %q", t.Priority)
	}
	if t.ProgressPct < 0 || t.ProgressPct > 100 {
		return apperr.Validation("progress_pct", "must be between 0 and 100, got %d", t.ProgressPct)
	}
	if t.EstimateHours < 0 {
		return apperr.Validation("estimate_hours", "must not be negative")
	}
	return Dates(t.StartDate, t.DueDate)
}

// Dates enforces due_date >= start_date when both are present, and that
// either parses as an ISO date when set.
func Dates(startDate, dueDate string) error {
	var start, due time.Time
	var err error
	if startDate != "" {
		if start, err = time.Parse(dateLayout, startDate); err != nil {
			return apperr.Validation("start_date", "invalid date %q, expected YYYY-MM-DD", startDate)
		}
	}
	if dueDate != "" {
		if due, err = time.Parse(dateLayout, dueDate); err != nil {
			return apperr.Validation("due_date", "invalid date %q, expected YYYY-MM-DD", dueDate)
		}
	}
	if startDate != "" && dueDate != "" && due.Before(start) {
		return apperr.Validation("due_date", "due_date %s is before start_date %s", dueDate, startDate)
	}
	return nil
}

// References checks parent_id and dependency_ids against the plan index
// unioned with inBatch, the temporary ids of an uncommitted batch (nil
// outside bulk creation). A task never references itself.
func References(t *model.Task, ix *Index, inBatch map[string]bool) error {
	if t.ParentID != "" {
		if t.ParentID == t.ID {
			return apperr.Validation("parent_id", "task %q cannot be its own parent", t.Title)
		}
		if !ix.Has(t.ParentID) && !inBatch[t.ParentID] {
			return apperr.Validation("parent_id", "task %q references unknown parent %s", t.Title, t.ParentID)
		}
	}

	if len(t.DependencyIDs) == 0 {
		return nil
	}
	var unresolved []string
	for _, dep := range t.DependencyIDs {
		if dep == t.ID {
			return apperr.Validation("dependency_ids", "task %q cannot depend on itself", t.Title)
		}
		if !ix.Has(dep) && !inBatch[dep] {
			unresolved = append(unresolved, dep)
		}
	}
	if len(unresolved) > 0 {
		return apperr.Validation("dependency_ids",
			"task %q has %d unresolved dependencies: %s",
			t.Title, len(unresolved), strings.Join(unresolved, ", "))
	}
	return nil
}

// Batch validates a bulk-creation batch: every payload's fields plus
// references resolved against persisted tasks unioned with the other items
// of the batch, keyed by their client-supplied temporary ids. The first
// failure rejects the whole batch.
func Batch(payloads []*model.Task, tempIDs []string, ix *Index) error {
	inBatch := make(map[string]bool, len(tempIDs))
	for _, id := range tempIDs {
		if id != "" {
			inBatch[id] = true
		}
	}
	for _, t := range payloads {
		if err := Fields(t); err != nil {
			return err
		}
		if err := References(t, ix, inBatch); err != nil {
			return err
		}
	}
	return nil
}
