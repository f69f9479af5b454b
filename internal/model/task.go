package model

import "time"

// Task statuses. A board column is the set of tasks in one plan sharing a status.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Task is a unit of work belonging to exactly one plan. ParentID and
// DependencyIDs reference other tasks in the same plan. OrderIndex is the
// manual ordering within a (plan_id, status) partition; it is advisory and
// repaired by the reorder operation, not kept unique at all times.
type Task struct {
	ID            string    `bson:"_id" json:"id"`
	PlanID        string    `bson:"plan_id" json:"plan_id"`
	Title         string    `bson:"title" json:"title"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	Goal          string    `bson:"goal,omitempty" json:"goal,omitempty"`
	Notes         string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Deliverables  string    `bson:"deliverables,omitempty" json:"deliverables,omitempty"`
	Status        string    `bson:"status" json:"status"` // todo / in_progress / done
	Priority      string    `bson:"priority,omitempty" json:"priority,omitempty"`
	AssigneeIDs   []string  `bson:"assignee_ids" json:"assignee_ids"`
	StartDate     string    `bson:"start_date,omitempty" json:"start_date,omitempty"` // ISO date, e.g. 2024-01-15
	DueDate       string    `bson:"due_date,omitempty" json:"due_date,omitempty"`
	ProgressPct   int       `bson:"progress_pct" json:"progress_pct"`
	ParentID      string    `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	DependencyIDs []string  `bson:"dependency_ids" json:"dependency_ids"`
	Tags          []string  `bson:"tags" json:"tags"`
	EstimateHours float64   `bson:"estimate_hours,omitempty" json:"estimate_hours,omitempty"`
	OrderIndex    int       `bson:"order_index" json:"order_index"`
	CreatedBy     string    `bson:"created_by" json:"created_by"`
	UpdatedBy     string    `bson:"updated_by" json:"updated_by"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// ValidStatus reports whether s is one of the three task statuses.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// ValidPriority reports whether p is a known priority. Empty is allowed
// (priority is optional).
func ValidPriority(p string) bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
