package model

import "time"

// SnapshotVersion tags the export document format.
const SnapshotVersion = "1.0"

// Snapshot is the portable export of one plan. Member and assignee
// references are denormalized to name/email so the document can be imported
// into another database instance; task ids are kept so import can remap
// parent and dependency references onto the newly created tasks.
type Snapshot struct {
	Plan     SnapshotPlan     `json:"plan"`
	Tasks    []SnapshotTask   `json:"tasks"`
	Metadata SnapshotMetadata `json:"export_metadata"`
}

type SnapshotPlan struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Members     []SnapshotMember `json:"members"`
}

type SnapshotMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type SnapshotTask struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Goal          string    `json:"goal,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Deliverables  string    `json:"deliverables,omitempty"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority,omitempty"`
	Assignees     []UserRef `json:"assignees"`
	StartDate     string    `json:"start_date,omitempty"`
	DueDate       string    `json:"due_date,omitempty"`
	ProgressPct   int       `json:"progress_pct"`
	ParentID      string    `json:"parent_id,omitempty"`
	DependencyIDs []string  `json:"dependency_ids,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	EstimateHours float64   `json:"estimate_hours,omitempty"`
	OrderIndex    int       `json:"order_index"`
}

type SnapshotMetadata struct {
	ExportedAt time.Time `json:"exported_at"`
	ExportedBy string    `json:"exported_by"`
	Version    string    `json:"version"`
}
