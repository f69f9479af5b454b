package mq

// Routing keys for domain events.
const (
	EventTaskCreated  = "task.created"
	EventTaskUpdated  = "task.updated"
	EventTaskDeleted  = "task.deleted"
	EventTasksReorder = "tasks.reordered"
	EventPlanImported = "plan.imported"
)

type TaskEventPayload struct {
	TaskID  string `json:"task_id"`
	PlanID  string `json:"plan_id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	ActorID string `json:"actor_id"`
}

type TasksReorderedPayload struct {
	PlanID  string `json:"plan_id"`
	Updated int64  `json:"updated"`
	ActorID string `json:"actor_id"`
}

type PlanImportedPayload struct {
	PlanID    string `json:"plan_id"`
	Name      string `json:"name"`
	TaskCount int    `json:"task_count"`
	ActorID   string `json:"actor_id"`
}
