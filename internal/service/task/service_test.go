package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/ordering"
	"planboard/internal/service/task"
	"planboard/internal/testutil"
)

const (
	planID = "plan-1"
	actor  = "user-1"
)

type env struct {
	store *testutil.FakeTaskStore
	users *testutil.FakeUserStore
	gate  *testutil.FakeGate
	pub   *testutil.FakePublisher
	svc   *task.Service
}

func newEnv(t *testing.T, opts ...task.Option) *env {
	t.Helper()
	store := testutil.NewFakeTaskStore()
	users := testutil.NewFakeUserStore(&model.User{ID: actor, Name: "Alice", Email: "alice@example.com"})
	gate := &testutil.FakeGate{Role: model.RoleEditor}
	pub := &testutil.FakePublisher{}
	engine := ordering.NewEngine(store, zap.NewNop())
	svc := task.NewService(store, users, gate, engine, pub, zap.NewNop(), opts...)
	return &env{store: store, users: users, gate: gate, pub: pub, svc: svc}
}

func (e *env) seed(id, status string, orderIndex int, mutate ...func(*model.Task)) *model.Task {
	t := &model.Task{
		ID:            id,
		PlanID:        planID,
		Title:         "task " + id,
		Status:        status,
		AssigneeIDs:   []string{},
		DependencyIDs: []string{},
		Tags:          []string{},
		OrderIndex:    orderIndex,
		CreatedBy:     actor,
		UpdatedBy:     actor,
	}
	for _, m := range mutate {
		m(t)
	}
	_ = e.store.Insert(context.Background(), t)
	return t
}

func TestCreate_AssignsNextOrderIndex(t *testing.T) {
	e := newEnv(t)
	e.seed("a", model.StatusTodo, 1)
	e.seed("b", model.StatusTodo, 2)

	view, err := e.svc.Create(context.Background(), planID, task.CreateInput{Title: "C"}, actor)
	require.NoError(t, err)
	assert.Equal(t, 3, view.OrderIndex)
	assert.Equal(t, model.StatusTodo, view.Status)
	assert.Equal(t, actor, view.CreatedBy)
	assert.Equal(t, actor, view.UpdatedBy)
	require.NotNil(t, view.Creator)
	assert.Equal(t, "alice@example.com", view.Creator.Email)
	assert.Equal(t, []string{"task.created"}, e.pub.Keys())
}

func TestCreate_ExplicitOrderIndexKept(t *testing.T) {
	e := newEnv(t)
	e.seed("a", model.StatusTodo, 1)

	idx := 10
	view, err := e.svc.Create(context.Background(), planID, task.CreateInput{Title: "C", OrderIndex: &idx}, actor)
	require.NoError(t, err)
	assert.Equal(t, 10, view.OrderIndex)
}

func TestCreate_RejectsDueBeforeStart(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Create(context.Background(), planID, task.CreateInput{
		Title:     "C",
		StartDate: "2024-01-15",
		DueDate:   "2024-01-01",
	}, actor)
	require.Error(t, err)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "due_date", ve.Field)
	assert.Empty(t, e.store.Tasks)
}

func TestCreate_RejectsUnknownParentAndDependency(t *testing.T) {
	e := newEnv(t)
	e.seed("a", model.StatusTodo, 1)

	_, err := e.svc.Create(context.Background(), planID, task.CreateInput{Title: "C", ParentID: "ghost"}, actor)
	require.True(t, apperr.IsValidation(err))

	_, err = e.svc.Create(context.Background(), planID, task.CreateInput{Title: "C", DependencyIDs: []string{"a", "ghost"}}, actor)
	require.True(t, apperr.IsValidation(err))

	_, err = e.svc.Create(context.Background(), planID, task.CreateInput{Title: "C", ParentID: "a", DependencyIDs: []string{"a"}}, actor)
	require.NoError(t, err)
}

func TestCreate_ViewerDenied(t *testing.T) {
	e := newEnv(t)
	e.gate.Role = model.RoleViewer

	_, err := e.svc.Create(context.Background(), planID, task.CreateInput{Title: "C"}, actor)
	require.True(t, apperr.IsAccess(err))
}

func TestUpdate_NotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Update(context.Background(), planID, "missing", task.UpdateInput{}, actor)
	require.True(t, apperr.IsNotFound(err))
}

func TestUpdate_PartialMerge(t *testing.T) {
	e := newEnv(t)
	e.seed("a", model.StatusTodo, 1, func(tk *model.Task) {
		tk.Description = "keep me"
		tk.Priority = model.PriorityLow
	})

	title := "Renamed"
	status := model.StatusInProgress
	view, err := e.svc.Update(context.Background(), planID, "a", task.UpdateInput{
		Title:  &title,
		Status: &status,
	}, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", view.Title)
	assert.Equal(t, model.StatusInProgress, view.Status)
	assert.Equal(t, "keep me", view.Description)
	assert.Equal(t, model.PriorityLow, view.Priority)
	assert.Equal(t, "user-2", view.UpdatedBy)
	assert.Equal(t, actor, view.CreatedBy)

	// status change alone does not renumber the partition
	assert.Equal(t, 1, e.store.Tasks["a"].OrderIndex)
}

func TestUpdate_RevalidatesChangedReferences(t *testing.T) {
	e := newEnv(t)
	e.seed("a", model.StatusTodo, 1)
	e.seed("b", model.StatusTodo, 2)

	ghost := "ghost"
	_, err := e.svc.Update(context.Background(), planID, "b", task.UpdateInput{ParentID: &ghost}, actor)
	require.True(t, apperr.IsValidation(err))

	parent := "a"
	_, err = e.svc.Update(context.Background(), planID, "b", task.UpdateInput{ParentID: &parent}, actor)
	require.NoError(t, err)

	// clearing a reference needs no lookup
	empty := ""
	_, err = e.svc.Update(context.Background(), planID, "b", task.UpdateInput{ParentID: &empty}, actor)
	require.NoError(t, err)
}

func TestDelete_BlockedByChildren(t *testing.T) {
	e := newEnv(t)
	e.seed("a", model.StatusTodo, 1)
	e.seed("b", model.StatusTodo, 2, func(tk *model.Task) { tk.ParentID = "a" })

	err := e.svc.Delete(context.Background(), planID, "a", actor)
	require.True(t, apperr.IsConflict(err))
	assert.Contains(t, e.store.Tasks, "a")

	// clear the child reference, then deletion succeeds
	empty := ""
	_, err = e.svc.Update(context.Background(), planID, "b", task.UpdateInput{ParentID: &empty}, actor)
	require.NoError(t, err)
	require.NoError(t, e.svc.Delete(context.Background(), planID, "a", actor))
	assert.NotContains(t, e.store.Tasks, "a")
}

func TestBulkCreate_AllOrNothing(t *testing.T) {
	e := newEnv(t)
	items := []task.BulkItem{
		{TempID: "tmp-1", CreateInput: task.CreateInput{Title: "First"}},
		{TempID: "tmp-2", CreateInput: task.CreateInput{Title: "Second", DependencyIDs: []string{"nope"}}},
	}
	_, err := e.svc.BulkCreate(context.Background(), planID, items, actor)
	require.True(t, apperr.IsValidation(err))
	assert.Empty(t, e.store.Tasks, "no task from a rejected batch may be persisted")
}

func TestBulkCreate_RemapsTempIDs(t *testing.T) {
	e := newEnv(t)
	e.seed("existing", model.StatusTodo, 1)

	items := []task.BulkItem{
		{TempID: "tmp-parent", CreateInput: task.CreateInput{Title: "Parent"}},
		{TempID: "tmp-child", CreateInput: task.CreateInput{
			Title:         "Child",
			ParentID:      "tmp-parent",
			DependencyIDs: []string{"tmp-parent", "existing"},
		}},
	}
	views, err := e.svc.BulkCreate(context.Background(), planID, items, actor)
	require.NoError(t, err)
	require.Len(t, views, 2)

	parent, child := views[0], views[1]
	assert.Equal(t, parent.ID, child.ParentID, "temp parent reference must point at the generated id")
	assert.ElementsMatch(t, []string{parent.ID, "existing"}, child.DependencyIDs)
	assert.NotEqual(t, "tmp-parent", parent.ID)

	// order indexes continue after the existing partition maximum
	assert.Equal(t, 2, parent.OrderIndex)
	assert.Equal(t, 3, child.OrderIndex)
}

func TestReorder_Scenario(t *testing.T) {
	// Plan has A(todo,1), B(todo,2); Create C -> 3; Reorder([C,A,B]) -> C=1 A=2 B=3.
	e := newEnv(t)
	e.seed("A", model.StatusTodo, 1)
	e.seed("B", model.StatusTodo, 2)

	view, err := e.svc.Create(context.Background(), planID, task.CreateInput{Title: "C"}, actor)
	require.NoError(t, err)
	require.Equal(t, 3, view.OrderIndex)

	updated, err := e.svc.Reorder(context.Background(), planID, []string{view.ID, "A", "B"}, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)
	assert.Equal(t, 1, e.store.Tasks[view.ID].OrderIndex)
	assert.Equal(t, 2, e.store.Tasks["A"].OrderIndex)
	assert.Equal(t, 3, e.store.Tasks["B"].OrderIndex)
	assert.Contains(t, e.pub.Keys(), "tasks.reordered")
}

func TestReorder_ReturnsMatchedCountOnly(t *testing.T) {
	e := newEnv(t)
	e.seed("A", model.StatusTodo, 1)

	updated, err := e.svc.Reorder(context.Background(), planID, []string{"A", "not-here"}, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestList_Pagination(t *testing.T) {
	e := newEnv(t)
	for i := 1; i <= 5; i++ {
		e.seed(string(rune('a'+i-1)), model.StatusTodo, i)
	}

	views, meta, err := e.svc.List(context.Background(), planID, task.ListOptions{Page: 2, Limit: 2}, actor)
	require.NoError(t, err)
	assert.Len(t, views, 2)
	assert.Equal(t, task.PageMeta{Page: 2, Limit: 2, Total: 5, Pages: 3}, meta)
}

func TestCreate_CycleCheckOptIn(t *testing.T) {
	e := newEnv(t, task.WithCycleCheck())
	e.seed("a", model.StatusTodo, 1, func(tk *model.Task) { tk.DependencyIDs = []string{"b"} })
	e.seed("b", model.StatusTodo, 2)

	// without the option this edge is accepted; with it the cycle is rejected
	_, err := e.svc.Update(context.Background(), planID, "b", task.UpdateInput{DependencyIDs: &[]string{"a"}}, actor)
	require.True(t, apperr.IsValidation(err))
}
