package validate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/validate"
)

func planTasks() []model.Task {
	return []model.Task{
		{ID: "t1", PlanID: "p1", Title: "Design", Status: model.StatusTodo},
		{ID: "t2", PlanID: "p1", Title: "Build", Status: model.StatusTodo, ParentID: "t1"},
		{ID: "t3", PlanID: "p1", Title: "Ship", Status: model.StatusDone, DependencyIDs: []string{"t2"}},
	}
}

func field(t *testing.T, err error) string {
	t.Helper()
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Field
}

func TestDates(t *testing.T) {
	require.NoError(t, validate.Dates("", ""))
	require.NoError(t, validate.Dates("2024-01-01", ""))
	require.NoError(t, validate.Dates("", "2024-01-01"))
	require.NoError(t, validate.Dates("2024-01-01", "2024-01-01"))
	require.NoError(t, validate.Dates("2024-01-01", "2024-02-01"))

	err := validate.Dates("2024-01-15", "2024-01-01")
	require.Error(t, err)
	assert.Equal(t, "due_date", field(t, err))

	err = validate.Dates("not-a-date", "2024-01-01")
	require.Error(t, err)
	assert.Equal(t, "start_date", field(t, err))
}

func TestFields(t *testing.T) {
	ok := &model.Task{Title: "Task", Status: model.StatusTodo, Priority: model.PriorityHigh, ProgressPct: 50}
	require.NoError(t, validate.Fields(ok))

	cases := []struct {
		name  string
		task  model.Task
		field string
	}{
		{"missing title", model.Task{Status: model.StatusTodo}, "title"},
		{"bad status", model.Task{Title: "x", Status: "archived"}, "status"},
		{"bad priority", model.Task{Title: "x", Status: model.StatusTodo, Priority: "asap"}, "priority"},
		{"progress too high", model.Task{Title: "x", Status: model.StatusTodo, ProgressPct: 101}, "progress_pct"},
		{"progress negative", model.Task{Title: "x", Status: model.StatusTodo, ProgressPct: -1}, "progress_pct"},
		{"negative estimate", model.Task{Title: "x", Status: model.StatusTodo, EstimateHours: -2}, "estimate_hours"},
		{"due before start", model.Task{Title: "x", Status: model.StatusTodo, StartDate: "2024-01-15", DueDate: "2024-01-01"}, "due_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Fields(&tc.task)
			require.Error(t, err)
			assert.Equal(t, tc.field, field(t, err))
		})
	}
}

func TestReferences_ParentMustExistInPlan(t *testing.T) {
	ix := validate.NewIndex(planTasks())

	ok := &model.Task{ID: "t4", Title: "Subtask", Status: model.StatusTodo, ParentID: "t1"}
	require.NoError(t, validate.References(ok, ix, nil))

	bad := &model.Task{ID: "t5", Title: "Orphan", Status: model.StatusTodo, ParentID: "elsewhere"}
	err := validate.References(bad, ix, nil)
	require.Error(t, err)
	assert.Equal(t, "parent_id", field(t, err))
	assert.Contains(t, err.Error(), "Orphan")

	self := &model.Task{ID: "t1", Title: "Design", Status: model.StatusTodo, ParentID: "t1"}
	err = validate.References(self, ix, nil)
	require.Error(t, err)
	assert.Equal(t, "parent_id", field(t, err))
}

func TestReferences_DependenciesListUnresolvedIDs(t *testing.T) {
	ix := validate.NewIndex(planTasks())

	ok := &model.Task{ID: "t4", Title: "Follow-up", Status: model.StatusTodo, DependencyIDs: []string{"t1", "t2"}}
	require.NoError(t, validate.References(ok, ix, nil))

	bad := &model.Task{ID: "t5", Title: "Blocked", Status: model.StatusTodo, DependencyIDs: []string{"t1", "ghost1", "ghost2"}}
	err := validate.References(bad, ix, nil)
	require.Error(t, err)
	assert.Equal(t, "dependency_ids", field(t, err))
	assert.Contains(t, err.Error(), "Blocked")
	assert.Contains(t, err.Error(), "ghost1")
	assert.Contains(t, err.Error(), "ghost2")
	assert.Contains(t, err.Error(), "2 unresolved")
}

func TestReferences_InBatchUnion(t *testing.T) {
	ix := validate.NewIndex(planTasks())
	inBatch := map[string]bool{"tmp-1": true}

	byTemp := &model.Task{ID: "t4", Title: "Child", Status: model.StatusTodo, ParentID: "tmp-1", DependencyIDs: []string{"tmp-1", "t1"}}
	require.NoError(t, validate.References(byTemp, ix, inBatch))
}

func TestBatch_AllOrNothing(t *testing.T) {
	ix := validate.NewIndex(planTasks())
	payloads := []*model.Task{
		{ID: "n1", Title: "First", Status: model.StatusTodo},
		{ID: "n2", Title: "Second", Status: model.StatusTodo, DependencyIDs: []string{"missing"}},
	}
	err := validate.Batch(payloads, []string{"tmp-a", "tmp-b"}, ix)
	require.Error(t, err)
	assert.Equal(t, "dependency_ids", field(t, err))
}

func TestBatch_TempIDsResolveAcrossItems(t *testing.T) {
	ix := validate.NewIndex(nil)
	payloads := []*model.Task{
		{ID: "n1", Title: "Parent", Status: model.StatusTodo},
		{ID: "n2", Title: "Child", Status: model.StatusTodo, ParentID: "tmp-a", DependencyIDs: []string{"tmp-a"}},
	}
	require.NoError(t, validate.Batch(payloads, []string{"tmp-a", "tmp-b"}, ix))
}

func TestCheckCycles(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Title: "A", Status: model.StatusTodo, ParentID: "b"},
		{ID: "b", Title: "B", Status: model.StatusTodo},
		{ID: "c", Title: "C", Status: model.StatusTodo, DependencyIDs: []string{"d"}},
		{ID: "d", Title: "D", Status: model.StatusTodo},
	}
	ix := validate.NewIndex(tasks)

	// b adopting a as parent closes a -> b -> a
	cycle := &model.Task{ID: "b", Title: "B", Status: model.StatusTodo, ParentID: "a"}
	err := validate.CheckCycles(cycle, ix)
	require.Error(t, err)
	assert.Equal(t, "parent_id", field(t, err))

	// d depending on c closes c -> d -> c
	depCycle := &model.Task{ID: "d", Title: "D", Status: model.StatusTodo, DependencyIDs: []string{"c"}}
	err = validate.CheckCycles(depCycle, ix)
	require.Error(t, err)
	assert.Equal(t, "dependency_ids", field(t, err))

	fine := &model.Task{ID: "e", Title: "E", Status: model.StatusTodo, ParentID: "a", DependencyIDs: []string{"c"}}
	require.NoError(t, validate.CheckCycles(fine, ix))
}
