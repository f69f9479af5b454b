package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/service/plan"
	"planboard/internal/testutil"
)

const owner = "user-owner"

type env struct {
	plans *testutil.FakePlanStore
	tasks *testutil.FakeTaskStore
	users *testutil.FakeUserStore
	gate  *testutil.FakeGate
	pub   *testutil.FakePublisher
	svc   *plan.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		plans: testutil.NewFakePlanStore(),
		tasks: testutil.NewFakeTaskStore(),
		users: testutil.NewFakeUserStore(
			&model.User{ID: owner, Name: "Owner", Email: "owner@example.com"},
			&model.User{ID: "user-bob", Name: "Bob", Email: "bob@example.com"},
		),
		gate: &testutil.FakeGate{Role: model.RoleOwner},
		pub:  &testutil.FakePublisher{},
	}
	e.svc = plan.NewService(e.plans, e.tasks, e.users, e.gate, e.pub, zap.NewNop())
	return e
}

func (e *env) createPlan(t *testing.T) *model.Plan {
	t.Helper()
	p, err := e.svc.Create(context.Background(), "Roadmap", "H1 goals", owner)
	require.NoError(t, err)
	return p
}

func TestCreate_ActorBecomesOwner(t *testing.T) {
	e := newEnv(t)
	p := e.createPlan(t)
	assert.Equal(t, owner, p.OwnerID)
	assert.Empty(t, p.Members)

	_, err := e.svc.Create(context.Background(), "  ", "", owner)
	require.True(t, apperr.IsValidation(err))
}

func TestAddMember_Conflicts(t *testing.T) {
	e := newEnv(t)
	p := e.createPlan(t)

	_, err := e.svc.AddMember(context.Background(), p.ID, "owner@example.com", model.RoleEditor, owner)
	require.True(t, apperr.IsConflict(err), "owner must never be duplicated in members")

	_, err = e.svc.AddMember(context.Background(), p.ID, "bob@example.com", model.RoleEditor, owner)
	require.NoError(t, err)

	_, err = e.svc.AddMember(context.Background(), p.ID, "bob@example.com", model.RoleViewer, owner)
	require.True(t, apperr.IsConflict(err), "member-already-exists")

	_, err = e.svc.AddMember(context.Background(), p.ID, "nobody@example.com", model.RoleViewer, owner)
	require.True(t, apperr.IsNotFound(err))
}

func TestMemberRoleAndRemoval(t *testing.T) {
	e := newEnv(t)
	p := e.createPlan(t)
	_, err := e.svc.AddMember(context.Background(), p.ID, "bob@example.com", model.RoleViewer, owner)
	require.NoError(t, err)

	updated, err := e.svc.UpdateMemberRole(context.Background(), p.ID, "user-bob", model.RoleEditor, owner)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEditor, updated.Members[0].Role)

	_, err = e.svc.UpdateMemberRole(context.Background(), p.ID, "ghost", model.RoleEditor, owner)
	require.True(t, apperr.IsNotFound(err))

	removed, err := e.svc.RemoveMember(context.Background(), p.ID, "user-bob", owner)
	require.NoError(t, err)
	assert.Empty(t, removed.Members)
}

func TestDelete_CascadesTasks(t *testing.T) {
	e := newEnv(t)
	p := e.createPlan(t)
	_ = e.tasks.Insert(context.Background(), &model.Task{ID: "t1", PlanID: p.ID, Title: "T1", Status: model.StatusTodo})
	_ = e.tasks.Insert(context.Background(), &model.Task{ID: "t2", PlanID: "other", Title: "T2", Status: model.StatusTodo})

	require.NoError(t, e.svc.Delete(context.Background(), p.ID, owner))
	assert.NotContains(t, e.tasks.Tasks, "t1")
	assert.Contains(t, e.tasks.Tasks, "t2", "tasks of other plans are untouched")
	assert.NotContains(t, e.plans.Plans, p.ID)
}

func seedExportPlan(t *testing.T, e *env) *model.Plan {
	t.Helper()
	p := e.createPlan(t)
	_, err := e.svc.AddMember(context.Background(), p.ID, "bob@example.com", model.RoleEditor, owner)
	require.NoError(t, err)

	tasks := []*model.Task{
		{ID: "s1", PlanID: p.ID, Title: "Design", Status: model.StatusTodo, OrderIndex: 1,
			AssigneeIDs: []string{"user-bob"}, Tags: []string{"ui"}, Priority: model.PriorityHigh},
		{ID: "s2", PlanID: p.ID, Title: "Build", Status: model.StatusTodo, OrderIndex: 2,
			ParentID: "s1", DependencyIDs: []string{"s1"}},
		{ID: "s3", PlanID: p.ID, Title: "Ship", Status: model.StatusDone, OrderIndex: 1,
			DependencyIDs: []string{"s2"}},
	}
	for _, tk := range tasks {
		require.NoError(t, e.tasks.Insert(context.Background(), tk))
	}
	return p
}

func TestExport_Denormalizes(t *testing.T) {
	e := newEnv(t)
	p := seedExportPlan(t, e)

	snap, err := e.svc.Export(context.Background(), p.ID, owner)
	require.NoError(t, err)

	assert.Equal(t, "1.0", snap.Metadata.Version)
	assert.Equal(t, owner, snap.Metadata.ExportedBy)
	assert.Equal(t, "Roadmap", snap.Plan.Name)

	// owner plus one member, email-keyed
	require.Len(t, snap.Plan.Members, 2)
	assert.Equal(t, model.SnapshotMember{Name: "Owner", Email: "owner@example.com", Role: model.RoleOwner}, snap.Plan.Members[0])
	assert.Equal(t, model.SnapshotMember{Name: "Bob", Email: "bob@example.com", Role: model.RoleEditor}, snap.Plan.Members[1])

	require.Len(t, snap.Tasks, 3)
	var design *model.SnapshotTask
	for i := range snap.Tasks {
		if snap.Tasks[i].Title == "Design" {
			design = &snap.Tasks[i]
		}
	}
	require.NotNil(t, design)
	require.Len(t, design.Assignees, 1)
	assert.Equal(t, "bob@example.com", design.Assignees[0].Email)
	assert.Empty(t, design.Assignees[0].ID, "snapshot carries emails, not ids")
}

func TestImport_RoundTrip(t *testing.T) {
	e := newEnv(t)
	p := seedExportPlan(t, e)

	snap, err := e.svc.Export(context.Background(), p.ID, owner)
	require.NoError(t, err)

	// import into the same instance as a different, fresh user
	importer := &model.User{ID: "user-carol", Name: "Carol", Email: "carol@example.com"}
	require.NoError(t, e.users.Insert(context.Background(), importer))

	imported, err := e.svc.Import(context.Background(), snap, importer.ID)
	require.NoError(t, err)

	assert.Equal(t, snap.Plan.Name, imported.Name)
	assert.Equal(t, importer.ID, imported.OwnerID)
	assert.Len(t, imported.Members, len(snap.Plan.Members), "member count preserved")

	got, err := e.tasks.FindAllByPlan(context.Background(), imported.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byTitle := map[string]model.Task{}
	perStatus := map[string]int{}
	for _, tk := range got {
		byTitle[tk.Title] = tk
		perStatus[tk.Status]++
	}
	assert.Equal(t, map[string]int{model.StatusTodo: 2, model.StatusDone: 1}, perStatus)
	assert.Equal(t, model.PriorityHigh, byTitle["Design"].Priority)
	assert.Equal(t, []string{"ui"}, byTitle["Design"].Tags)

	// references remapped onto the new ids, never the export ids
	build := byTitle["Build"]
	design := byTitle["Design"]
	assert.NotEqual(t, "s1", design.ID)
	assert.Equal(t, design.ID, build.ParentID)
	assert.Equal(t, []string{design.ID}, build.DependencyIDs)
	assert.Equal(t, []string{build.ID}, byTitle["Ship"].DependencyIDs)

	// order preserved
	assert.Equal(t, 1, design.OrderIndex)
	assert.Equal(t, 2, build.OrderIndex)

	// existing users matched by email, not recreated
	require.Len(t, design.AssigneeIDs, 1)
	assert.Equal(t, "user-bob", design.AssigneeIDs[0])
}

func TestImport_CreatesPlaceholders(t *testing.T) {
	e := newEnv(t)
	snap := &model.Snapshot{
		Plan: model.SnapshotPlan{
			Name: "External",
			Members: []model.SnapshotMember{
				{Name: "Stranger", Email: "stranger@example.com", Role: model.RoleViewer},
			},
		},
		Tasks: []model.SnapshotTask{
			{ID: "x1", Title: "Only task", Status: model.StatusTodo,
				Assignees: []model.UserRef{{Name: "Stranger", Email: "stranger@example.com"}}},
		},
		Metadata: model.SnapshotMetadata{Version: model.SnapshotVersion},
	}

	imported, err := e.svc.Import(context.Background(), snap, owner)
	require.NoError(t, err)

	stranger, err := e.users.FindByEmail(context.Background(), "stranger@example.com")
	require.NoError(t, err)
	require.NotNil(t, stranger)
	assert.True(t, stranger.Placeholder)
	assert.Equal(t, model.PlaceholderPasswordHash, stranger.PasswordHash)

	require.Len(t, imported.Members, 1)
	assert.Equal(t, stranger.ID, imported.Members[0].UserID)

	got, err := e.tasks.FindAllByPlan(context.Background(), imported.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{stranger.ID}, got[0].AssigneeIDs)
	assert.Equal(t, 1, got[0].OrderIndex, "missing order_index defaults to batch position")
}

func TestImport_RejectsUnknownVersion(t *testing.T) {
	e := newEnv(t)
	snap := &model.Snapshot{
		Plan:     model.SnapshotPlan{Name: "X"},
		Metadata: model.SnapshotMetadata{Version: "2.0"},
	}
	_, err := e.svc.Import(context.Background(), snap, owner)
	require.True(t, apperr.IsValidation(err))
}
