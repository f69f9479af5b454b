// Package testutil provides in-memory doubles for the storage interfaces so
// service logic can be tested without a database.
package testutil

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/repository"
)

// FakeTaskStore keeps tasks in a map and mimics the repository's matching
// semantics, including the silent skip of reorder ids outside the plan.
type FakeTaskStore struct {
	mu    sync.Mutex
	Tasks map[string]*model.Task

	FailNextInsert error // returned by the next Insert/InsertMany, then cleared
}

func NewFakeTaskStore() *FakeTaskStore {
	return &FakeTaskStore{Tasks: map[string]*model.Task{}}
}

func (f *FakeTaskStore) Insert(ctx context.Context, t *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailNextInsert; err != nil {
		f.FailNextInsert = nil
		return err
	}
	cp := *t
	f.Tasks[t.ID] = &cp
	return nil
}

func (f *FakeTaskStore) InsertMany(ctx context.Context, tasks []*model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailNextInsert; err != nil {
		f.FailNextInsert = nil
		return err
	}
	for _, t := range tasks {
		cp := *t
		f.Tasks[t.ID] = &cp
	}
	return nil
}

func (f *FakeTaskStore) FindOne(ctx context.Context, planID, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[id]
	if !ok || (planID != "" && t.PlanID != planID) {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *FakeTaskStore) FindByPlan(ctx context.Context, planID string, filter repository.TaskFilter, s repository.TaskSort, skip, limit int64) ([]model.Task, int64, error) {
	all, _ := f.FindAllByPlan(ctx, planID)
	matched := all[:0]
	for _, t := range all {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		matched = append(matched, t)
	}
	total := int64(len(matched))
	if skip >= total {
		return []model.Task{}, total, nil
	}
	matched = matched[skip:]
	if limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *FakeTaskStore) FindAllByPlan(ctx context.Context, planID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Task{}
	for _, t := range f.Tasks {
		if t.PlanID == planID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out, nil
}

func (f *FakeTaskStore) MaxOrderIndex(ctx context.Context, planID, status string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, t := range f.Tasks {
		if t.PlanID == planID && t.Status == status && t.OrderIndex > max {
			max = t.OrderIndex
		}
	}
	return max, nil
}

func (f *FakeTaskStore) Update(ctx context.Context, planID, id string, set bson.M) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[id]
	if !ok || t.PlanID != planID {
		return 0, nil
	}
	raw, err := bson.Marshal(set)
	if err != nil {
		return 0, err
	}
	if err := bson.Unmarshal(raw, t); err != nil {
		return 0, err
	}
	return 1, nil
}

func (f *FakeTaskStore) BulkReorder(ctx context.Context, planID string, writes []repository.ReorderWrite, updatedBy string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched int64
	for _, w := range writes {
		t, ok := f.Tasks[w.TaskID]
		if !ok || t.PlanID != planID {
			continue
		}
		t.OrderIndex = w.OrderIndex
		t.UpdatedBy = updatedBy
		matched++
	}
	return matched, nil
}

func (f *FakeTaskStore) CountChildren(ctx context.Context, planID, parentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.Tasks {
		if t.PlanID == planID && t.ParentID == parentID {
			n++
		}
	}
	return n, nil
}

func (f *FakeTaskStore) Delete(ctx context.Context, planID, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[id]
	if !ok || t.PlanID != planID {
		return 0, nil
	}
	delete(f.Tasks, id)
	return 1, nil
}

func (f *FakeTaskStore) DeleteByPlan(ctx context.Context, planID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.Tasks {
		if t.PlanID == planID {
			delete(f.Tasks, id)
			n++
		}
	}
	return n, nil
}

// FakePlanStore keeps plans in a map.
type FakePlanStore struct {
	mu    sync.Mutex
	Plans map[string]*model.Plan
}

func NewFakePlanStore() *FakePlanStore {
	return &FakePlanStore{Plans: map[string]*model.Plan{}}
}

func (f *FakePlanStore) Insert(ctx context.Context, p *model.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.Plans[p.ID] = &cp
	return nil
}

func (f *FakePlanStore) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Plans[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Members = append([]model.Member{}, p.Members...)
	return &cp, nil
}

func (f *FakePlanStore) FindForUser(ctx context.Context, userID string) ([]model.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Plan{}
	for _, p := range f.Plans {
		if p.RoleOf(userID) != "" {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *FakePlanStore) Update(ctx context.Context, id string, set bson.M) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Plans[id]
	if !ok {
		return 0, nil
	}
	raw, err := bson.Marshal(set)
	if err != nil {
		return 0, err
	}
	if err := bson.Unmarshal(raw, p); err != nil {
		return 0, err
	}
	return 1, nil
}

func (f *FakePlanStore) ReplaceMembers(ctx context.Context, id string, members []model.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Plans[id]
	if !ok {
		return nil
	}
	p.Members = append([]model.Member{}, members...)
	return nil
}

func (f *FakePlanStore) Delete(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Plans[id]; !ok {
		return 0, nil
	}
	delete(f.Plans, id)
	return 1, nil
}

// FakeUserStore keeps users in a map keyed by id.
type FakeUserStore struct {
	mu    sync.Mutex
	Users map[string]*model.User
}

func NewFakeUserStore(users ...*model.User) *FakeUserStore {
	f := &FakeUserStore{Users: map[string]*model.User{}}
	for _, u := range users {
		cp := *u
		f.Users[u.ID] = &cp
	}
	return f
}

func (f *FakeUserStore) Insert(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.Users[u.ID] = &cp
	return nil
}

func (f *FakeUserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *FakeUserStore) FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]model.User{}
	for _, id := range ids {
		if u, ok := f.Users[id]; ok {
			out[id] = *u
		}
	}
	return out, nil
}

func (f *FakeUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *FakeUserStore) Update(ctx context.Context, id string, set bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[id]
	if !ok {
		return nil
	}
	raw, err := bson.Marshal(set)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, u)
}

// FakeGate grants one fixed role to every actor.
type FakeGate struct {
	Role string
}

func (g *FakeGate) Require(ctx context.Context, actorID, planID, min string) error {
	if g.Role == "" || !model.RoleAtLeast(g.Role, min) {
		return apperr.Access(min)
	}
	return nil
}

func (g *FakeGate) ResolveRole(ctx context.Context, actorID, planID string) (string, error) {
	return g.Role, nil
}

func (g *FakeGate) Invalidate(ctx context.Context, planID string, userIDs ...string) {}

// FakePublisher records published events.
type FakePublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

type PublishedEvent struct {
	Key     string
	Payload any
}

func (p *FakePublisher) Publish(routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{Key: routingKey, Payload: payload})
	return nil
}

func (p *FakePublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.Events))
	for i, e := range p.Events {
		keys[i] = e.Key
	}
	return keys
}
