package plan

import (
	"context"
	"time"

	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/store"
	"planboard/internal/validate"
	"planboard/pkg/metrics"
	"planboard/pkg/mq"
)

// Export produces the denormalized, portable snapshot of a plan: member and
// assignee references become name/email pairs so the document survives a
// move across database instances. Task ids are kept so Import can remap
// parent and dependency references.
func (s *Service) Export(ctx context.Context, planID, actorID string) (*model.Snapshot, error) {
	if err := s.gate.Require(ctx, actorID, planID, model.RoleViewer); err != nil {
		return nil, err
	}
	p, err := s.mustLoad(ctx, planID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.FindAllByPlan(ctx, planID)
	if err != nil {
		return nil, apperr.Storage("plan.Export", err)
	}

	ids := []string{p.OwnerID}
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	for _, t := range tasks {
		ids = append(ids, t.AssigneeIDs...)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Storage("plan.Export", err)
	}

	snap := &model.Snapshot{
		Plan: model.SnapshotPlan{
			Name:        p.Name,
			Description: p.Description,
			Members:     []model.SnapshotMember{},
		},
		Tasks: []model.SnapshotTask{},
		Metadata: model.SnapshotMetadata{
			ExportedAt: time.Now().UTC(),
			ExportedBy: actorID,
			Version:    model.SnapshotVersion,
		},
	}

	if owner, ok := users[p.OwnerID]; ok {
		snap.Plan.Members = append(snap.Plan.Members, model.SnapshotMember{
			Name: owner.Name, Email: owner.Email, Role: model.RoleOwner,
		})
	}
	for _, m := range p.Members {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		snap.Plan.Members = append(snap.Plan.Members, model.SnapshotMember{
			Name: u.Name, Email: u.Email, Role: m.Role,
		})
	}

	for _, t := range tasks {
		st := model.SnapshotTask{
			ID:            t.ID,
			Title:         t.Title,
			Description:   t.Description,
			Goal:          t.Goal,
			Notes:         t.Notes,
			Deliverables:  t.Deliverables,
			Status:        t.Status,
			Priority:      t.Priority,
			Assignees:     []model.UserRef{},
			StartDate:     t.StartDate,
			DueDate:       t.DueDate,
			ProgressPct:   t.ProgressPct,
			ParentID:      t.ParentID,
			DependencyIDs: t.DependencyIDs,
			Tags:          t.Tags,
			EstimateHours: t.EstimateHours,
			OrderIndex:    t.OrderIndex,
		}
		for _, a := range t.AssigneeIDs {
			if u, ok := users[a]; ok {
				st.Assignees = append(st.Assignees, model.UserRef{Name: u.Name, Email: u.Email})
			}
		}
		snap.Tasks = append(snap.Tasks, st)
	}

	s.logger.Info("Plan exported",
		zap.String("plan_id", planID),
		zap.Int("tasks", len(snap.Tasks)),
		zap.Int("members", len(snap.Plan.Members)),
	)
	return snap, nil
}

// Import creates a new plan owned by the actor from a snapshot. Collaborators
// referenced by email are reused when a user with that email exists,
// otherwise created as placeholder users carrying the sentinel password hash
// until claimed at registration.
//
// Snapshot task ids belong to the source plan; parent_id and dependency_ids
// are remapped through an export-id to new-id table instead of being copied
// verbatim. References to ids absent from the snapshot are cleared.
// Placeholder users created before a mid-import failure are not rolled back.
func (s *Service) Import(ctx context.Context, snap *model.Snapshot, actorID string) (*model.Plan, error) {
	if snap.Metadata.Version != "" && snap.Metadata.Version != model.SnapshotVersion {
		return nil, apperr.Validation("export_metadata.version", "unsupported snapshot version %q", snap.Metadata.Version)
	}
	if snap.Plan.Name == "" {
		return nil, apperr.Validation("plan.name", "name is required")
	}

	now := time.Now().UTC()
	p := &model.Plan{
		ID:          store.NewID(),
		Name:        snap.Plan.Name,
		Description: snap.Plan.Description,
		OwnerID:     actorID,
		Members:     []model.Member{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	byEmail := map[string]*model.User{}
	for _, m := range snap.Plan.Members {
		u, err := s.resolveOrPlaceholder(ctx, m.Email, m.Name, byEmail)
		if err != nil {
			return nil, err
		}
		if u.ID == actorID {
			continue // actor owns the imported plan; never duplicated in members
		}
		dup := false
		for _, existing := range p.Members {
			if existing.UserID == u.ID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		p.Members = append(p.Members, model.Member{UserID: u.ID, Role: m.Role, JoinedAt: now})
	}

	// Remapping table: export task id -> newly generated id.
	idMap := make(map[string]string, len(snap.Tasks))
	for _, st := range snap.Tasks {
		idMap[st.ID] = store.NewID()
	}

	tasks := make([]*model.Task, 0, len(snap.Tasks))
	for i, st := range snap.Tasks {
		orderIndex := st.OrderIndex
		if orderIndex == 0 {
			orderIndex = i + 1 // batch position when the snapshot carries none
		}
		t := &model.Task{
			ID:            idMap[st.ID],
			PlanID:        p.ID,
			Title:         st.Title,
			Description:   st.Description,
			Goal:          st.Goal,
			Notes:         st.Notes,
			Deliverables:  st.Deliverables,
			Status:        st.Status,
			Priority:      st.Priority,
			AssigneeIDs:   []string{},
			StartDate:     st.StartDate,
			DueDate:       st.DueDate,
			ProgressPct:   st.ProgressPct,
			ParentID:      idMap[st.ParentID],
			DependencyIDs: []string{},
			Tags:          st.Tags,
			EstimateHours: st.EstimateHours,
			OrderIndex:    orderIndex,
			CreatedBy:     actorID,
			UpdatedBy:     actorID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if t.Tags == nil {
			t.Tags = []string{}
		}
		for _, dep := range st.DependencyIDs {
			if mapped, ok := idMap[dep]; ok {
				t.DependencyIDs = append(t.DependencyIDs, mapped)
			}
		}
		for _, a := range st.Assignees {
			u, err := s.resolveOrPlaceholder(ctx, a.Email, a.Name, byEmail)
			if err != nil {
				return nil, err
			}
			t.AssigneeIDs = append(t.AssigneeIDs, u.ID)
		}
		if err := validate.Fields(t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := s.plans.Insert(ctx, p); err != nil {
		return nil, apperr.Storage("plan.Import", err)
	}
	if err := s.tasks.InsertMany(ctx, tasks); err != nil {
		return nil, apperr.Storage("plan.Import", err)
	}

	metrics.PlansImported.Inc()
	metrics.TasksCreated.Add(float64(len(tasks)))
	if s.publisher != nil {
		if err := s.publisher.Publish(mq.EventPlanImported, mq.PlanImportedPayload{
			PlanID:    p.ID,
			Name:      p.Name,
			TaskCount: len(tasks),
			ActorID:   actorID,
		}); err != nil {
			s.logger.Warn("Failed to publish event", zap.Error(err), zap.String("event", mq.EventPlanImported))
		}
	}

	s.logger.Info("Plan imported",
		zap.String("plan_id", p.ID),
		zap.Int("tasks", len(tasks)),
		zap.Int("members", len(p.Members)),
	)
	return p, nil
}

// resolveOrPlaceholder finds a user by email or creates a flagged
// placeholder, memoizing per import so each email is looked up once.
func (s *Service) resolveOrPlaceholder(ctx context.Context, email, name string, cache map[string]*model.User) (*model.User, error) {
	if email == "" {
		return nil, apperr.Validation("email", "member email is required")
	}
	if u, ok := cache[email]; ok {
		return u, nil
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Storage("plan.resolveUser", err)
	}
	if u == nil {
		u = &model.User{
			ID:           store.NewID(),
			Email:        email,
			Name:         name,
			Placeholder:  true,
			PasswordHash: model.PlaceholderPasswordHash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.users.Insert(ctx, u); err != nil {
			return nil, apperr.Storage("plan.resolveUser", err)
		}
		s.logger.Info("Placeholder user created", zap.String("email", email))
	}
	cache[email] = u
	return u, nil
}
