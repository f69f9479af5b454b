package task

import (
	"context"

	"planboard/internal/apperr"
	"planboard/internal/model"
)

// View is a task with assignee/creator/updater references expanded to
// display data instead of raw ids.
type View struct {
	model.Task
	Assignees []model.UserRef `json:"assignees"`
	Creator   *model.UserRef  `json:"creator,omitempty"`
	Updater   *model.UserRef  `json:"updater,omitempty"`
}

func (s *Service) expandOne(ctx context.Context, t *model.Task) (*View, error) {
	views, err := s.expand(ctx, []model.Task{*t})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) expand(ctx context.Context, tasks []model.Task) ([]View, error) {
	idSet := map[string]bool{}
	for _, t := range tasks {
		for _, a := range t.AssigneeIDs {
			idSet[a] = true
		}
		idSet[t.CreatedBy] = true
		idSet[t.UpdatedBy] = true
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		if id != "" {
			ids = append(ids, id)
		}
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Storage("task.expand", err)
	}

	ref := func(id string) *model.UserRef {
		if u, ok := users[id]; ok {
			r := u.Ref()
			return &r
		}
		return nil
	}

	views := make([]View, len(tasks))
	for i, t := range tasks {
		v := View{Task: t, Assignees: []model.UserRef{}}
		for _, a := range t.AssigneeIDs {
			if r := ref(a); r != nil {
				v.Assignees = append(v.Assignees, *r)
			}
		}
		v.Creator = ref(t.CreatedBy)
		v.Updater = ref(t.UpdatedBy)
		views[i] = v
	}
	return views, nil
}
