package validate

import (
	"planboard/internal/apperr"
	"planboard/internal/model"
)

// CheckCycles rejects a parent or dependency edge that would close a cycle.
// Off by default; the task service enables it through WithCycleCheck.
func CheckCycles(t *model.Task, ix *Index) error {
	// Walk the parent chain upward from the proposed parent.
	seen := map[string]bool{t.ID: true}
	for cur := t.ParentID; cur != ""; {
		if seen[cur] {
			return apperr.Validation("parent_id", "task %q would create a parent cycle", t.Title)
		}
		seen[cur] = true
		p, ok := ix.Get(cur)
		if !ok {
			break // in-batch parent, no persisted chain to walk
		}
		cur = p.ParentID
	}

	// DFS over dependency edges from each proposed dependency back to t.
	visited := map[string]bool{}
	var reaches func(id string) bool
	reaches = func(id string) bool {
		if id == t.ID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		dep, ok := ix.Get(id)
		if !ok {
			return false
		}
		for _, next := range dep.DependencyIDs {
			if reaches(next) {
				return true
			}
		}
		return false
	}
	for _, dep := range t.DependencyIDs {
		if reaches(dep) {
			return apperr.Validation("dependency_ids", "task %q would create a dependency cycle", t.Title)
		}
	}
	return nil
}
