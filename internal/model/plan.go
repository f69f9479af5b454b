package model

import "time"

// Member roles, ordered owner > editor > viewer.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Member is one entry in a plan's membership list. The plan owner is kept in
// Plan.OwnerID and is never duplicated here.
type Member struct {
	UserID   string    `bson:"user_id" json:"user_id"`
	Role     string    `bson:"role" json:"role"` // owner / editor / viewer
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

// Plan is a named container of tasks with an owner and a member list.
// Deleting a plan cascades to all of its tasks.
type Plan struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID     string    `bson:"owner_id" json:"owner_id"`
	Members     []Member  `bson:"members" json:"members"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// RoleOf resolves the role a user holds on the plan, or "" when the user is
// neither the owner nor a member.
func (p *Plan) RoleOf(userID string) string {
	if p.OwnerID == userID {
		return RoleOwner
	}
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// RoleAtLeast reports whether role meets the minimum required role in the
// owner > editor > viewer hierarchy.
func RoleAtLeast(role, min string) bool {
	return roleRank(role) >= roleRank(min)
}

func roleRank(role string) int {
	switch role {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// ValidRole reports whether r is a role assignable to a member.
func ValidRole(r string) bool {
	return r == RoleOwner || r == RoleEditor || r == RoleViewer
}
