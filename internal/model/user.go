package model

import "time"

// PlaceholderPasswordHash is the sentinel stored for users created during a
// plan import. It is not a valid bcrypt hash, so such accounts cannot log in
// until claimed through registration by email match.
const PlaceholderPasswordHash = "!placeholder"

type User struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	Avatar       string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Placeholder  bool      `bson:"placeholder,omitempty" json:"placeholder,omitempty"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// UserRef is the display form of a user reference returned by the API and
// embedded in export snapshots instead of raw ids.
type UserRef struct {
	ID     string `bson:"id,omitempty" json:"id,omitempty"`
	Name   string `bson:"name" json:"name"`
	Email  string `bson:"email" json:"email"`
	Avatar string `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// Ref returns the display reference for the user.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}
