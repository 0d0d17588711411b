package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system.
type User struct {
	// ID unique identifier of the user.
	ID uuid.UUID `json:"id"`

	// Name is the optional display name of the user. Empty means absent.
	Name string `json:"name,omitempty"`

	// Nickname is the user nickname. Unique across all users.
	Nickname string `json:"nickname"`

	// Email is the user email. Unique across all users.
	Email string `json:"email"`

	// PasswordHash contains the password hash. It never leaves the service boundary.
	PasswordHash string `json:"-"`

	// Bio is the optional user biography.
	Bio string `json:"bio,omitempty"`

	// CreationTime is the time at which the user was created in the system.
	CreationTime time.Time `json:"creationTime"`

	// UpdateTime is the time at which the user was last updated. Zero-valued until the first update.
	UpdateTime time.Time `json:"updateTime"`
}

// Public returns the password-free projection of the user.
func (u User) Public() PublicUser {
	p := PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Nickname:     u.Nickname,
		Email:        u.Email,
		Bio:          u.Bio,
		CreationTime: u.CreationTime,
	}
	if !u.UpdateTime.IsZero() {
		t := u.UpdateTime
		p.UpdateTime = &t
	}
	return p
}

// PublicUser is the representation of a user that is safe to hand out to callers.
type PublicUser struct {
	// ID unique identifier of the user.
	ID uuid.UUID `json:"id"`

	// Name is the optional display name of the user.
	Name string `json:"name,omitempty"`

	// Nickname is the user nickname.
	Nickname string `json:"nickname"`

	// Email is the user email.
	Email string `json:"email"`

	// Bio is the optional user biography.
	Bio string `json:"bio,omitempty"`

	// CreationTime is the time at which the user was created in the system.
	CreationTime time.Time `json:"creationTime"`

	// UpdateTime is the time of the last update, nil if the user was never updated.
	UpdateTime *time.Time `json:"updateTime,omitempty"`
}

// UserChanges collects the fields of a partial update. Nil fields are left untouched.
type UserChanges struct {
	Name     *string
	Nickname *string
	Bio      *string
}

// UserEvent collects a user change. It can represent creation, update and deletion of a user.
type UserEvent struct {
	// ID is the event id.
	ID string

	// Before is the user state before the event. It will be nil in case of user-creations.
	Before *User

	// After is the user state after the event. It will be nil in case of deletions.
	After *User
}
