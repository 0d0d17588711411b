package model

import (
	"github.com/google/uuid"
)

// CreateUserArgs contain the arguments of the CreateUser method.
type CreateUserArgs struct {
	// Name is the optional user display name.
	Name string `json:"name" validate:"omitempty,min=3,max=15"`

	// Nickname is the user nickname
	Nickname string `json:"nickname" validate:"required,nickname"`

	// Email is the user email
	Email string `json:"email" validate:"required,email"`

	// Password is the user password in plain text.
	Password string `json:"password" validate:"required,min=8"`

	// Bio is the optional user biography.
	Bio string `json:"bio" validate:"omitempty,max=250"`
}

// CreateUserResponse contains the response of the CreateUser method.
type CreateUserResponse struct {
	// User is the newly created user.
	User PublicUser
}

// UpdateUserArgs contain the arguments of the UpdateUser method. Nil fields are not updated.
type UpdateUserArgs struct {
	// ID is the id of the user to be updated.
	ID uuid.UUID `json:"-"`

	// Subject is the authenticated user issuing the update. It must match ID.
	Subject uuid.UUID `json:"-"`

	// Name is the user display name.
	Name *string `json:"name" validate:"omitnil,min=3,max=15"`

	// Nickname is the user nickname.
	Nickname *string `json:"nickname" validate:"omitnil,nickname"`

	// Bio is the user biography.
	Bio *string `json:"bio" validate:"omitnil,max=250"`
}

// Changes returns the partial update carried by the arguments.
func (a UpdateUserArgs) Changes() UserChanges {
	return UserChanges{Name: a.Name, Nickname: a.Nickname, Bio: a.Bio}
}

// Credentials are the login arguments. They are never persisted.
type Credentials struct {
	// Email is the account email.
	Email string `json:"email" validate:"required,email"`

	// Password is the plain-text password.
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse contains the bearer token minted by a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}
