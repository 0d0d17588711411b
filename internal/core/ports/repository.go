package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/core/model"
)

// Repository is the interface for the persistence layer.
//
// Lookups return model.ErrNotFound when no user matches. Writes that would break nickname or
// email uniqueness return a *model.ConflictError; the backing store enforces uniqueness
// atomically, so this holds under concurrent writers. Any other error is a storage failure.
type Repository interface {
	// CreateUser durably saves the user and returns its public projection.
	// The ID is generated when nil, the creation time is always set by the repository.
	CreateUser(ctx context.Context, user *model.User) (*model.PublicUser, error)

	// GetUserByID returns the user with the given id.
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.PublicUser, error)

	// GetUserByNickname returns the user with the given nickname.
	GetUserByNickname(ctx context.Context, nickname string) (*model.PublicUser, error)

	// GetUserByEmail returns the user with the given email.
	GetUserByEmail(ctx context.Context, email string) (*model.PublicUser, error)

	// GetPasswordHashByEmail returns the stored password hash of the user with the given email.
	GetPasswordHashByEmail(ctx context.Context, email string) (string, error)

	// UpdateUser applies the non-nil changes and refreshes the update time in a single write.
	// An empty change set still refreshes the update time.
	UpdateUser(ctx context.Context, id uuid.UUID, changes model.UserChanges) error

	// DeleteUser hard-deletes the user.
	DeleteUser(ctx context.Context, id uuid.UUID) error

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
