package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/core/model"
	"github.com/rbroggi/accountsvc/internal/core/ports"
)

// UserServiceArgs contains the mandatory arguments for the UserService.
type UserServiceArgs struct {
	// Repository is the repository for persistance operations.
	Repository ports.Repository

	// Hasher hashes and verifies passwords.
	Hasher ports.PasswordHasher

	// Tokens issues and verifies bearer tokens.
	Tokens ports.TokenIssuer
}

// NewUserService creates a new UserService.
func NewUserService(args UserServiceArgs) *UserService {
	return &UserService{
		repository: args.Repository,
		hasher:     args.Hasher,
		tokens:     args.Tokens,
		validate:   newValidator(),
	}
}

// UserService gathers the functionality around the user-lifecycle and authentication.
//
// The existence checks it performs before writes only produce friendlier errors; nickname and
// email uniqueness is ultimately enforced by the repository, whose conflicts are returned as is.
type UserService struct {
	repository ports.Repository
	hasher     ports.PasswordHasher
	tokens     ports.TokenIssuer
	validate   *validator.Validate

	dummyHashOnce sync.Once
	dummyHash     string
}

// CreateUser creates a user. It returns a *model.ValidationError for malformed arguments and a
// *model.ConflictError when the nickname (checked first) or the email is already in use.
func (s *UserService) CreateUser(ctx context.Context, args model.CreateUserArgs) (*model.CreateUserResponse, error) {
	if err := validatePayload(s.validate, args); err != nil {
		return nil, err
	}

	if err := s.ensureNicknameAvailable(ctx, args.Nickname, uuid.Nil); err != nil {
		return nil, err
	}
	if _, err := s.repository.GetUserByEmail(ctx, args.Email); err == nil {
		return nil, model.NewConflictError(model.ConflictEmail)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("error checking email availability: %w", err)
	}

	hash, err := s.hasher.Hash(args.Password)
	if err != nil {
		return nil, fmt.Errorf("error creating password hash: %w", err)
	}

	user := &model.User{
		Name:         args.Name,
		Nickname:     args.Nickname,
		Email:        args.Email,
		PasswordHash: hash,
		Bio:          args.Bio,
	}
	created, err := s.repository.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error saving user in repository: %w", err)
	}

	return &model.CreateUserResponse{User: *created}, nil
}

// UpdateUser applies a partial update to a user. Only the user itself may update its record:
// model.ErrUnauthorized is returned, before anything is read or written, when the subject differs
// from the target id. It returns model.ErrNotFound if the ID does not correspond to an existing user.
func (s *UserService) UpdateUser(ctx context.Context, args model.UpdateUserArgs) error {
	if args.ID == uuid.Nil || args.Subject != args.ID {
		return model.ErrUnauthorized
	}
	if err := validatePayload(s.validate, args); err != nil {
		return err
	}

	existing, err := s.repository.GetUserByID(ctx, args.ID)
	if err != nil {
		return fmt.Errorf("error fetching user to update: %w", err)
	}
	if args.Nickname != nil && *args.Nickname != existing.Nickname {
		if err := s.ensureNicknameAvailable(ctx, *args.Nickname, args.ID); err != nil {
			return err
		}
	}

	if err := s.repository.UpdateUser(ctx, args.ID, args.Changes()); err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

// GetUserByID returns the user with the given id or model.ErrNotFound.
func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.PublicUser, error) {
	user, err := s.repository.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching user by id: %w", err)
	}
	return user, nil
}

// GetUserByNickname returns the user with the given nickname or model.ErrNotFound.
func (s *UserService) GetUserByNickname(ctx context.Context, nickname string) (*model.PublicUser, error) {
	user, err := s.repository.GetUserByNickname(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("error fetching user by nickname: %w", err)
	}
	return user, nil
}

// DeleteUser hard-deletes the user with the given id. It returns model.ErrNotFound if it does not exist.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repository.GetUserByID(ctx, id); err != nil {
		return fmt.Errorf("error fetching user to delete: %w", err)
	}
	if err := s.repository.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("error deleting user from repository: %w", err)
	}
	return nil
}

// Login verifies the credentials and issues a token for the matching user.
//
// An unknown email and a wrong password both return model.ErrInvalidCredentials, and both cost one
// password verification, so the response does not reveal whether an account exists. A stored
// hash that cannot be parsed is an internal error, not a credentials error.
func (s *UserService) Login(ctx context.Context, credentials model.Credentials) (*model.LoginResponse, error) {
	if err := validatePayload(s.validate, credentials); err != nil {
		return nil, err
	}

	user, err := s.repository.GetUserByEmail(ctx, credentials.Email)
	if errors.Is(err, model.ErrNotFound) {
		s.verifyAgainstDummy(credentials.Password)
		return nil, model.ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("error fetching user by email: %w", err)
	}

	hash, err := s.repository.GetPasswordHashByEmail(ctx, credentials.Email)
	if errors.Is(err, model.ErrNotFound) {
		// deleted between the two reads
		return nil, model.ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("error fetching password hash: %w", err)
	}

	if err := s.hasher.Verify(credentials.Password, hash); err != nil {
		if errors.Is(err, model.ErrPasswordMismatch) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error verifying password of user [%s]: %w", user.ID, err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}
	return &model.LoginResponse{Token: token}, nil
}

// Authenticate returns the subject of a bearer token, or model.ErrUnauthorized.
func (s *UserService) Authenticate(token string) (uuid.UUID, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return uuid.Nil, model.ErrUnauthorized
	}
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return uuid.Nil, model.ErrUnauthorized
	}
	return subject, nil
}

// ensureNicknameAvailable returns a nickname *model.ConflictError when the nickname belongs to a
// user other than owner.
func (s *UserService) ensureNicknameAvailable(ctx context.Context, nickname string, owner uuid.UUID) error {
	existing, err := s.repository.GetUserByNickname(ctx, nickname)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("error checking nickname availability: %w", err)
	}
	if existing.ID != owner {
		return model.NewConflictError(model.ConflictNickname)
	}
	return nil
}

func (s *UserService) verifyAgainstDummy(password string) {
	s.dummyHashOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	if s.dummyHash != "" {
		_ = s.hasher.Verify(password, s.dummyHash)
	}
}
