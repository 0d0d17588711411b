package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/actors/inmem"
	"github.com/rbroggi/accountsvc/internal/core/model"
)

// MockHasher is a mock implementation of the PasswordHasher interface. Hashes are reversible.
type MockHasher struct {
	HashError     error
	Verifications int
}

const mockHashPrefix = "hashed:"

func (m *MockHasher) Hash(password string) (string, error) {
	if m.HashError != nil {
		return "", m.HashError
	}
	return mockHashPrefix + password, nil
}

func (m *MockHasher) Verify(password, hash string) error {
	m.Verifications++
	if !strings.HasPrefix(hash, mockHashPrefix) {
		return fmt.Errorf("%w: missing prefix", model.ErrMalformedHash)
	}
	if strings.TrimPrefix(hash, mockHashPrefix) != password {
		return model.ErrPasswordMismatch
	}
	return nil
}

// MockTokens is a mock implementation of the TokenIssuer interface. Tokens are the subject in clear.
type MockTokens struct {
	IssueError error
}

const mockTokenPrefix = "token:"

func (m *MockTokens) Issue(subject uuid.UUID) (string, error) {
	if m.IssueError != nil {
		return "", m.IssueError
	}
	return mockTokenPrefix + subject.String(), nil
}

func (m *MockTokens) Verify(token string) (uuid.UUID, error) {
	if !strings.HasPrefix(token, mockTokenPrefix) {
		return uuid.Nil, model.ErrInvalidToken
	}
	subject, err := uuid.Parse(strings.TrimPrefix(token, mockTokenPrefix))
	if err != nil {
		return uuid.Nil, model.ErrInvalidToken
	}
	return subject, nil
}

// MockRepository wraps an in-memory repository, failing selected calls and counting writes.
type MockRepository struct {
	*inmem.MemoryDB

	LookupError     error
	HashLookupError error
	HashOverride    *string
	Writes          int
}

var errStorage = errors.New("storage unavailable")

func newMockRepository() *MockRepository {
	return &MockRepository{MemoryDB: inmem.NewMemoryDB()}
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*model.PublicUser, error) {
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	return m.MemoryDB.GetUserByEmail(ctx, email)
}

func (m *MockRepository) GetUserByNickname(ctx context.Context, nickname string) (*model.PublicUser, error) {
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	return m.MemoryDB.GetUserByNickname(ctx, nickname)
}

func (m *MockRepository) GetPasswordHashByEmail(ctx context.Context, email string) (string, error) {
	if m.HashLookupError != nil {
		return "", m.HashLookupError
	}
	if m.HashOverride != nil {
		return *m.HashOverride, nil
	}
	return m.MemoryDB.GetPasswordHashByEmail(ctx, email)
}

func (m *MockRepository) CreateUser(ctx context.Context, user *model.User) (*model.PublicUser, error) {
	m.Writes++
	return m.MemoryDB.CreateUser(ctx, user)
}

func (m *MockRepository) UpdateUser(ctx context.Context, id uuid.UUID, changes model.UserChanges) error {
	m.Writes++
	return m.MemoryDB.UpdateUser(ctx, id, changes)
}

func (m *MockRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.Writes++
	return m.MemoryDB.DeleteUser(ctx, id)
}
