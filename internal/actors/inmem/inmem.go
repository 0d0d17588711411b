package inmem

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/core/model"
)

// MemoryDB is a process-local adapter for persistance. Uniqueness checks and writes happen under
// the same lock, so concurrent creations with a shared nickname or email yield exactly one winner.
type MemoryDB struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]model.User
	byNickname map[string]uuid.UUID
	byEmail    map[string]uuid.UUID
	nowFunc    func() time.Time
}

// MemoryDBOptArgs are the optional arguments for building a MemoryDB.
type MemoryDBOptArgs = func(*MemoryDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) MemoryDBOptArgs {
	return func(m *MemoryDB) {
		m.nowFunc = nowFunc
	}
}

// NewMemoryDB creates an empty MemoryDB.
func NewMemoryDB(optArgs ...MemoryDBOptArgs) *MemoryDB {
	m := &MemoryDB{
		users:      make(map[uuid.UUID]model.User),
		byNickname: make(map[string]uuid.UUID),
		byEmail:    make(map[string]uuid.UUID),
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(m)
	}
	return m
}

// CreateUser saves the user. It returns a *model.ConflictError if the nickname or email is taken.
func (m *MemoryDB) CreateUser(ctx context.Context, user *model.User) (*model.PublicUser, error) {
	if user == nil {
		return nil, errors.New("nil user passed to create method")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byNickname[user.Nickname]; taken {
		return nil, model.NewConflictError(model.ConflictNickname)
	}
	if _, taken := m.byEmail[user.Email]; taken {
		return nil, model.NewConflictError(model.ConflictEmail)
	}

	stored := *user
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if _, taken := m.users[stored.ID]; taken {
		return nil, errors.New("duplicate user id")
	}
	stored.CreationTime = m.nowFunc()
	stored.UpdateTime = time.Time{}

	m.users[stored.ID] = stored
	m.byNickname[stored.Nickname] = stored.ID
	m.byEmail[stored.Email] = stored.ID

	user.ID = stored.ID
	user.CreationTime = stored.CreationTime
	public := stored.Public()
	return &public, nil
}

// GetUserByID returns the user with the given id or model.ErrNotFound.
func (m *MemoryDB) GetUserByID(ctx context.Context, id uuid.UUID) (*model.PublicUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publicByID(id)
}

// GetUserByNickname returns the user with the given nickname or model.ErrNotFound.
func (m *MemoryDB) GetUserByNickname(ctx context.Context, nickname string) (*model.PublicUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byNickname[nickname]
	if !ok {
		return nil, model.ErrNotFound
	}
	return m.publicByID(id)
}

// GetUserByEmail returns the user with the given email or model.ErrNotFound.
func (m *MemoryDB) GetUserByEmail(ctx context.Context, email string) (*model.PublicUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, model.ErrNotFound
	}
	return m.publicByID(id)
}

// GetPasswordHashByEmail returns the password hash of the user with the given email.
func (m *MemoryDB) GetPasswordHashByEmail(ctx context.Context, email string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return "", model.ErrNotFound
	}
	return m.users[id].PasswordHash, nil
}

// UpdateUser applies the non-nil changes. It returns model.ErrNotFound if the user does not exist.
func (m *MemoryDB) UpdateUser(ctx context.Context, id uuid.UUID, changes model.UserChanges) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return model.ErrNotFound
	}
	if changes.Nickname != nil && *changes.Nickname != user.Nickname {
		if _, taken := m.byNickname[*changes.Nickname]; taken {
			return model.NewConflictError(model.ConflictNickname)
		}
		delete(m.byNickname, user.Nickname)
		user.Nickname = *changes.Nickname
		m.byNickname[user.Nickname] = id
	}
	if changes.Name != nil {
		user.Name = *changes.Name
	}
	if changes.Bio != nil {
		user.Bio = *changes.Bio
	}
	user.UpdateTime = m.nowFunc()
	m.users[id] = user
	return nil
}

// DeleteUser removes the user. It returns model.ErrNotFound if the user does not exist.
func (m *MemoryDB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return model.ErrNotFound
	}
	delete(m.users, id)
	delete(m.byNickname, user.Nickname)
	delete(m.byEmail, user.Email)
	return nil
}

// Ping only fails once the context is done.
func (m *MemoryDB) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryDB) publicByID(id uuid.UUID) (*model.PublicUser, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	public := user.Public()
	return &public, nil
}
