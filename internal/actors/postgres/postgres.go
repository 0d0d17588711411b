package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/core/model"
)

const (
	nicknameConstraint = "users_nickname_key"
	emailConstraint    = "users_email_key"
	uniqueViolation    = "23505"
)

// PostgresDB is a postgress adapter for persistance.
type PostgresDB struct {
	db      *pg.DB
	nowFunc func() time.Time
}

// PostgresDBArgs are the mandatory arguments for the creation of a PostgresDB
type PostgresDBArgs struct {
	// DB is a postgres database handle
	DB *pg.DB
}

// PostgresDBOptArgs are the optional arguments for building a PostgresDB
type PostgresDBOptArgs = func(*PostgresDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) PostgresDBOptArgs {
	return func(p *PostgresDB) {
		p.nowFunc = nowFunc
	}
}

// NewPostgresDB creates a new PostgresDB.
func NewPostgresDB(args PostgresDBArgs, optArgs ...PostgresDBOptArgs) (*PostgresDB, error) {
	if args.DB == nil {
		return nil, errors.New("nil postgres database handle")
	}
	// postgres keeps microseconds
	p := &PostgresDB{db: args.DB, nowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
	for _, opt := range optArgs {
		opt(p)
	}
	return p, nil
}

// CreateUser will save the user in the database. Unique violations are returned as *model.ConflictError.
func (p *PostgresDB) CreateUser(ctx context.Context, user *model.User) (*model.PublicUser, error) {
	if user == nil {
		return nil, errors.New("nil user passed to create method")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreationTime = p.nowFunc()
	user.UpdateTime = time.Time{}

	dbUser := toDBModel(user)
	if _, err := p.db.ModelContext(ctx, dbUser).Insert(); err != nil {
		return nil, translateError(err)
	}

	public := user.Public()
	return &public, nil
}

// GetUserByID returns the user with the given id or model.ErrNotFound.
func (p *PostgresDB) GetUserByID(ctx context.Context, id uuid.UUID) (*model.PublicUser, error) {
	return p.selectPublic(ctx, "id = ?", id)
}

// GetUserByNickname returns the user with the given nickname or model.ErrNotFound.
func (p *PostgresDB) GetUserByNickname(ctx context.Context, nickname string) (*model.PublicUser, error) {
	return p.selectPublic(ctx, "nickname = ?", nickname)
}

// GetUserByEmail returns the user with the given email or model.ErrNotFound.
func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*model.PublicUser, error) {
	return p.selectPublic(ctx, "email = ?", email)
}

// GetPasswordHashByEmail returns the password hash of the user with the given email or model.ErrNotFound.
func (p *PostgresDB) GetPasswordHashByEmail(ctx context.Context, email string) (string, error) {
	var hash string
	err := p.db.ModelContext(ctx, (*userDB)(nil)).
		Column("password").
		Where("email = ?", email).
		Select(&hash)
	if errors.Is(err, pg.ErrNoRows) {
		return "", model.ErrNotFound
	} else if err != nil {
		return "", err
	}
	return hash, nil
}

// UpdateUser applies the non-nil changes in a single statement. It returns model.ErrNotFound if
// the user does not exist. Empty name or bio are stored as NULL.
func (p *PostgresDB) UpdateUser(ctx context.Context, id uuid.UUID, changes model.UserChanges) error {
	q := p.db.ModelContext(ctx, (*userDB)(nil)).
		Set("update_time = ?", p.nowFunc()).
		Where("id = ?", id)
	if changes.Name != nil {
		q = q.Set("name = NULLIF(?, '')", *changes.Name)
	}
	if changes.Nickname != nil {
		q = q.Set("nickname = ?", *changes.Nickname)
	}
	if changes.Bio != nil {
		q = q.Set("bio = NULLIF(?, '')", *changes.Bio)
	}

	res, err := q.Update()
	if err != nil {
		return translateError(err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteUser will delete a user from the database. It returns model.ErrNotFound if it does not exist.
func (p *PostgresDB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := p.db.ModelContext(ctx, (*userDB)(nil)).Where("id = ?", id).Delete()
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *PostgresDB) selectPublic(ctx context.Context, condition string, param interface{}) (*model.PublicUser, error) {
	dbUser := new(userDB)
	err := p.db.ModelContext(ctx, dbUser).
		ExcludeColumn("password").
		Where(condition, param).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	public := translateDBToModel(*dbUser).Public()
	return &public, nil
}

// translateError maps unique violations on the nickname and email constraints to conflicts.
func translateError(err error) error {
	var pgErr pg.Error
	if !errors.As(err, &pgErr) || pgErr.Field('C') != uniqueViolation {
		return err
	}
	switch pgErr.Field('n') {
	case nicknameConstraint:
		return model.NewConflictError(model.ConflictNickname)
	case emailConstraint:
		return model.NewConflictError(model.ConflictEmail)
	default:
		return err
	}
}

func toDBModel(user *model.User) *userDB {
	return &userDB{
		ID:           user.ID,
		Name:         user.Name,
		Nickname:     user.Nickname,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Bio:          user.Bio,
		CreationTime: user.CreationTime,
		UpdateTime:   user.UpdateTime,
	}
}

func translateDBToModel(dbUser userDB) model.User {
	return model.User{
		ID:           dbUser.ID,
		Name:         dbUser.Name,
		Nickname:     dbUser.Nickname,
		Email:        dbUser.Email,
		PasswordHash: dbUser.PasswordHash,
		Bio:          dbUser.Bio,
		CreationTime: dbUser.CreationTime.UTC(),
		UpdateTime:   utcOrZero(dbUser.UpdateTime),
	}
}

func utcOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// userDB is the row of accounts.users. Zero values are written as NULL.
type userDB struct {
	tableName struct{} `pg:"accounts.users"`

	ID uuid.UUID `pg:"id,type:uuid,pk"`

	// Name is the optional display name.
	Name string `pg:"name"`

	Nickname string `pg:"nickname"`

	Email string `pg:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `pg:"password"`

	// Bio is the optional biography.
	Bio string `pg:"bio"`

	CreationTime time.Time `pg:"creation_time"`

	// UpdateTime is NULL until the first update.
	UpdateTime time.Time `pg:"update_time"`
}
