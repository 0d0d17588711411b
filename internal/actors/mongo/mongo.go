package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/core/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	nicknameIndex = "nickname_unique"
	emailIndex    = "email_unique"
)

// MongoDB is a mongo adapter for persistance.
type MongoDB struct {
	userCollection *mongo.Collection
	nowFunc        func() time.Time
}

// MongoDBArgs are the mandatory arguments for the creation of a MongoDB
type MongoDBArgs struct {
	// UserCollection is a mongo collection
	UserCollection *mongo.Collection
}

// MongoDBOptArgs are the optional arguments for building a MongoDB
type MongoDBOptArgs = func(*MongoDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) MongoDBOptArgs {
	return func(p *MongoDB) {
		p.nowFunc = nowFunc
	}
}

// NewMongoDB creates a new MongoDB.
func NewMongoDB(args MongoDBArgs, optArgs ...MongoDBOptArgs) (*MongoDB, error) {
	if args.UserCollection == nil {
		return nil, errors.New("nil mongo user collection")
	}
	// mongo keeps milliseconds
	m := &MongoDB{userCollection: args.UserCollection, nowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }}
	for _, opt := range optArgs {
		opt(m)
	}
	return m, nil
}

// EnsureIndexes creates the unique indexes backing nickname and email uniqueness. It is idempotent.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.userCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "nickname", Value: 1}},
			Options: options.Index().SetName(nicknameIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true),
		},
	})
	return err
}

// CreateUser will save the user in the database. Duplicate keys are returned as *model.ConflictError.
func (m *MongoDB) CreateUser(ctx context.Context, user *model.User) (*model.PublicUser, error) {
	if user == nil {
		return nil, errors.New("nil user passed to create method")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreationTime = m.nowFunc()
	user.UpdateTime = time.Time{}

	if _, err := m.userCollection.InsertOne(ctx, toDBModel(user)); err != nil {
		return nil, translateError(err)
	}

	public := user.Public()
	return &public, nil
}

// GetUserByID returns the user with the given id or model.ErrNotFound.
func (m *MongoDB) GetUserByID(ctx context.Context, id uuid.UUID) (*model.PublicUser, error) {
	return m.findPublic(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

// GetUserByNickname returns the user with the given nickname or model.ErrNotFound.
func (m *MongoDB) GetUserByNickname(ctx context.Context, nickname string) (*model.PublicUser, error) {
	return m.findPublic(ctx, bson.D{{Key: "nickname", Value: nickname}})
}

// GetUserByEmail returns the user with the given email or model.ErrNotFound.
func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*model.PublicUser, error) {
	return m.findPublic(ctx, bson.D{{Key: "email", Value: email}})
}

// GetPasswordHashByEmail returns the password hash of the user with the given email or model.ErrNotFound.
func (m *MongoDB) GetPasswordHashByEmail(ctx context.Context, email string) (string, error) {
	var found struct {
		PasswordHash string `bson:"password_hash"`
	}
	opts := options.FindOne().SetProjection(bson.D{{Key: "password_hash", Value: 1}})
	err := m.userCollection.FindOne(ctx, bson.D{{Key: "email", Value: email}}, opts).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", model.ErrNotFound
	} else if err != nil {
		return "", err
	}
	return found.PasswordHash, nil
}

// UpdateUser applies the non-nil changes with a single $set. It returns model.ErrNotFound if the
// user does not exist.
func (m *MongoDB) UpdateUser(ctx context.Context, id uuid.UUID, changes model.UserChanges) error {
	set := bson.D{{Key: "update_time", Value: m.nowFunc()}}
	if changes.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *changes.Name})
	}
	if changes.Nickname != nil {
		set = append(set, bson.E{Key: "nickname", Value: *changes.Nickname})
	}
	if changes.Bio != nil {
		set = append(set, bson.E{Key: "bio", Value: *changes.Bio})
	}

	res, err := m.userCollection.UpdateByID(ctx, id.String(), bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount < 1 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteUser will delete a user from the database. It returns model.ErrNotFound if it does not exist.
func (m *MongoDB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := m.userCollection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return model.ErrNotFound
	}
	return nil
}

// Ping checks connectivity with the primary.
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.userCollection.Database().Client().Ping(ctx, nil)
}

func (m *MongoDB) findPublic(ctx context.Context, filter bson.D) (*model.PublicUser, error) {
	dbUser := new(userDB)
	opts := options.FindOne().SetProjection(bson.D{{Key: "password_hash", Value: 0}})
	err := m.userCollection.FindOne(ctx, filter, opts).Decode(dbUser)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	user, err := translateDBToModel(*dbUser)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// translateError maps duplicate keys on the nickname and email indexes to conflicts.
func translateError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, nicknameIndex):
		return model.NewConflictError(model.ConflictNickname)
	case strings.Contains(msg, emailIndex):
		return model.NewConflictError(model.ConflictEmail)
	default:
		return err
	}
}

func toDBModel(user *model.User) *userDB {
	return &userDB{
		ID:           user.ID.String(),
		Name:         user.Name,
		Nickname:     user.Nickname,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Bio:          user.Bio,
		CreationTime: user.CreationTime,
		UpdateTime:   user.UpdateTime,
	}
}

func translateDBToModel(dbUser userDB) (model.User, error) {
	id, err := uuid.Parse(dbUser.ID)
	if err != nil {
		return model.User{}, err
	}
	user := model.User{
		ID:           id,
		Name:         dbUser.Name,
		Nickname:     dbUser.Nickname,
		Email:        dbUser.Email,
		PasswordHash: dbUser.PasswordHash,
		Bio:          dbUser.Bio,
		CreationTime: dbUser.CreationTime.UTC(),
	}
	if !dbUser.UpdateTime.IsZero() {
		user.UpdateTime = dbUser.UpdateTime.UTC()
	}
	return user, nil
}

type userDB struct {
	// ID is the canonical string form of the user uuid.
	ID string `bson:"_id"`

	Name string `bson:"name,omitempty"`

	Nickname string `bson:"nickname"`

	Email string `bson:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `bson:"password_hash"`

	Bio string `bson:"bio,omitempty"`

	CreationTime time.Time `bson:"creation_time"`

	// UpdateTime is absent until the first update.
	UpdateTime time.Time `bson:"update_time,omitempty"`
}
