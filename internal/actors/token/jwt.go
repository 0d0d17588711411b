package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/core/model"
)

// Issuer mints and verifies HS512 JWTs carrying the user id as subject. It keeps no state besides
// the signing key, so tokens cannot be revoked before they expire.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// IssuerArgs are the mandatory arguments for the creation of an Issuer.
type IssuerArgs struct {
	// Secret is the HMAC signing key. Rotating it invalidates every outstanding token.
	Secret []byte

	// TTL is the validity of every issued token.
	TTL time.Duration
}

// IssuerOptArgs are the optional arguments for building an Issuer.
type IssuerOptArgs = func(*Issuer)

// WithNowFunc can be used to override the clock. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) IssuerOptArgs {
	return func(i *Issuer) {
		i.nowFunc = nowFunc
	}
}

// NewIssuer creates a new Issuer.
func NewIssuer(args IssuerArgs, optArgs ...IssuerOptArgs) (*Issuer, error) {
	if len(args.Secret) == 0 {
		return nil, errors.New("empty token signing secret")
	}
	if args.TTL <= 0 {
		return nil, fmt.Errorf("non-positive token ttl %s", args.TTL)
	}
	secret := make([]byte, len(args.Secret))
	copy(secret, args.Secret)
	i := &Issuer{secret: secret, ttl: args.TTL, nowFunc: time.Now}
	for _, opt := range optArgs {
		opt(i)
	}
	return i, nil
}

// Issue returns a signed token for the subject expiring TTL from now.
func (i *Issuer) Issue(subject uuid.UUID) (string, error) {
	now := i.nowFunc()
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

// Verify returns the subject of the token. Any failure yields model.ErrInvalidToken and nothing
// else, so callers cannot tell a forged token from an expired one.
func (i *Issuer) Verify(tokenString string) (uuid.UUID, error) {
	claims := new(jwt.RegisteredClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, i.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.nowFunc),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, model.ErrInvalidToken
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil || subject == uuid.Nil {
		return uuid.Nil, model.ErrInvalidToken
	}
	return subject, nil
}

func (i *Issuer) keyFunc(*jwt.Token) (interface{}, error) {
	return i.secret, nil
}
