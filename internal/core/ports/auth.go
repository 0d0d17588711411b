package ports

import (
	"github.com/google/uuid"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash returns a salted one-way hash of the plain-text password.
	Hash(password string) (string, error)

	// Verify returns nil when the password matches the hash, model.ErrPasswordMismatch when it
	// does not and an error wrapping model.ErrMalformedHash when the hash cannot be parsed.
	Verify(password, hash string) error
}

// TokenIssuer mints and verifies signed, time-bounded identity tokens.
type TokenIssuer interface {
	// Issue returns a signed token asserting the subject.
	Issue(subject uuid.UUID) (string, error)

	// Verify returns the subject of a valid token and model.ErrInvalidToken otherwise.
	Verify(token string) (uuid.UUID, error)
}
