package password

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/rbroggi/accountsvc/internal/core/model"
)

// Argon2idHasher hashes passwords with argon2id.
type Argon2idHasher struct {
	params *argon2id.Params
}

// Argon2idHasherOptArgs are the optional arguments for building an Argon2idHasher.
type Argon2idHasherOptArgs = func(*Argon2idHasher)

// WithParams overrides the argon2id parameters. Cheaper parameters are useful for testing.
func WithParams(params *argon2id.Params) Argon2idHasherOptArgs {
	return func(h *Argon2idHasher) {
		h.params = params
	}
}

// NewArgon2idHasher creates a hasher using argon2id.DefaultParams unless overridden.
func NewArgon2idHasher(optArgs ...Argon2idHasherOptArgs) *Argon2idHasher {
	h := &Argon2idHasher{params: argon2id.DefaultParams}
	for _, opt := range optArgs {
		opt(h)
	}
	return h
}

// Hash returns an argon2id hash of the plain-text password. The hash follows the format used by
// the Argon2 reference C implementation and embeds the salt and parameters:
// $argon2id$v=19$m=65536,t=1,p=2$c29tZXNhbHQ$RdescudvJCsgt3ub+b+dWRWJTmaaJObG
func (h *Argon2idHasher) Hash(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, h.params)
	if err != nil {
		return "", fmt.Errorf("error creating password hash: %w", err)
	}
	return hash, nil
}

// Verify compares the password against the hash in constant time.
func (h *Argon2idHasher) Verify(password, hash string) error {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		// argon2id.ErrInvalidHash, ErrIncompatibleVersion or a base64 error from a corrupt hash
		return fmt.Errorf("%w: %v", model.ErrMalformedHash, err)
	}
	if !match {
		return model.ErrPasswordMismatch
	}
	return nil
}
