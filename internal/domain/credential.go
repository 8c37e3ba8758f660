package domain

import (
	"errors"
	"time"
)

// Common validation errors for credentials
var (
	ErrNilCredential       = errors.New("credential cannot be nil")
	ErrInvalidCredentialID = errors.New("credential ID must be greater than zero")
	ErrEmptyDigest         = errors.New("secret digest cannot be empty")
	ErrDigestTooLong       = errors.New("secret digest cannot exceed 255 characters")
	ErrEmptySalt           = errors.New("salt cannot be empty")
	ErrSaltTooLong         = errors.New("salt cannot exceed 64 characters")
	ErrEmptyPlaintext      = errors.New("plaintext secret cannot be empty")
	ErrSecretNotHashed     = errors.New("secret has not been hashed yet")
)

// Column length limits enforced before persistence.
const (
	MaxDigestLength = 255
	MaxSaltLength   = 64
)

// Secret is the credential's stored secret in exactly one of two states:
// hashed (digest + salt, safe to persist) or pending rotation (a plaintext
// that still needs a fresh salt and digest derived before it can be stored).
//
// The original data model signalled "re-hash me" with a null salt next to a
// plaintext smuggled into the digest field. The tagged value makes the two
// states explicit so a pending secret can never be mistaken for a hashed one.
type Secret struct {
	hashed    bool
	digest    string
	salt      string
	plaintext string
}

// NewHashedSecret builds a Secret in the hashed state. Used when loading
// credentials from storage or after digest derivation.
func NewHashedSecret(digest, salt string) Secret {
	return Secret{hashed: true, digest: digest, salt: salt}
}

// NewPendingSecret builds a Secret holding a plaintext that must be hashed
// before the credential may be persisted.
func NewPendingSecret(plaintext string) Secret {
	return Secret{hashed: false, plaintext: plaintext}
}

// IsPending reports whether the secret still holds a plaintext awaiting
// salt generation and digest derivation.
func (s Secret) IsPending() bool {
	return !s.hashed
}

// Digest returns the derived digest. Empty while the secret is pending.
func (s Secret) Digest() string {
	return s.digest
}

// Salt returns the salt the digest was derived with. Empty while pending.
func (s Secret) Salt() string {
	return s.salt
}

// Plaintext returns the plaintext awaiting rotation. Empty once hashed.
func (s Secret) Plaintext() string {
	return s.plaintext
}

// Credential holds the persisted access secret owned by exactly one user.
// The user side carries the foreign key; the credential holds no
// back-reference.
type Credential struct {
	ID            int64
	Secret        Secret
	LastChanged   time.Time
	RequiresReset bool
}

// NewCredential creates a transient credential from a plaintext secret.
// The secret stays in the pending state until the service derives a salt
// and digest for it; the ID is assigned by the store on insert.
func NewCredential(plaintext string) (*Credential, error) {
	if plaintext == "" {
		return nil, ErrEmptyPlaintext
	}
	return &Credential{
		Secret:      NewPendingSecret(plaintext),
		LastChanged: time.Now().UTC(),
	}, nil
}

// Validate checks that the credential is ready for persistence: the secret
// must be hashed and the digest and salt must be present and within the
// column limits. A pending secret never passes.
func (c *Credential) Validate() error {
	if c == nil {
		return ErrNilCredential
	}
	if c.Secret.IsPending() {
		return ErrSecretNotHashed
	}
	if c.Secret.Digest() == "" {
		return ErrEmptyDigest
	}
	if len(c.Secret.Digest()) > MaxDigestLength {
		return ErrDigestTooLong
	}
	if c.Secret.Salt() == "" {
		return ErrEmptySalt
	}
	if len(c.Secret.Salt()) > MaxSaltLength {
		return ErrSaltTooLong
	}
	return nil
}
