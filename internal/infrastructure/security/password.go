package security

import (
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	argon2idPrefix = "$argon2id$"
)

// HasherConfig selects the algorithm used for new digests.
type HasherConfig struct {
	Algorithm  string
	BcryptCost int
	Argon2     *argon2id.Params
}

// PasswordHasher produces bcrypt or argon2id digests. Verification dispatches
// on the digest format, so accounts hashed under a previous algorithm keep
// signing in after the configured algorithm changes.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
	argon2     *argon2id.Params
}

func NewPasswordHasher(cfg HasherConfig) (*PasswordHasher, error) {
	h := &PasswordHasher{
		algorithm:  strings.ToLower(strings.TrimSpace(cfg.Algorithm)),
		bcryptCost: cfg.BcryptCost,
		argon2:     cfg.Argon2,
	}
	if h.algorithm == "" {
		h.algorithm = AlgorithmBcrypt
	}
	if h.algorithm != AlgorithmBcrypt && h.algorithm != AlgorithmArgon2id {
		return nil, fmt.Errorf("unsupported password hasher %q", cfg.Algorithm)
	}
	if h.bcryptCost == 0 {
		h.bcryptCost = bcrypt.DefaultCost
	}
	if h.bcryptCost < bcrypt.MinCost || h.bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", h.bcryptCost)
	}
	if h.argon2 == nil {
		h.argon2 = argon2id.DefaultParams
	}
	return h, nil
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	if h.algorithm == AlgorithmArgon2id {
		digest, err := argon2id.CreateHash(plain, h.argon2)
		if err != nil {
			return "", fmt.Errorf("argon2id hash: %w", err)
		}
		return digest, nil
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(digest), nil
}

// Matches reports whether plain hashes to digest. Malformed digests never match.
func (h *PasswordHasher) Matches(plain, digest string) bool {
	if digest == "" {
		return false
	}
	if strings.HasPrefix(digest, argon2idPrefix) {
		ok, err := argon2id.ComparePasswordAndHash(plain, digest)
		return err == nil && ok
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
