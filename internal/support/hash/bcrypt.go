package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher abstracts password hashing for services that verify credentials.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hashed, password string) error
	NeedsRehash(hashed string) bool
}

// BcryptHasher implements Hasher on golang.org/x/crypto/bcrypt.
type BcryptHasher struct {
	cost int
}

// ErrPasswordMismatch indicates the password does not match the stored hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// NewBcryptHasher validates cost and returns a bcrypt-backed hasher.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// MustBcryptHasher panics on invalid cost; startup wiring only.
func MustBcryptHasher(cost int) *BcryptHasher {
	h, err := NewBcryptHasher(cost)
	if err != nil {
		panic(err)
	}
	return h
}

// Hash produces a bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("bcrypt hasher is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("password hash failed: %w", err)
	}
	return string(hashed), nil
}

// Compare checks a plaintext password against a stored hash.
func (h *BcryptHasher) Compare(hashed, password string) error {
	if h == nil {
		return fmt.Errorf("bcrypt hasher is required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("hash comparison failed: %w", err)
	}
	return nil
}

// NeedsRehash reports whether the hash was produced with a different cost.
func (h *BcryptHasher) NeedsRehash(hashed string) bool {
	if h == nil {
		return false
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		return true
	}
	return cost != h.cost
}
