// Package admin verifies the operator password.
package admin

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Checker compares candidate passwords against a bcrypt hash.
type Checker struct {
	hash []byte
}

// NewChecker validates and wraps an existing bcrypt hash.
func NewChecker(hash string) (*Checker, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	return &Checker{hash: []byte(hash)}, nil
}

// FromPassword hashes a plain password once at startup.
func FromPassword(password string, cost int) (*Checker, error) {
	if password == "" {
		return nil, fmt.Errorf("admin password is empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &Checker{hash: hash}, nil
}

// Check reports whether candidate is the configured password.
func (c *Checker) Check(candidate string) bool {
	return bcrypt.CompareHashAndPassword(c.hash, []byte(candidate)) == nil
}
