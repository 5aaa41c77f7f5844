package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned for a wrong password or an unknown account.
var ErrPasswordMismatch = errors.New("password mismatch")

// PasswordChecker verifies staff passwords against bcrypt hashes. Lookups for
// unknown accounts are checked against a decoy hash so both failure paths do
// the same bcrypt work.
type PasswordChecker struct {
	cost  int
	decoy []byte
}

// NewPasswordChecker builds a checker whose hashes use cost.
func NewPasswordChecker(cost int) (*PasswordChecker, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	decoy, err := bcrypt.GenerateFromPassword([]byte("decoy-password"), cost)
	if err != nil {
		return nil, err
	}
	return &PasswordChecker{cost: cost, decoy: decoy}, nil
}

// Hash hashes a plaintext password for a staff account.
func (p *PasswordChecker) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Check compares plain against hashed. An empty hash means the account was
// not found.
func (p *PasswordChecker) Check(hashed, plain string) error {
	target := []byte(hashed)
	if hashed == "" {
		target = p.decoy
	}
	if err := bcrypt.CompareHashAndPassword(target, []byte(plain)); err != nil || hashed == "" {
		return ErrPasswordMismatch
	}
	return nil
}
