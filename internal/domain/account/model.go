// Package account owns credentials and session lifecycle. Profiles carry
// who a person is; accounts carry how they prove it.
package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateAccount   = errors.New("an account with this email already exists")
	ErrWeakCredential     = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotFound    = errors.New("account not found")
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// Account maps to the accounts table. The password is stored only as a
// bcrypt hash.
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
