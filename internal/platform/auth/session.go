// Package auth issues and verifies session tokens and guards routes by
// role. A session token is an HMAC-signed JWT carrying the principal id,
// the role declared at sign-up, and a token id used for revocation at
// sign-out.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrInvalidToken = errors.New("invalid or expired session token")
)

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Principal identifies an authenticated account for the duration of one
// session.
type Principal struct {
	ID      uuid.UUID
	Role    string
	TokenID string
}

// SessionIssuer creates and verifies session tokens with a shared HMAC key.
type SessionIssuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
}

func NewSessionIssuer(key []byte, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{
		key:    key,
		ttl:    ttl,
		issuer: "medrecords",
	}
}

// TTL returns the configured session lifetime.
func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

// Issue creates a signed session token for the given account and role.
func (s *SessionIssuer) Issue(accountID uuid.UUID, role string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID.String(),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature and expiry of a session token and returns
// its claims. Any verification failure maps to ErrInvalidToken so callers
// cannot distinguish tampered from merely expired tokens.
func (s *SessionIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// PrincipalFromClaims converts verified claims into a Principal.
func PrincipalFromClaims(claims *Claims) (*Principal, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Principal{
		ID:      id,
		Role:    claims.Role,
		TokenID: claims.ID,
	}, nil
}
