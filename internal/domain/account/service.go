package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medrecords/medrecords/internal/domain/gate"
	"github.com/medrecords/medrecords/internal/domain/profile"
	"github.com/medrecords/medrecords/internal/platform/auth"
)

// ErrValidation wraps field-level input errors.
var ErrValidation = errors.New("validation failed")

// TxRunner executes fn inside a database transaction. The db package
// provides the production implementation; tests pass a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Session is what a successful sign-up or sign-in hands back to the client.
type Session struct {
	Token        string           `json:"token"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Profile      *profile.Profile `json:"profile"`
	RedirectPath string           `json:"redirect_path"`
}

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	accounts Repository
	profiles profile.Repository
	issuer   *auth.SessionIssuer
	revoked  *auth.TokenRevocationStore
	runTx    TxRunner
	logger   zerolog.Logger
}

func NewService(accounts Repository, profiles profile.Repository, issuer *auth.SessionIssuer,
	revoked *auth.TokenRevocationStore, runTx TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		profiles: profiles,
		issuer:   issuer,
		revoked:  revoked,
		runTx:    runTx,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new account with its profile in one transaction and
// signs the caller in. A partially created identity can never be observed:
// either both rows exist or neither does.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidation)
	}
	role, err := profile.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	acct := &Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
	}
	prof := &profile.Profile{
		ID:       acct.ID,
		FullName: fullName,
		Email:    email,
		Role:     role,
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, acct); err != nil {
			return err
		}
		return s.profiles.Create(ctx, prof)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	s.logger.Info().Str("account_id", acct.ID.String()).Str("role", string(role)).Msg("account created")

	return s.issueSession(acct.ID, prof)
}

// SignIn verifies credentials and starts a session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	acct, err := s.accounts.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Always re-read the profile so a just-provisioned role takes effect
	// immediately. One retry covers the race with profile creation.
	prof, err := s.profiles.GetByID(ctx, acct.ID)
	if errors.Is(err, profile.ErrProfileMissing) {
		prof, err = s.profiles.GetByID(ctx, acct.ID)
	}
	if err != nil {
		if errors.Is(err, profile.ErrProfileMissing) {
			s.logger.Warn().Str("account_id", acct.ID.String()).Msg("signed in without a profile")
			prof = nil
		} else {
			return nil, fmt.Errorf("resolving profile: %w", err)
		}
	}

	return s.issueSession(acct.ID, prof)
}

// SignOut revokes the presented token. Revoking an already revoked or
// absent token is a no-op.
func (s *Service) SignOut(_ context.Context, principal *auth.Principal) {
	if principal == nil {
		return
	}
	s.revoked.Revoke(principal.TokenID, time.Now().Add(s.issuer.TTL()))
}

// Current resolves the caller's profile for session introspection.
func (s *Service) Current(ctx context.Context, principal *auth.Principal) (*profile.Profile, error) {
	if principal == nil {
		return nil, auth.ErrNoSession
	}
	return s.profiles.GetByID(ctx, principal.ID)
}

func (s *Service) issueSession(accountID uuid.UUID, prof *profile.Profile) (*Session, error) {
	role := ""
	redirect := gate.PathAuth
	if prof != nil {
		role = string(prof.Role)
		redirect = gate.PathForRole(prof.Role)
	}

	token, claims, err := s.issuer.Issue(accountID, role)
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}

	return &Session{
		Token:        token,
		ExpiresAt:    claims.ExpiresAt.Time,
		Profile:      prof,
		RedirectPath: redirect,
	}, nil
}
