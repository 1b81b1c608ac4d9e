package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-user-management/internal/domain/repository"
)

// AuthState is the per-request authentication state.
type AuthState int

const (
	StateNoCredential AuthState = iota
	StateTokenPresent
	StateAuthenticated
	StateRejected
)

func (s AuthState) String() string {
	switch s {
	case StateNoCredential:
		return "no_credential"
	case StateTokenPresent:
		return "token_present"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// AuthResult is the terminal state of one request. Principal is set only when
// State is StateAuthenticated; Err only when State is StateRejected.
type AuthResult struct {
	State     AuthState
	Token     string
	Principal *entity.User
	Err       error
}

// RequestAuthenticator resolves the acting user from an Authorization header.
type RequestAuthenticator struct {
	Issuer TokenIssuer
	Ledger *TokenLedger
	Users  repo.UserRepository
}

func NewRequestAuthenticator(issuer TokenIssuer, ledger *TokenLedger, users repo.UserRepository) *RequestAuthenticator {
	return &RequestAuthenticator{Issuer: issuer, Ledger: ledger, Users: users}
}

const bearerPrefix = "bearer "

// ExtractBearer returns the token of a "Bearer <token>" header. The scheme is
// matched case-insensitively; any other scheme counts as no credential.
func ExtractBearer(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(bearerPrefix):]), true
}

// Authenticate runs the state machine for one request to a terminal state.
func (a *RequestAuthenticator) Authenticate(ctx context.Context, authorization string) AuthResult {
	token, ok := ExtractBearer(authorization)
	if !ok {
		return AuthResult{State: StateNoCredential}
	}
	res := AuthResult{State: StateTokenPresent, Token: token}
	u, err := a.resolve(ctx, token)
	if err != nil {
		res.State, res.Err = StateRejected, err
		return res
	}
	res.State, res.Principal = StateAuthenticated, u
	return res
}

func (a *RequestAuthenticator) resolve(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, ErrTokenMalformed
	}
	claims, err := a.Issuer.Validate(token)
	if err != nil {
		return nil, err
	}
	if err := a.Ledger.Check(ctx, token); err != nil {
		return nil, err
	}
	u, err := a.Users.GetByEmail(ctx, claims.Subject)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve subject: %w", err)
	}
	if !u.IsActive() {
		return nil, ErrPrincipalNotFound
	}
	return u, nil
}

// Authorize fails with ErrForbidden unless p holds role.
func Authorize(p entity.Principal, role entity.Role) error {
	if p == nil || !p.IsActive() || !entity.HasRole(p, role) {
		return ErrForbidden
	}
	return nil
}
