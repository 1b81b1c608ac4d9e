package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-user-management/internal/domain/repository"
)

const TokenTypeBearer = "Bearer"

// AuthService verifies credentials, issues access tokens and registers users.
type AuthService struct {
	Users     repo.UserRepository
	Ledger    *TokenLedger
	Issuer    TokenIssuer
	Hasher    PasswordHasher
	AccessTTL time.Duration
	Events    EventPublisher
	Indexer   UserIndexer
	Logger    *logrus.Logger
	Now       func() time.Time
}

func NewAuthService(users repo.UserRepository, ledger *TokenLedger, issuer TokenIssuer, hasher PasswordHasher, accessTTL time.Duration, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Users:     users,
		Ledger:    ledger,
		Issuer:    issuer,
		Hasher:    hasher,
		AccessTTL: accessTTL,
		Logger:    logger,
		Now:       time.Now,
	}
}

// AccessToken is the result of a successful authentication.
type AccessToken struct {
	Token     string
	Type      string
	ExpiresAt time.Time
	User      *entity.User
}

// ProfileInput is the registration payload. It doubles as the record format
// of bulk import files and generated user downloads.
type ProfileInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	BirthDate   string `json:"birth_date,omitempty"` // 2006-01-02 or RFC3339
	City        string `json:"city"`
	Country     string `json:"country"`
	Avatar      string `json:"avatar"`
	Company     string `json:"company"`
	JobPosition string `json:"job_position"`
	Mobile      string `json:"mobile"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role,omitempty"`
}

// Authenticate resolves identifier as an email, then as a username, checks the
// password and issues a token that replaces every token the user held before.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*AccessToken, error) {
	u, err := s.resolvePrincipal(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !s.Hasher.Verify(u.Password, password) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.Issuer.Issue(u.Email, u.Role.String(), s.AccessTTL)
	if err != nil {
		s.logError(err, logrus.Fields{"user_id": u.ID}, "issue access token failed")
		return nil, fmt.Errorf("issue token: %w", err)
	}
	revoked, err := s.Ledger.Rotate(ctx, u.ID, token)
	if err != nil {
		s.logError(err, logrus.Fields{"user_id": u.ID}, "token rotation failed")
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "revoked": revoked}).Info("user authenticated")
	}
	s.publish(ctx, EventUserAuthenticated, u)
	return &AccessToken{Token: token, Type: TokenTypeBearer, ExpiresAt: exp, User: u}, nil
}

// resolvePrincipal looks identifier up by email first and falls back to username.
func (s *AuthService) resolvePrincipal(ctx context.Context, identifier string) (*entity.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrPrincipalNotFound
	}
	u, err := s.Users.GetByEmail(ctx, identifier)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup by email: %w", err)
	}
	u, err = s.Users.GetByUsername(ctx, identifier)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPrincipalNotFound
	}
	return nil, fmt.Errorf("lookup by username: %w", err)
}

// Register creates a user with a hashed password. No token is issued.
func (s *AuthService) Register(ctx context.Context, in ProfileInput) (*entity.User, error) {
	return s.register(ctx, in, true)
}

func (s *AuthService) register(ctx context.Context, in ProfileInput, notify bool) (*entity.User, error) {
	u, err := s.buildUser(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.Users.GetByEmail(ctx, u.Email); err == nil {
		return nil, ErrDuplicateIdentifier
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup by email: %w", err)
	}
	if _, err := s.Users.GetByUsername(ctx, u.Username); err == nil {
		return nil, ErrDuplicateIdentifier
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup by username: %w", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.Password = hash

	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrDuplicateIdentifier
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.Indexer != nil {
		if err := s.Indexer.Index(ctx, u); err != nil {
			s.logWarn(err, logrus.Fields{"user_id": u.ID}, "index user failed")
		}
	}
	if notify {
		s.publish(ctx, EventUserRegistered, u)
	}
	return u, nil
}

func (s *AuthService) buildUser(in ProfileInput) (*entity.User, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", ErrInvalidProfile)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password longer than %d bytes", ErrInvalidProfile, maxPasswordBytes)
	}
	role := entity.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		r, ok := entity.ParseRole(in.Role)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, in.Role)
		}
		role = r
	}
	birth, err := parseBirthDate(in.BirthDate)
	if err != nil {
		return nil, err
	}
	return &entity.User{
		Email:       email,
		Username:    username,
		Role:        role,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		BirthDate:   birth,
		City:        in.City,
		Country:     in.Country,
		Avatar:      in.Avatar,
		Company:     in.Company,
		JobPosition: in.JobPosition,
		Mobile:      in.Mobile,
	}, nil
}

const (
	birthDateLayout = "2006-01-02"
	// bcrypt ignores input past 72 bytes
	maxPasswordBytes = 72
)

func parseBirthDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{birthDateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: birth_date %q", ErrInvalidProfile, s)
}

// Logout revokes every valid token of userID. Repeated calls are harmless.
func (s *AuthService) Logout(ctx context.Context, userID string) (int64, error) {
	n, err := s.Ledger.RevokeAllValid(ctx, userID)
	if err != nil {
		s.logError(err, logrus.Fields{"user_id": userID}, "logout failed")
		return 0, err
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": userID, "revoked": n}).Info("user logged out")
	}
	return n, nil
}

func (s *AuthService) publish(ctx context.Context, typ string, u *entity.User) {
	if s.Events == nil {
		return
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	evt := AuthEvent{
		Type:       typ,
		UserID:     u.ID,
		Email:      u.Email,
		Username:   u.Username,
		FirstName:  u.FirstName,
		OccurredAt: now().UTC(),
	}
	if err := s.Events.Publish(ctx, evt); err != nil {
		s.logWarn(err, logrus.Fields{"user_id": u.ID, "event": typ}, "publish auth event failed")
	}
}

func (s *AuthService) logError(err error, fields logrus.Fields, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithFields(fields).Error(msg)
	}
}

func (s *AuthService) logWarn(err error, fields logrus.Fields, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithFields(fields).Warn(msg)
	}
}
