package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-user-management/internal/domain/repository"
)

// UserService serves profile reads, admin lookups, search, bulk import and fake data generation.
type UserService struct {
	Users    repo.UserRepository
	Auth     *AuthService
	Indexer  UserIndexer
	Archiver ImportArchiver
	Logger   *logrus.Logger
}

func NewUserService(users repo.UserRepository, auth *AuthService, indexer UserIndexer, archiver ImportArchiver, logger *logrus.Logger) *UserService {
	return &UserService{Users: users, Auth: auth, Indexer: indexer, Archiver: archiver, Logger: logger}
}

func (s *UserService) lookup(u *entity.User, err error) (*entity.User, error) {
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.lookup(s.Users.GetByID(ctx, id))
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.lookup(s.Users.GetByEmail(ctx, email))
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.lookup(s.Users.GetByUsername(ctx, username))
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is one slice of the user listing.
type Page struct {
	Items      []*entity.User
	Page       int
	Size       int
	Total      int64
	TotalPages int
}

// List returns the zero-based page of users. Out-of-range sizes fall back to DefaultPageSize.
func (s *UserService) List(ctx context.Context, page, size int) (Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	total, err := s.Users.Count(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("count users: %w", err)
	}
	items, err := s.Users.List(ctx, page, size)
	if err != nil {
		return Page{}, fmt.Errorf("list users: %w", err)
	}
	return Page{
		Items:      items,
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// Search queries the user index. Without an indexer the result is empty.
func (s *UserService) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.Indexer == nil {
		return []map[string]any{}, nil
	}
	return s.Indexer.Search(ctx, q, size)
}

// ImportFailure explains why one record of an import file was skipped.
type ImportFailure struct {
	Index  int    `json:"index"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// ImportSummary tallies a bulk import. Total == Imported + Failed.
type ImportSummary struct {
	Total    int             `json:"total"`
	Imported int             `json:"imported"`
	Failed   int             `json:"failed"`
	Archive  string          `json:"archive,omitempty"`
	Failures []ImportFailure `json:"failures,omitempty"`
}

// BulkImport registers every profile of a JSON array file. Duplicates and invalid
// records are counted as failed; only an unreadable file or a canceled context
// aborts the batch.
func (s *UserService) BulkImport(ctx context.Context, filename string, r io.Reader) (ImportSummary, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read import file: %w", err)
	}
	var profiles []ProfileInput
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %v", ErrInvalidImportFile, err)
	}

	sum := ImportSummary{Total: len(profiles)}
	if s.Archiver != nil {
		loc, err := s.Archiver.Archive(ctx, filename, bytes.NewReader(raw))
		if err != nil {
			s.logWarn(err, logrus.Fields{"file": filename}, "archive import file failed")
		} else {
			sum.Archive = loc
		}
	}

	for i, p := range profiles {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if _, err := s.Auth.register(ctx, p, false); err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, ImportFailure{Index: i, Email: p.Email, Reason: importReason(err)})
			if !isRecordError(err) {
				s.logWarn(err, logrus.Fields{"index": i, "email": p.Email}, "import record failed")
			}
			continue
		}
		sum.Imported++
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"file": filename, "total": sum.Total, "imported": sum.Imported, "failed": sum.Failed,
		}).Info("bulk import finished")
	}
	return sum, nil
}

func isRecordError(err error) bool {
	return errors.Is(err, ErrDuplicateIdentifier) || errors.Is(err, ErrInvalidProfile) || errors.Is(err, ErrInvalidRole)
}

func importReason(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateIdentifier):
		return "duplicate"
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidProfile):
		return err.Error()
	}
	return "internal error"
}

// DefaultGenerateCount is used when the caller does not ask for a count.
const DefaultGenerateCount = 100

// Generate builds count random profiles in the import file format.
// Roles are split randomly between ADMIN and USER; passwords are 6 to 10 characters.
func (s *UserService) Generate(count int, seed int64) []ProfileInput {
	if count < 0 {
		count = 0
	}
	f := gofakeit.New(seed)
	minBirth := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	maxBirth := time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)

	out := make([]ProfileInput, 0, count)
	for i := 0; i < count; i++ {
		role := entity.RoleUser
		if f.Bool() {
			role = entity.RoleAdmin
		}
		out = append(out, ProfileInput{
			FirstName:   f.FirstName(),
			LastName:    f.LastName(),
			BirthDate:   f.DateRange(minBirth, maxBirth).Format(birthDateLayout),
			City:        f.City(),
			Country:     f.CountryAbr(),
			Avatar:      f.URL(),
			Company:     f.Company(),
			JobPosition: f.JobTitle(),
			Mobile:      f.Phone(),
			Username:    f.Username(),
			Email:       f.Email(),
			Password:    f.Password(true, true, true, false, false, f.IntRange(6, 10)),
			Role:        role.String(),
		})
	}
	return out
}

func (s *UserService) logWarn(err error, fields logrus.Fields, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithFields(fields).Warn(msg)
	}
}
