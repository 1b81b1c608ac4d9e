package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/internal/domain/repository"
)

// UserRepository keeps users in process memory. Used by tests and STORAGE_DRIVER=memory.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*entity.User
	byEmail    map[string]string
	byUsername map[string]string
	seq        []string
	now        func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]*entity.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return repository.ErrConflict
	}
	if _, ok := r.byUsername[u.Username]; ok {
		return repository.ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = u.ID
	r.byUsername[u.Username] = u.ID
	r.seq = append(r.seq, u.ID)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load(id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.load(id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.load(id)
}

// List returns page (zero based) of size users in creation order.
func (r *UserRepository) List(ctx context.Context, page, size int) ([]*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 0 || size <= 0 {
		return []*entity.User{}, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.seq
	start := page * size
	if start >= len(ids) {
		return []*entity.User{}, nil
	}
	end := start + size
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]*entity.User, 0, end-start)
	for _, id := range ids[start:end] {
		cp := *r.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *UserRepository) load(id string) (*entity.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
