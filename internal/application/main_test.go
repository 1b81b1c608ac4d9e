package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/internal/infrastructure/memory"
	"github.com/oksasatya/go-user-management/pkg/helpers"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []AuthEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []string
	err     error
}

func (f *fakeIndexer) Index(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, u.ID)
	return f.err
}

func (f *fakeIndexer) Search(_ context.Context, q string, _ int) ([]map[string]any, error) {
	return []map[string]any{{"q": q}}, nil
}

var errArchive = errors.New("archive down")

type fakeArchiver struct {
	name string
	body []byte
	fail bool
}

func (a *fakeArchiver) Archive(_ context.Context, filename string, r io.Reader) (string, error) {
	if a.fail {
		return "", errArchive
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	a.name, a.body = filename, b
	return "gs://imports/" + filename, nil
}

type fixture struct {
	clock  *testClock
	users  *memory.UserRepository
	tokens *memory.TokenRepository
	issuer *helpers.TokenIssuer
	ledger *TokenLedger
	auth   *AuthService
	authn  *RequestAuthenticator
	svc    *UserService
	events *recordingPublisher
}

const testTTL = time.Hour

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	users := memory.NewUserRepository()
	tokens := memory.NewTokenRepository()
	issuer := helpers.NewTokenIssuer("test-secret").WithClock(clock.Now)
	ledger := NewTokenLedger(tokens, issuer)
	ledger.Now = clock.Now
	auth := NewAuthService(users, ledger, issuer, helpers.NewBcryptHasher(bcrypt.MinCost), testTTL, nil)
	auth.Now = clock.Now
	events := &recordingPublisher{}
	auth.Events = events
	return &fixture{
		clock:  clock,
		users:  users,
		tokens: tokens,
		issuer: issuer,
		ledger: ledger,
		auth:   auth,
		authn:  NewRequestAuthenticator(issuer, ledger, users),
		svc:    NewUserService(users, auth, nil, nil, nil),
		events: events,
	}
}

func (f *fixture) register(t *testing.T, email, username, password, role string) *entity.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), ProfileInput{
		Email: email, Username: username, Password: password, Role: role, FirstName: username,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) validCount(t *testing.T, userID string) int {
	t.Helper()
	hist, err := f.ledger.History(context.Background(), userID)
	require.NoError(t, err)
	n := 0
	for _, rec := range hist {
		if rec.Valid() {
			n++
		}
	}
	return n
}
