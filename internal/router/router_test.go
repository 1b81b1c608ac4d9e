package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-management/config"
	"github.com/oksasatya/go-user-management/internal/container"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-user-management/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "test",
		StorageDriver:       "memory",
		JWTSecret:           "router-test-secret",
		AccessTTL:           time.Hour,
		BcryptCost:          4,
		RateLimitWindow:     time.Minute,
		AuthRateLimit:       100,
		RegisterRateLimit:   100,
		ProtectedRateLimit:  100,
		ImportMaxBytes:      1 << 20,
		GenerateMaxCount:    100,
		DebugMetricsEnabled: true,
		ESUsersIndex:        "users",
	}
}

func newServer(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	container.Reset()
	t.Cleanup(container.Reset)
	container.SetConfig(cfg)
	mr := miniredis.RunT(t)
	container.SetRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	r := gin.New()
	r.Use(middleware.RealIP(false), middleware.RequestIDMiddleware())
	reg := NewRegistry(r)
	InitModules(reg)
	reg.RegisterAll()
	return r
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Data.AccessToken
}

func TestAliceScenario(t *testing.T) {
	r := newServer(t, testConfig())

	w := call(t, r, http.MethodPost, "/api/register", "", gin.H{
		"email": "alice@example.com", "username": "alice", "password": "pw-alice",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t1 := tokenOf(t, call(t, r, http.MethodPost, "/api/auth", "", gin.H{"identifier": "alice@example.com", "password": "pw-alice"}))
	t2 := tokenOf(t, call(t, r, http.MethodPost, "/api/auth", "", gin.H{"identifier": "alice", "password": "pw-alice"}))
	assert.NotEqual(t, t1, t2)

	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/users/me", t1, nil).Code)
	assert.Equal(t, http.StatusOK, call(t, r, http.MethodGet, "/api/users/me", t2, nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodGet, "/api/users", t2, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/users", "", nil).Code)

	assert.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/logout", t2, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/users/me", t2, nil).Code)
}

func TestPublicRoutesIgnoreStaleTokens(t *testing.T) {
	r := newServer(t, testConfig())
	w := call(t, r, http.MethodGet, "/api/users/generate?count=2", "stale", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = 2
	r := newServer(t, cfg)

	body := gin.H{"identifier": "nobody", "password": "x"}
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodPost, "/api/auth", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodPost, "/api/auth", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, call(t, r, http.MethodPost, "/api/auth", "", body).Code)
}

func TestDebugVarsToggle(t *testing.T) {
	r := newServer(t, testConfig())
	w := call(t, r, http.MethodGet, "/api/debug/vars", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth_rejections")

	cfg := testConfig()
	cfg.DebugMetricsEnabled = false
	r = newServer(t, cfg)
	assert.Equal(t, http.StatusNotFound, call(t, r, http.MethodGet, "/api/debug/vars", "", nil).Code)
}

type pingModule struct{}

func (pingModule) Register(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("mw")) })
}

func TestRegistry(t *testing.T) {
	r := gin.New()
	reg := NewRegistry(r)
	reg.Use(func(c *gin.Context) { c.Set("mw", "ran"); c.Next() })
	reg.Add(pingModule{})
	reg.RegisterAll()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ran", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","modules":1}`, w.Body.String())
}
