package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubAuthenticator struct {
	res application.AuthResult
}

func (s stubAuthenticator) Authenticate(context.Context, string) application.AuthResult {
	return s.res
}

func serve(r *gin.Engine, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	alice := &entity.User{ID: "u1", Email: "alice@x.io", Role: entity.RoleUser}

	newEngine := func(res application.AuthResult) *gin.Engine {
		r := gin.New()
		r.Use(Authenticate(stubAuthenticator{res: res}))
		r.GET("/public", func(c *gin.Context) {
			_, ok := PrincipalFrom(c)
			c.JSON(http.StatusOK, gin.H{"authenticated": ok, "uid": c.GetString(CtxUserIDKey)})
		})
		r.GET("/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		r.GET("/admin", RequireRole(entity.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}

	t.Run("no credential passes public routes", func(t *testing.T) {
		r := newEngine(application.AuthResult{State: application.StateNoCredential})
		w := serve(r, "/public", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"authenticated":false,"uid":""}`, w.Body.String())

		assert.Equal(t, http.StatusUnauthorized, serve(r, "/private", "").Code)
		assert.Equal(t, http.StatusUnauthorized, serve(r, "/admin", "").Code)
	})

	t.Run("rejected aborts even on public routes", func(t *testing.T) {
		r := newEngine(application.AuthResult{State: application.StateRejected, Err: application.ErrTokenRevoked})
		w := serve(r, "/public", "Bearer x")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "token revoked")
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("authenticated user", func(t *testing.T) {
		r := newEngine(application.AuthResult{State: application.StateAuthenticated, Token: "x", Principal: alice})
		w := serve(r, "/public", "Bearer x")
		assert.JSONEq(t, `{"authenticated":true,"uid":"u1"}`, w.Body.String())
		assert.Equal(t, http.StatusNoContent, serve(r, "/private", "Bearer x").Code)
		assert.Equal(t, http.StatusForbidden, serve(r, "/admin", "Bearer x").Code)
	})

	t.Run("authenticated admin", func(t *testing.T) {
		root := &entity.User{ID: "u0", Email: "root@x.io", Role: entity.RoleAdmin}
		r := newEngine(application.AuthResult{State: application.StateAuthenticated, Token: "x", Principal: root})
		assert.Equal(t, http.StatusNoContent, serve(r, "/admin", "Bearer x").Code)
	})
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "token expired", rejectionReason(application.ErrTokenExpired))
	assert.Equal(t, "malformed token", rejectionReason(application.ErrTokenMalformed))
	assert.Equal(t, "invalid token signature", rejectionReason(application.ErrTokenSignatureInvalid))
	assert.Equal(t, "unknown token subject", rejectionReason(application.ErrPrincipalNotFound))
	assert.Equal(t, "invalid access token", rejectionReason(assert.AnError))
}
