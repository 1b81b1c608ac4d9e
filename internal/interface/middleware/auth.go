package middleware

import (
	"context"
	"errors"
	"expvar"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxPrincipalKey = "principal"
	CtxTokenKey     = "access_token"
)

// rejections counts rejected bearer tokens by reason, served on /api/debug/vars.
var rejections = expvar.NewMap("auth_rejections")

// Authenticator runs the per-request authentication state machine.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) application.AuthResult
}

// Authenticate reads the Authorization header. A rejected bearer token aborts
// with 401; a request without one passes through so public routes keep working.
// On success it sets userID, principal and access_token in the Gin context.
func Authenticate(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := authn.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		switch res.State {
		case application.StateAuthenticated:
			c.Set(CtxUserIDKey, res.Principal.ID)
			c.Set(CtxPrincipalKey, res.Principal)
			c.Set(CtxTokenKey, res.Token)
			c.Next()
		case application.StateRejected:
			reason := rejectionReason(res.Err)
			rejections.Add(reason, 1)
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			response.Error[any](c, http.StatusUnauthorized, reason, nil)
			c.Abort()
		default:
			c.Next()
		}
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, application.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, application.ErrTokenRevoked):
		return "token revoked"
	case errors.Is(err, application.ErrTokenSignatureInvalid):
		return "invalid token signature"
	case errors.Is(err, application.ErrTokenMalformed):
		return "malformed token"
	case errors.Is(err, application.ErrPrincipalNotFound):
		return "unknown token subject"
	}
	return "invalid access token"
}

// PrincipalFrom returns the user resolved by Authenticate, if any.
func PrincipalFrom(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

// RequireAuth rejects requests that reached it without an authenticated principal.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole answers 401 without a principal and 403 when the principal lacks role.
func RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		if err := application.Authorize(p, role); err != nil {
			response.Error[any](c, http.StatusForbidden, "forbidden", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
