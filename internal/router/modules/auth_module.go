package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-management/internal/container"
	handlers "github.com/oksasatya/go-user-management/internal/interface/http"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
)

// AuthModule wires credential endpoints.
// Public: POST /api/auth, POST /api/register
// Protected: POST /api/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Authn   middleware.Authenticator
}

func NewAuthModule(h *handlers.AuthHandler, authn middleware.Authenticator) *AuthModule {
	return &AuthModule{Handler: h, Authn: authn}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	cfg := container.GetConfig()
	rdb := container.GetRedis()
	allow := middleware.AllowIf(cfg.RateLimitBypassPrivate, middleware.AllowPrivateIP())

	// Public with IP-based rate limits
	authLimiter := middleware.RateLimit(rdb, cfg.AuthRateLimit, cfg.RateLimitWindow, middleware.KeyByIPAndPath(), allow)
	registerLimiter := middleware.RateLimit(rdb, cfg.RegisterRateLimit, cfg.RateLimitWindow, middleware.KeyByIPAndPath(), allow)

	rg.POST("/auth", authLimiter, m.Handler.Login)
	rg.POST("/register", registerLimiter, m.Handler.Register)

	rg.POST("/logout",
		middleware.Authenticate(m.Authn),
		middleware.RequireAuth(),
		middleware.RateLimit(rdb, cfg.ProtectedRateLimit, cfg.RateLimitWindow, middleware.KeyByUserID(), allow),
		m.Handler.Logout,
	)
}
