package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-management/internal/container"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
	handlers "github.com/oksasatya/go-user-management/internal/interface/http"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
)

// UserModule wires user endpoints under /api/users.
// Public: GET /users/generate
// Authenticated: GET /users/me
// Admin: GET /users, /users/email/:email, /users/username/:username, /users/search, POST /users/batch
type UserModule struct {
	Handler *handlers.UserHandler
	Authn   middleware.Authenticator
}

func NewUserModule(h *handlers.UserHandler, authn middleware.Authenticator) *UserModule {
	return &UserModule{Handler: h, Authn: authn}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	cfg := container.GetConfig()
	rdb := container.GetRedis()
	allow := middleware.AllowIf(cfg.RateLimitBypassPrivate, middleware.AllowPrivateIP())

	rg.GET("/users/generate",
		middleware.RateLimit(rdb, cfg.ProtectedRateLimit, cfg.RateLimitWindow, middleware.KeyByIPAndPath(), allow),
		m.Handler.Generate,
	)

	auth := rg.Group("/users")
	auth.Use(
		middleware.Authenticate(m.Authn),
		middleware.RequireAuth(),
		middleware.RateLimit(rdb, cfg.ProtectedRateLimit, cfg.RateLimitWindow, middleware.KeyByUserID(), allow),
	)
	{
		auth.GET("/me", m.Handler.Me)
	}

	admin := auth.Group("", middleware.RequireRole(entity.RoleAdmin))
	{
		admin.GET("", m.Handler.List)
		admin.GET("/email/:email", m.Handler.GetByEmail)
		admin.GET("/username/:username", m.Handler.GetByUsername)
		admin.GET("/search", m.Handler.Search)
		admin.POST("/batch", m.Handler.BatchImport)
	}
}
