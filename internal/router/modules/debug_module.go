package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-management/internal/container"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
)

type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

// Register exposes expvar counters when DEBUG_METRICS_ENABLED is set.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	cfg := container.GetConfig()
	if !cfg.DebugMetricsEnabled {
		return
	}
	// Public metrics endpoint (expvar), rate-limited per IP
	rl := middleware.RateLimit(container.GetRedis(), 120, cfg.RateLimitWindow, middleware.KeyByIP(), nil)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
