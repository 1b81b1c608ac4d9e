package router

import "github.com/gin-gonic/gin"

// Module is a feature that registers its own routes, middleware and rate limits on the /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
