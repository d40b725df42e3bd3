package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clipboard-backend/internal/clipboard"
	"clipboard-backend/internal/shared/config"
	"clipboard-backend/internal/shared/metrics"
	"clipboard-backend/internal/shared/server/middleware"
	"clipboard-backend/internal/shared/server/respond"
)

// RouterDeps carries everything the router needs wired up.
type RouterDeps struct {
	Config    config.Config
	Clipboard *clipboard.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	admin := middleware.AdminSecret(deps.Config.AdminSecret)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	deps.Clipboard.RegisterRoutes(api, admin)

	r.GET("/metrics", metrics.Handler())

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
