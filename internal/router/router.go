// Package router wires the HTTP routes and global middleware.
package router

import (
	"time"

	"ccswitch/internal/handler"
	"ccswitch/internal/middleware"
	"ccswitch/internal/proxy"
	"ccswitch/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine: monitoring, admin API, and the /v1
// gateway. The gateway path carries no gzip middleware because SSE responses
// must reach the client uncompressed and unbuffered.
func NewRouter(
	serverHandler *handler.Server,
	proxyServer *proxy.Server,
	configManager types.ConfigManager,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(configManager.GetLogConfig()))
	router.Use(middleware.CORS(configManager.GetCORSConfig()))
	router.Use(middleware.RateLimiter(configManager.GetPerformanceConfig()))

	startTime := time.Now()
	router.Use(func(c *gin.Context) {
		c.Set("serverStartTime", startTime)
		c.Next()
	})

	registerSystemRoutes(router, serverHandler)
	registerAPIRoutes(router, serverHandler, configManager)
	registerGatewayRoutes(router, proxyServer)

	return router
}

// registerSystemRoutes registers system-level routes
func registerSystemRoutes(router *gin.Engine, serverHandler *handler.Server) {
	router.GET("/health", serverHandler.Health)
}

// registerAPIRoutes registers the authenticated admin API
func registerAPIRoutes(router *gin.Engine, serverHandler *handler.Server, configManager types.ConfigManager) {
	api := router.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.Use(middleware.Auth(configManager.GetAuthConfig()))

	tiers := api.Group("/tiers")
	{
		tiers.GET("", serverHandler.GetTiers)
		tiers.PUT("", serverHandler.UpdateTiers)
	}

	api.GET("/logs", serverHandler.GetLogs)
}

// registerGatewayRoutes registers the proxy gateway
func registerGatewayRoutes(router *gin.Engine, proxyServer *proxy.Server) {
	router.Any("/v1/*path", proxyServer.HandleProxy)
}
