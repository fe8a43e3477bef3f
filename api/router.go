package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/misc-installer-go/api/handlers"
	"github.com/yourusername/misc-installer-go/api/middleware"
	"github.com/yourusername/misc-installer-go/internal/app"
	"github.com/yourusername/misc-installer-go/pkg/logger"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	queueMgr *app.QueueManager,
	installMgr *app.InstallManager,
	logs *logger.LoggerAdapter,
	logsDir string,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(logs))
	router.Use(middleware.Recovery(logs))

	healthHandler := handlers.NewHealthHandler(queueMgr)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		frameworkHandler := handlers.NewFrameworkHandler(installMgr, logs.General())
		frameworks := v1.Group("/frameworks")
		{
			frameworks.GET("", frameworkHandler.ListFrameworks)
			frameworks.GET("/:name", frameworkHandler.GetFramework)
			frameworks.GET("/:name/version", frameworkHandler.CheckVersion)
			frameworks.DELETE("/:name", frameworkHandler.RemoveFramework)
		}

		installHandler := handlers.NewInstallHandler(queueMgr, installMgr, logsDir, logs.General())
		installs := v1.Group("/installs")
		{
			installs.POST("", installHandler.AddInstall)
			installs.GET("", installHandler.ListInstalls)
			installs.GET("/stats", installHandler.GetStats)
			installs.GET("/:id", installHandler.GetInstall)
			installs.GET("/:id/log", installHandler.GetInstallLog)
			installs.POST("/:id/cancel", installHandler.CancelInstall)
			installs.POST("/:id/retry", installHandler.RetryInstall)
			installs.DELETE("/:id", installHandler.DeleteInstall)
		}

		logHandler := handlers.NewLogHandler(logsDir)
		wsHandler := handlers.NewLogWebSocketHandler(logsDir, logs.General())
		logRoutes := v1.Group("/logs")
		{
			logRoutes.GET("/categories", logHandler.GetCategories)
			logRoutes.GET("/ws", wsHandler.HandleWebSocket)
			logRoutes.GET("/:category", logHandler.GetLogs)
			logRoutes.GET("/:category/search", logHandler.SearchLogs)
			logRoutes.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
