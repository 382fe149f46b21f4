package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/api/handlers"
	"github.com/yourusername/songdl-go/api/middleware"
	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/pkg/logger"
)

// Services bundles what the HTTP surface calls into
type Services struct {
	Resolver     *app.Resolver
	Orchestrator *app.Orchestrator
	Registry     *app.Registry
	Library      *app.Library
	MultiLogger  *logger.MultiLogger
	LogsDir      string
}

// SetupRouter sets up the HTTP router
func SetupRouter(svc Services, log *zap.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log, svc.MultiLogger))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(svc.Registry)
	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		searchHandler := handlers.NewSearchHandler(svc.Resolver, log)
		v1.POST("/search", searchHandler.Search)
		v1.POST("/suggestions", searchHandler.Suggestions)

		taskHandler := handlers.NewTaskHandler(svc.Orchestrator, svc.Registry, log)
		v1.POST("/downloads", taskHandler.StartDownload)
		v1.POST("/search-download", taskHandler.StartSearchDownload)
		v1.GET("/progress/:id", taskHandler.GetProgress)
		v1.GET("/tasks", taskHandler.ListTasks)

		libraryHandler := handlers.NewLibraryHandler(svc.Library, log)
		v1.GET("/library", libraryHandler.List)
		v1.GET("/music/:filename", libraryHandler.Stream)
		v1.POST("/delete", libraryHandler.Delete)

		logHandler := handlers.NewLogHandler(svc.LogsDir)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})

	return router
}
