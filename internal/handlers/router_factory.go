package handlers

import (
	"net/http"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/middleware"
	"github.com/AgamW017/vibe/internal/observability"
	serviceinterfaces "github.com/AgamW017/vibe/internal/serviceinterfaces"
	"github.com/AgamW017/vibe/internal/services"
	"github.com/AgamW017/vibe/internal/version"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// IMPORTANT: request schemas for new POST endpoints live in internal/middleware/schemas
// and must be registered with RequestValidationMiddleware below.

// NewRouter builds the HTTP engine with the middleware stack and every route
func NewRouter(
	cfg *config.Config,
	feedbackStore serviceinterfaces.FeedbackStore,
	generationFacade serviceinterfaces.GenerationFacade,
	aiStats ConcurrencyReporter,
	logger *observability.Logger,
) *gin.Engine {
	if !cfg.IsTest {
		gin.SetMode(gin.ReleaseMode)
		if cfg.Server.Debug {
			gin.SetMode(gin.DebugMode)
		}
	}

	router := gin.New()
	router.RedirectTrailingSlash = false

	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.NewErrorRecoveryConfig(cfg.Server.CircuitBreaker)))
	router.Use(middleware.RequestLoggingMiddleware(logger))

	// Health check stays outside tracing
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.OpenTelemetry.ServiceName})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling(cfg.OpenTelemetry.ServiceName)...)

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", services.APIKeyHeader, middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	schemas := middleware.MustLoadEmbeddedSchemas()
	feedbackHandler := NewFeedbackHandler(feedbackStore, cfg, logger)
	generationHandler := NewGenerationHandler(generationFacade, logger)
	routeListing := NewRouteListingHandler(cfg.OpenTelemetry.ServiceName)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Get(cfg.OpenTelemetry.ServiceName))
		})
		v1.GET("/routes", routeListing.GetRouteListingJSON)
		v1.GET("/generation/stats", func(c *gin.Context) {
			if aiStats == nil {
				StandardizeHTTPError(c, http.StatusServiceUnavailable, "Generation stats unavailable", "AI engine client is not configured")
				return
			}
			c.JSON(http.StatusOK, aiStats.GetConcurrencyStats())
		})

		feedback := v1.Group("/feedback")
		{
			feedback.POST("",
				middleware.RequestValidationMiddleware(schemas, middleware.SchemaFeedbackSubmission, logger),
				feedbackHandler.SubmitFeedback)
			feedback.GET("", feedbackHandler.ListFeedback)
			feedback.GET("/:id", feedbackHandler.GetFeedback)
		}

		v1.POST("/videos/process",
			middleware.RequestValidationMiddleware(schemas, middleware.SchemaProcessVideoRequest, logger),
			generationHandler.ProcessVideo)
		v1.GET("/playlists/urls", generationHandler.GetPlaylistURLs)
	}

	router.NoRoute(func(c *gin.Context) {
		StandardizeHTTPError(c, http.StatusNotFound, "Route not found", c.Request.Method+" "+c.Request.URL.Path)
	})

	routeListing.CollectRoutes(router)

	return router
}
