package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/placehub/placement-backend/internal/config"
	"github.com/placehub/placement-backend/internal/handler"
	"github.com/placehub/placement-backend/internal/middleware"
	"github.com/placehub/placement-backend/internal/response"
	"github.com/placehub/placement-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Assessment *handler.AssessmentHandler
	Attempt    *handler.AttemptHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally. Assessment payloads are large JSON.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for attempt mutations (120 requests per minute per IP).
	attemptLimiter := middleware.NewRateLimiter(120, time.Minute)

	// ─── 1. Student Group (Student JWT) ────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.GET("/assessments", handlers.Attempt.ListOpenAssessments)
		studentAPI.GET("/assessments/:template_id/payload", handlers.Attempt.GetPayload)
		studentAPI.POST("/assessments/:template_id/attempts", handlers.Attempt.BeginAttempt)
		studentAPI.GET("/assessments/:template_id/attempt", handlers.Attempt.GetAttemptState)

		attempts := studentAPI.Group("/attempts")
		attempts.Use(attemptLimiter.Middleware())
		{
			attempts.POST("/:attempt_id/answer", handlers.Attempt.SelectAnswer)
			attempts.POST("/:attempt_id/mark", handlers.Attempt.ToggleMark)
			attempts.POST("/:attempt_id/navigate", handlers.Attempt.Navigate)
			attempts.POST("/:attempt_id/submit", handlers.Attempt.SubmitAttempt)
			attempts.GET("/:attempt_id/report", handlers.Attempt.GetReport)
		}
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Officer Group (Officer JWT) ────────────────────────────────
	officerAPI := router.Group("/api/v1/officer")
	officerAPI.Use(middleware.RequireOfficerJWT(authService))
	{
		officerAPI.GET("/assessments", handlers.Assessment.ListAssessments)
		officerAPI.POST("/assessments", handlers.Assessment.CreateAssessment)
		officerAPI.GET("/assessments/:template_id", handlers.Assessment.GetAssessment)
		officerAPI.PUT("/assessments/:template_id", handlers.Assessment.UpdateAssessment)
		officerAPI.DELETE("/assessments/:template_id", handlers.Assessment.DeleteAssessment)
		officerAPI.POST("/assessments/:template_id/generate", handlers.Assessment.GenerateQuestions)
		officerAPI.POST("/assessments/:template_id/publish", handlers.Assessment.PublishAssessment)
		officerAPI.POST("/assessments/:template_id/archive", handlers.Assessment.ArchiveAssessment)
		officerAPI.GET("/assessments/:template_id/questions", handlers.Assessment.ListQuestions)
		officerAPI.GET("/assessments/:template_id/results", handlers.Assessment.ListResults)
	}

	return router
}
