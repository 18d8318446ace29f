package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/handler"
	"github.com/prepsala/examhall-backend/internal/middleware"
	"github.com/prepsala/examhall-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Registration *handler.RegistrationHandler
	Exam         *handler.ExamHandler
	Dashboard    *handler.DashboardHandler
	WS           *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve the candidate-facing frontend with caching (1 hour).
	staticGroup := router.Group("/static")
	staticGroup.Use(middleware.CacheControl(3600))
	{
		staticGroup.Static("/", cfg.StaticDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for registration (30 requests per minute per IP).
	registerLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Candidate Group (Public) ───────────────────────────────────
	examAPI := router.Group("/api/v1/exam")
	{
		examAPI.GET("/schema", handlers.Exam.GetSchema)
		examAPI.GET("/paper", handlers.Exam.GetPaper)
		examAPI.POST("/register", registerLimiter.Middleware(), handlers.Registration.Register)
		examAPI.POST("/attempts/:attempt_id/submit", handlers.Exam.Submit)
		examAPI.GET("/attempts/:attempt_id", handlers.Exam.GetAttempt)
	}

	// ─── 2. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	{
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboard)
		adminAPI.GET("/results", handlers.Dashboard.GetResults)
		adminAPI.POST("/bank/refresh", handlers.Dashboard.RefreshBank)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/admin/results/stream", handlers.WS.ResultsStream)
	}

	return router
}
