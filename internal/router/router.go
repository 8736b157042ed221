package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/config"
	"github.com/stemsi/qiyas-mock/internal/handler"
	"github.com/stemsi/qiyas-mock/internal/middleware"
	"github.com/stemsi/qiyas-mock/internal/response"
	"github.com/stemsi/qiyas-mock/internal/service"
)

// catalogMaxAge is how long clients may reuse the exam catalog.
const catalogMaxAge = 300

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Exam     *handler.ExamHandler
	Session  *handler.SessionHandler
	History  *handler.HistoryHandler
	Question *handler.QuestionHandler
	WS       *handler.WSHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work started by middlewares.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID and access log on every request.
	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute, middleware.ByClientIP)
	requireUser := []gin.HandlerFunc{
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	}

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", append(requireUser, handlers.Auth.Me)...)
		auth.POST("/logout", append(requireUser, handlers.Auth.Logout)...)
	}

	// ─── 2. Learner Group (JWT + Single Device) ────────────────────────
	api := router.Group("/api/v1")
	api.Use(requireUser...)
	{
		exams := api.Group("/exams", middleware.CacheControl(catalogMaxAge))
		{
			exams.GET("", handlers.Exam.ListExams)
			exams.GET("/:template_id", handlers.Exam.GetExam)
		}

		session := api.Group("/session", middleware.NoStore())
		{
			session.GET("", handlers.Session.Get)
			session.DELETE("", handlers.Session.Abandon)
			session.POST("/select", handlers.Session.Select)
			session.POST("/begin", handlers.Session.Begin)
			session.POST("/answer", handlers.Session.Answer)
			session.POST("/navigate", handlers.Session.Navigate)
			session.POST("/finish-section", handlers.Session.FinishSection)
			session.POST("/review-choice", handlers.Session.ReviewChoice)
			session.POST("/prayer-break", handlers.Session.PrayerBreak)
			session.POST("/resume", handlers.Session.Resume)
			session.GET("/results", handlers.Session.Results)
		}

		api.GET("/history", handlers.History.ListAttempts)
		api.GET("/history/:attempt_id", handlers.History.GetAttempt)
	}

	// ─── 3. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService), middleware.CheckSingleDeviceSession(authService))
	{
		ws.GET("/session/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (JWT + Role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(append(requireUser, middleware.RequireAdmin())...)
	{
		adminAPI.GET("/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/questions", handlers.Question.AddQuestion)
		adminAPI.POST("/questions/import", handlers.Question.ImportQuestions)
		adminAPI.GET("/questions/stats", handlers.Question.QuestionStats)
		adminAPI.DELETE("/questions/:id", handlers.Question.DeleteQuestion)

		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
