package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/config"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/realtime"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
)

type HandlerManager struct {
	attemptHandler    *AttemptHandler
	proctoringHandler *ProctoringHandler
	analyticsHandler  *AnalyticsHandler
	authMiddleware    gin.HandlerFunc
	rateLimiter       *RateLimiter
	healthCheck       func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	hub *realtime.Hub,
	cfg *config.Config,
	userRepo repositories.UserRepository,
	logger utils.Logger,
) *HandlerManager {
	auth := NewCasdoorAuthMiddleware(cfg.Casdoor, userRepo, logger)
	return newHandlerManager(serviceManager, hub, cfg, auth.AuthMiddleware(), logger)
}

// newHandlerManager lets tests swap the Casdoor middleware for one that trusts headers
func newHandlerManager(
	serviceManager services.ServiceManager,
	hub *realtime.Hub,
	cfg *config.Config,
	authMiddleware gin.HandlerFunc,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(
			serviceManager.Attempt(),
			serviceManager.Answer(),
			serviceManager.Results(),
			logger,
		),
		proctoringHandler: NewProctoringHandler(serviceManager.Proctoring(), hub, cfg.CORS.AllowedOrigins, logger),
		analyticsHandler:  NewAnalyticsHandler(serviceManager.Analytics(), logger),
		authMiddleware:    authMiddleware,
		rateLimiter:       NewRateLimiter(cfg.RateLimit),
		healthCheck:       serviceManager.HealthCheck,
	}
}

// RateLimiter exposes the limiter so the caller can run its cleanup loop
func (hm *HandlerManager) RateLimiter() *RateLimiter {
	return hm.rateLimiter
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware)
	{
		limited := hm.rateLimiter.Middleware()

		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start/:quiz_id", limited, hm.attemptHandler.StartAttempt)
			attempts.PATCH("/:id/answer", hm.attemptHandler.SaveAnswer)
			attempts.POST("/:id/submit", limited, hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/questions", hm.attemptHandler.GetAttemptQuestions)
			attempts.GET("/:id/results", hm.attemptHandler.GetResults)
			attempts.GET("/:id/results/export", hm.attemptHandler.ExportResults)
			attempts.GET("/user/:user_id/history", hm.attemptHandler.GetHistory)
		}

		// No limiter here: clients report events in bursts
		proctoring := v1.Group("/proctoring")
		{
			proctoring.POST("/:id/event", hm.proctoringHandler.LogEvent)
			proctoring.GET("/:id/events", hm.proctoringHandler.ListEvents)
			proctoring.POST("/:id/webcam-snapshot", hm.proctoringHandler.UploadSnapshot)
			proctoring.POST("/:id/face-detection", hm.proctoringHandler.FaceDetection)
			proctoring.GET("/:id/live", RequireRole(models.RoleInstructor, models.RoleAdmin), hm.proctoringHandler.LiveFeed)
		}

		quizzes := v1.Group("/quizzes")
		quizzes.Use(RequireRole(models.RoleInstructor, models.RoleAdmin))
		{
			quizzes.GET("/:quiz_id/analytics", hm.analyticsHandler.GetQuizAnalytics)
			quizzes.GET("/:quiz_id/analytics/export", hm.analyticsHandler.ExportQuizAnalytics)
		}
	}
}

// Health reports database and cache reachability
func (hm *HandlerManager) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hm.healthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "quiz-attempt-service",
	})
}
