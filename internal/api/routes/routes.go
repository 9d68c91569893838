package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"selenex/internal/api/handlers"
	"selenex/internal/api/middleware"
	"selenex/internal/logging"
	"selenex/pkg/auth"
)

// SetupRoutes wires the control surface. A nil issuer disables authentication.
func SetupRoutes(h *handlers.RecordingHandler, issuer *auth.Issuer, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(logging.GinLogger(logger))
	router.Use(logging.GinRecovery(logger))
	router.Use(middleware.CORSMiddleware())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Browsers cannot send headers on websocket upgrades; the session id gates access.
		v1.GET("/ws/recording", h.RecordingWebSocket)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(issuer))
		{
			recording := protected.Group("/recording")
			{
				recording.POST("/start", h.StartRecording)
				recording.POST("/remote", h.StartRemote)
				recording.POST("/events", h.IngestEvents)
				recording.POST("/stop", h.StopRecording)
				recording.GET("/status", h.GetRecordingStatus)
				recording.GET("/export", h.ExportRecording)
			}

			sessions := protected.Group("/sessions")
			{
				sessions.GET("", h.ListSessions)
				sessions.GET("/:id", h.GetSession)
				sessions.GET("/:id/export", h.ExportSession)
				sessions.DELETE("/:id", h.DeleteSession)
			}
		}
	}

	return router
}
