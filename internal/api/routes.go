package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/internal/auth"
	"github.com/satriahrh/temantidur/server/internal/websocket"
	"github.com/satriahrh/temantidur/server/usecase"
)

// Chatter answers a chat conversation
type Chatter interface {
	Chat(ctx context.Context, req usecase.ChatRequest) usecase.ChatResponse
	MalformedRequest() usecase.ChatResponse
}

// EmotionDetector detects an emotion in an uploaded image
type EmotionDetector interface {
	DetectEmotion(ctx context.Context, upload usecase.ImageUpload) (*usecase.EmotionResponse, *usecase.SoftFailure, error)
}

// Recapper summarizes a day of conversation
type Recapper interface {
	Recap(ctx context.Context, req usecase.RecapRequest) (*usecase.RecapResponse, *usecase.SoftFailure)
	MalformedRequest() *usecase.SoftFailure
}

// Services are the use cases exposed over HTTP
type Services struct {
	Chat    Chatter
	Emotion EmotionDetector
	Voice   websocket.VoiceResponder
	Recap   Recapper
}

// InitRoutes initializes all API routes. A nil verifier leaves the
// companion endpoints unauthenticated.
func InitRoutes(e *echo.Echo, services Services, hub *websocket.Hub, verifier auth.Verifier, logger *zap.Logger) {
	h := &handler{services: services, logger: logger}

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, BannerResponse{
			Message:   "Selamat datang di Teman Tidur API 🌙✨",
			Endpoints: Endpoints,
		})
	})

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: ServiceName,
		})
	})

	var middlewares []echo.MiddlewareFunc
	if verifier != nil {
		middlewares = append(middlewares, auth.Middleware(verifier, logger))
	} else {
		logger.Warn("Authentication disabled")
	}

	// Route-level middleware keeps unknown paths answering 404 instead of 401
	e.POST("/chat", h.chat, middlewares...)
	e.POST("/detect-emotion", h.detectEmotion, middlewares...)
	e.POST("/voice-chat", h.voiceChat, middlewares...)
	e.POST("/recap", h.recap, middlewares...)

	// WebSocket endpoint, authenticated before the upgrade
	e.GET("/ws/voice-chat", func(c echo.Context) error {
		return websocket.HandleVoiceChat(hub, c)
	}, middlewares...)
}
