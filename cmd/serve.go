package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/internal/api"
	"github.com/satriahrh/temantidur/server/internal/fallback"
	"github.com/satriahrh/temantidur/server/internal/persona"
	"github.com/satriahrh/temantidur/server/internal/websocket"
	"github.com/satriahrh/temantidur/server/usecase"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompts, err := persona.NewBuilder()
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	fallbacks, err := fallback.Load()
	if err != nil {
		return fmt.Errorf("failed to load fallback messages: %w", err)
	}

	// Initialize adapters
	llmService, err := newLLM(ctx, cfg, logger)
	if err != nil {
		return err
	}
	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		return err
	}
	speechToText, closeSTT, err := newSpeechToText(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSTT()
	textToSpeech, err := newTextToSpeech(cfg, logger)
	if err != nil {
		return err
	}
	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		return err
	}

	// Initialize usecase services
	voiceService := usecase.NewVoiceService(speechToText, textToSpeech, llmService, prompts, fallbacks,
		usecase.VoiceConfig{TempDir: cfg.Voice.TempDir, Voices: voiceNames(cfg)}, logger)
	services := api.Services{
		Chat:    usecase.NewChatService(llmService, prompts, fallbacks, logger),
		Emotion: usecase.NewEmotionService(classifier, llmService, prompts, fallbacks, logger),
		Voice:   voiceService,
		Recap:   usecase.NewRecapService(llmService, prompts, fallbacks, logger),
	}

	// Initialize WebSocket hub with the voice service
	hub := websocket.NewHub(voiceService, logger)
	go hub.Run(ctx)

	e := api.NewServer(cfg.Server, logger)
	api.InitRoutes(e, services, hub, verifier, logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("Server started",
		zap.String("addr", addr),
		zap.String("llm", cfg.LLM.Backend),
		zap.String("vision", cfg.Vision.Backend),
		zap.String("stt", cfg.STT.Backend),
		zap.String("tts", cfg.TTS.Backend),
		zap.String("auth", cfg.Auth.Mode))

	// Wait for interrupt signal to gracefully shutdown the server
	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
