package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/usecase"
)

// newSpeakCmd synthesizes a sentence with the configured TTS backend so
// voices can be checked without going through speech recognition
func newSpeakCmd() *cobra.Command {
	var (
		text   string
		lang   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Synthesize text to a WAV file with the configured voice",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			textToSpeech, err := newTextToSpeech(cfg, logger)
			if err != nil {
				return err
			}

			language := entities.ParseLanguage(lang)
			voice := usecase.DefaultVoices[language]
			if configured := voiceNames(cfg)[language]; configured != "" {
				voice = configured
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			logger.Info("Converting text to speech",
				zap.String("text", text),
				zap.String("voice", voice),
				zap.String("language", language.String()))

			wav, err := textToSpeech.SynthesizeAudio(ctx, text, repositories.VoiceConfig{
				Voice:    voice,
				Language: language.Locale(),
			})
			if err != nil {
				return fmt.Errorf("failed to synthesize audio: %w", err)
			}

			if err := os.WriteFile(output, wav, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			logger.Info("Audio saved", zap.String("file", output), zap.Int("bytes", len(wav)))
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "Halo! Selamat malam, semoga tidurmu nyenyak ya.", "text to speak")
	cmd.Flags().StringVar(&lang, "lang", "id", "language code (id or en)")
	cmd.Flags().StringVarP(&output, "output", "o", "speech.wav", "output WAV file")
	return cmd
}
