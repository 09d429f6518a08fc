package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	ws "github.com/satriahrh/temantidur/server/internal/websocket"
)

// newTalkCmd sends a recorded WAV utterance to a running server over
// /ws/voice-chat and saves the spoken reply
func newTalkCmd() *cobra.Command {
	var (
		host   string
		token  string
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "talk",
		Short: "Send a WAV utterance to /ws/voice-chat and save the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			audio, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", input, err)
			}
			logger.Info("Read audio file", zap.String("file", input), zap.Int("bytes", len(audio)))

			u := url.URL{Scheme: "ws", Host: host, Path: "/ws/voice-chat"}
			headers := http.Header{}
			if token != "" {
				headers.Add("Authorization", "Bearer "+token)
			}

			logger.Info("Connecting", zap.String("url", u.String()))
			conn, _, err := websocket.DefaultDialer.Dial(u.String(), headers)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			defer conn.Close()

			if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
				return fmt.Errorf("failed to send audio: %w", err)
			}

			reply, err := readReply(conn, logger)
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, reply, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			logger.Info("Reply saved", zap.String("file", output), zap.Int("bytes", len(reply)))

			return conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost:8080", "server host and port")
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	cmd.Flags().StringVarP(&input, "input", "i", "sample_audio.wav", "WAV utterance to send")
	cmd.Flags().StringVarP(&output, "output", "o", "reply.wav", "where to save the spoken reply")
	return cmd
}

// readReply waits for the voice_response header and the WAV frame after it
func readReply(conn *websocket.Conn, logger *zap.Logger) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
		return nil, err
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		if messageType == websocket.BinaryMessage {
			return data, nil
		}

		var base ws.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			return nil, fmt.Errorf("unexpected text frame: %w", err)
		}

		switch base.Type {
		case ws.MessageTypeVoiceResponse:
			var msg ws.VoiceResponseMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return nil, err
			}
			logger.Info("Voice response",
				zap.String("userText", msg.UserText),
				zap.String("aiText", msg.AIText),
				zap.Int("audioBytes", msg.AudioBytes))
		case ws.MessageTypeError:
			var msg ws.ErrorMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("server error %s: %s", msg.Code, msg.Message)
		}
	}
}
