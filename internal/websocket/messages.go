package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeVoiceResponse MessageType = "voice_response"
	MessageTypePing          MessageType = "ping"
	MessageTypePong          MessageType = "pong"
	MessageTypeError         MessageType = "error"
)

// Error codes sent in error frames
const (
	ErrorCodeInvalidMessage   = "invalid_message"
	ErrorCodeUnsupportedAudio = "unsupported_audio"
	ErrorCodeProcessingFailed = "processing_failed"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

// VoiceResponseMessage announces the binary WAV frame that follows it
type VoiceResponseMessage struct {
	BaseMessage
	UserText    string `json:"user_text"`
	AIText      string `json:"ai_text"`
	AudioFormat string `json:"audio_format"`
	AudioBytes  int    `json:"audio_bytes"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func newBase(t MessageType, id string) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: id,
	}
}

// ParseControlMessage decodes a text frame. Only ping is accepted from
// clients; utterances arrive as binary frames.
func ParseControlMessage(data []byte) (*PingMessage, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil
	case "":
		return nil, fmt.Errorf("message type is required")
	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// CreateVoiceResponseMessage creates the header frame of a spoken reply
func CreateVoiceResponseMessage(userText, aiText, format string, audioBytes int) *VoiceResponseMessage {
	return &VoiceResponseMessage{
		BaseMessage: newBase(MessageTypeVoiceResponse, uuid.NewString()),
		UserText:    userText,
		AIText:      aiText,
		AudioFormat: format,
		AudioBytes:  audioBytes,
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError, uuid.NewString()),
		Code:        code,
		Message:     message,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(id, data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong, id),
		Data:        data,
	}
}
