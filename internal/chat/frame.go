package chat

import "github.com/openagora/agora/internal/common/cnst"

// ClientFrame is a single inbound frame on the chat websocket.
type ClientFrame struct {
	Type cnst.FrameType `json:"type"`

	// CONNECT
	Authorization string `json:"authorization,omitempty"`

	// SUBSCRIBE / UNSUBSCRIBE
	Topic string `json:"topic,omitempty"`

	// SEND
	Submission
}

// ServerFrame is a single outbound frame on the chat websocket.
type ServerFrame struct {
	Type    cnst.FrameType `json:"type"`
	Topic   string         `json:"topic,omitempty"`
	Payload any            `json:"payload,omitempty"`
}

// MessageFrame wraps a delivered chat message for a topic.
func MessageFrame(topic string, msg Message) ServerFrame {
	return ServerFrame{Type: cnst.FrameMessage, Topic: topic, Payload: msg}
}

// ErrorFrame wraps an error-channel payload.
func ErrorFrame(p ErrorPayload) ServerFrame {
	return ServerFrame{Type: cnst.FrameError, Payload: p}
}
