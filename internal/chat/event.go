// Package chat implements the real-time delivery layer: the connection
// registry, the broadcaster, and the per-connection session loop that ties
// them to the message and status services.
//
// This file defines the wire frames. The frame kind is a closed set: every
// inbound frame decodes into exactly one variant and the session dispatches
// over them exhaustively, so adding a frame kind is a compile-visible change
// rather than a stringly-typed one.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/services"
)

// FrameType discriminates every frame crossing the chat channel.
type FrameType string

// Client-originated frame kinds.
const (
	FrameMessage FrameType = "message"
	FrameTyping  FrameType = "typing"
	FrameStatus  FrameType = "message_status"
)

// Server-originated frame kinds.
const (
	FrameConnectionEstablished FrameType = "connection_established"
	FrameNewMessage            FrameType = "new_message"
	FrameMessageSent           FrameType = "message_sent"
	FrameError                 FrameType = "error"
)

// ErrMalformedFrame is returned for inbound data that is not a JSON object
// with a known "type" discriminator. Malformed frames are non-fatal: the
// session answers with an error frame and keeps the connection open.
var ErrMalformedFrame = errors.New("malformed frame")

// MessagePayload is the body of an inbound "message" frame.
type MessagePayload struct {
	Body          string  `json:"message"`
	Type          string  `json:"message_type,omitempty"`
	AttachmentURL string  `json:"attachment_url,omitempty"`
	ReplyToID     *string `json:"reply_to_id,omitempty"`
}

// TypingPayload is the body of an inbound "typing" frame. Typing indicators
// are ephemeral: forwarded to the other party, never persisted.
type TypingPayload struct {
	Typing bool `json:"typing"`
}

// StatusPayload is the body of an inbound "message_status" frame.
type StatusPayload struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"` // "delivered" or "read"
}

// Inbound is a decoded client frame. Exactly one payload pointer is non-nil,
// matching Type.
type Inbound struct {
	Type    FrameType
	Message *MessagePayload
	Typing  *TypingPayload
	Status  *StatusPayload
}

// rawFrame mirrors the flat JSON wire shape of all client frames.
type rawFrame struct {
	Type          FrameType `json:"type"`
	Body          string    `json:"message"`
	MessageType   string    `json:"message_type"`
	AttachmentURL string    `json:"attachment_url"`
	ReplyToID     *string   `json:"reply_to_id"`
	Typing        bool      `json:"typing"`
	MessageID     string    `json:"message_id"`
	Status        string    `json:"status"`
}

// DecodeInbound parses one client frame. Unknown or missing frame types are
// reported as ErrMalformedFrame.
func DecodeInbound(data []byte) (*Inbound, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	switch raw.Type {
	case FrameMessage:
		return &Inbound{
			Type: FrameMessage,
			Message: &MessagePayload{
				Body:          raw.Body,
				Type:          raw.MessageType,
				AttachmentURL: raw.AttachmentURL,
				ReplyToID:     raw.ReplyToID,
			},
		}, nil
	case FrameTyping:
		return &Inbound{Type: FrameTyping, Typing: &TypingPayload{Typing: raw.Typing}}, nil
	case FrameStatus:
		status := strings.ToLower(strings.TrimSpace(raw.Status))
		if raw.MessageID == "" || (status != domain.StatusDelivered && status != domain.StatusRead) {
			return nil, fmt.Errorf("%w: bad message_status payload", ErrMalformedFrame)
		}
		return &Inbound{Type: FrameStatus, Status: &StatusPayload{MessageID: raw.MessageID, Status: status}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, raw.Type)
	}
}

//
// Server-originated frames
//

// ConnectionEstablishedFrame confirms a successful handshake.
type ConnectionEstablishedFrame struct {
	Type           FrameType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
}

// NewMessageFrame carries a freshly persisted message to the other party.
type NewMessageFrame struct {
	Type    FrameType       `json:"type"`
	Message *domain.Message `json:"message"`
}

// MessageSentFrame acknowledges a submission to its originating connection
// only; the sender never receives the broadcast copy.
type MessageSentFrame struct {
	Type    FrameType       `json:"type"`
	Message *domain.Message `json:"message"`
}

// TypingFrame forwards a typing indicator.
type TypingFrame struct {
	Type           FrameType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Typing         bool      `json:"typing"`
}

// StatusFrame propagates a delivery-state transition.
type StatusFrame struct {
	Type FrameType `json:"type"`
	services.StatusEvent
}

// ErrorFrame reports a non-fatal problem to the offending connection only.
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// NewConnectionEstablished builds the handshake confirmation frame.
func NewConnectionEstablished(conversationID, userID string) ConnectionEstablishedFrame {
	return ConnectionEstablishedFrame{Type: FrameConnectionEstablished, ConversationID: conversationID, UserID: userID}
}

// NewNewMessage builds the broadcast frame for a persisted message.
func NewNewMessage(m *domain.Message) NewMessageFrame {
	return NewMessageFrame{Type: FrameNewMessage, Message: m}
}

// NewMessageSent builds the sender-only acknowledgment frame.
func NewMessageSent(m *domain.Message) MessageSentFrame {
	return MessageSentFrame{Type: FrameMessageSent, Message: m}
}

// NewTyping builds a forwarded typing indicator.
func NewTyping(conversationID, userID string, typing bool) TypingFrame {
	return TypingFrame{Type: FrameTyping, ConversationID: conversationID, UserID: userID, Typing: typing}
}

// NewStatus wraps a service-level status event for the wire.
func NewStatus(ev services.StatusEvent) StatusFrame {
	return StatusFrame{Type: FrameStatus, StatusEvent: ev}
}

// NewError builds an error frame.
func NewError(code, message string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Code: code, Message: message}
}
