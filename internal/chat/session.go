package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/push"
	"github.com/barnir16/PawfectPal-sub000/internal/services"
)

// Error frame codes sent to the offending connection.
const (
	codeMalformedFrame = "malformed_frame"
	codeInvalidMessage = "invalid_message"
	codeAccessDenied   = "access_denied"
	codeNotFound       = "not_found"
	codeInternal       = "internal_error"
)

// Notifier is the push fall-back used when the recipient has no live
// connection anywhere.
type Notifier interface {
	Notify(ctx context.Context, msg *domain.Message, conv *domain.Conversation, senderName string) push.Result
}

// Session runs the receive loop for one connection: decode, dispatch,
// persist, broadcast. Each frame kind has its own handler; a failure in one
// frame never tears the connection down unless the socket itself is gone.
type Session struct {
	Conn        *Conn
	Conv        *domain.Conversation
	Registry    *Registry
	Broadcaster *Broadcaster
	Messages    *services.MessageService
	Status      *services.StatusService
	Push        Notifier // optional
	Log         zerolog.Logger
}

// Run registers the connection, confirms the handshake, and processes frames
// until the socket closes. It always leaves the registry clean: the deferred
// unregister runs on every exit path, normal or not.
func (s *Session) Run(ctx context.Context) {
	s.Registry.Register(s.Conn)
	defer func() {
		s.Registry.Unregister(s.Conn)
		s.Conn.Close(websocket.CloseNormalClosure, "session ended")
	}()

	s.sendToSelf(NewConnectionEstablished(s.Conn.ConversationID, s.Conn.UserID))

	for {
		data, err := s.Conn.Read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Log.Debug().Err(err).Str("connection_id", s.Conn.ID).Msg("connection dropped")
			}
			return
		}

		in, err := DecodeInbound(data)
		if err != nil {
			s.sendToSelf(NewError(codeMalformedFrame, "unrecognized frame"))
			continue
		}

		switch in.Type {
		case FrameMessage:
			s.handleMessage(ctx, in.Message)
		case FrameTyping:
			s.handleTyping(in.Typing)
		case FrameStatus:
			s.handleStatus(ctx, in.Status)
		default:
			// DecodeInbound only emits the three kinds above.
			s.sendToSelf(NewError(codeMalformedFrame, "unrecognized frame"))
		}
	}
}

// handleMessage persists the submission and only then fans it out: the other
// party gets a new_message broadcast, the sender gets a message_sent
// acknowledgment. When the recipient is fully offline the push dispatcher
// takes over.
func (s *Session) handleMessage(ctx context.Context, p *MessagePayload) {
	msg, err := s.Messages.Create(ctx, services.CreateInput{
		ConversationID: s.Conn.ConversationID,
		SenderID:       s.Conn.UserID,
		Body:           p.Body,
		Type:           p.Type,
		AttachmentURL:  p.AttachmentURL,
		ReplyToID:      p.ReplyToID,
	})
	if err != nil {
		s.sendToSelf(NewError(messageErrorCode(err), err.Error()))
		return
	}
	messagesAccepted.Inc()

	s.Broadcaster.Broadcast(s.Conn.ConversationID, NewNewMessage(msg), s.Conn.UserID)
	s.sendToSelf(NewMessageSent(msg))

	recipient := services.Recipient(s.Conv, s.Conn.UserID)
	if s.Push != nil && recipient != "" && !s.Registry.Online(recipient) {
		s.Push.Notify(ctx, msg, s.Conv, s.Conn.DisplayName)
	}
}

// handleTyping forwards the indicator to everyone else in the conversation.
// Nothing is persisted.
func (s *Session) handleTyping(p *TypingPayload) {
	s.Broadcaster.Broadcast(s.Conn.ConversationID, NewTyping(s.Conn.ConversationID, s.Conn.UserID, p.Typing), s.Conn.UserID)
}

// handleStatus advances the message's delivery state. Propagation to the
// other party happens inside the status service through the broadcaster, so
// there is nothing to emit here on success.
func (s *Session) handleStatus(ctx context.Context, p *StatusPayload) {
	var err error
	switch p.Status {
	case domain.StatusDelivered:
		_, err = s.Status.MarkDelivered(ctx, p.MessageID, s.Conn.UserID)
	case domain.StatusRead:
		_, err = s.Status.MarkRead(ctx, p.MessageID, s.Conn.UserID)
	}
	if err != nil {
		s.sendToSelf(NewError(messageErrorCode(err), err.Error()))
	}
}

// sendToSelf serializes and enqueues a frame for this connection only.
func (s *Session) sendToSelf(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.Log.Error().Err(err).Msg("unencodable frame")
		return
	}
	if err := s.Conn.Send(payload); err != nil {
		s.Log.Debug().Err(err).Str("connection_id", s.Conn.ID).Msg("send to self failed")
	}
}

// messageErrorCode maps service errors onto wire error codes.
func messageErrorCode(err error) string {
	switch {
	case errors.Is(err, services.ErrEmptyBody),
		errors.Is(err, services.ErrBodyTooLong),
		errors.Is(err, services.ErrInvalidMessageType):
		return codeInvalidMessage
	case errors.Is(err, services.ErrAccessDenied):
		return codeAccessDenied
	case errors.Is(err, services.ErrConversationNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		return codeNotFound
	default:
		return codeInternal
	}
}
