// Package services – StatusService
//
// This file implements the forward-only delivery-state machine for messages:
// sent → delivered → read, with read terminal. Transitions are persisted with
// their timestamps and, when they actually advance the state, propagated to
// the other party through a pluggable notifier (the websocket broadcaster in
// production, a recorder in tests).
//
// Deliberate permissiveness, kept from the original product behavior: read
// may be reached straight from sent, without passing through delivered.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StatusEvent describes one delivery-state transition, as propagated to the
// other party of the conversation.
type StatusEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Status         string    `json:"status"`
	UserID         string    `json:"user_id"` // the actor who delivered/read
	At             time.Time `json:"at"`
}

// StatusNotifier propagates a transition to the conversation's other
// connections. Implementations must not block on slow recipients.
type StatusNotifier interface {
	NotifyStatus(conversationID string, ev StatusEvent, excludeUserID string)
}

// StatusService maintains the per-message delivery-state machine.
type StatusService struct {
	DB       *gorm.DB
	Notifier StatusNotifier // optional; nil means transitions are not propagated
}

// MarkDelivered records that actorID received the message. It returns true
// when the state actually advanced.
//
// Semantics:
//   - missing message → ErrMessageNotFound
//   - actor without conversation access → ErrAccessDenied (or not-found)
//   - actor is the message's own sender → silent no-op (self-delivery is
//     meaningless)
//   - message already read → no-op, preserving the forward-only invariant
func (s *StatusService) MarkDelivered(ctx context.Context, messageID, actorID string) (bool, error) {
	return s.advance(ctx, messageID, actorID, domain.StatusDelivered)
}

// MarkRead records that actorID read the message. Read is reachable from
// either sent or delivered; the same sender/access rules as MarkDelivered
// apply. It returns true when the state actually advanced.
func (s *StatusService) MarkRead(ctx context.Context, messageID, actorID string) (bool, error) {
	return s.advance(ctx, messageID, actorID, domain.StatusRead)
}

func (s *StatusService) advance(ctx context.Context, messageID, actorID, target string) (bool, error) {
	tr := otel.Tracer("services/StatusService")
	ctx, span := tr.Start(ctx, "advance",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("user.id", actorID),
			attribute.String("status.target", target),
		),
	)
	defer span.End()

	msg, err := repo.GetMessage(ctx, s.DB, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrMessageNotFound
		}
		return false, err
	}

	conv, err := LoadAuthorizedConversation(ctx, s.DB, msg.ConversationID, actorID)
	if err != nil {
		return false, err
	}

	// A sender cannot advance their own message.
	if actorID == msg.SenderID {
		return false, nil
	}
	// Already at or past the target state.
	if domain.StatusRank(msg.Status) >= domain.StatusRank(target) {
		return false, nil
	}

	at := time.Now().UTC()
	changed, err := repo.UpdateMessageStatus(ctx, s.DB, messageID, target, at)
	if err != nil || !changed {
		// !changed without error means a concurrent actor won the race; the
		// state is already at least as advanced, so there is nothing to emit.
		return false, err
	}

	if s.Notifier != nil {
		s.Notifier.NotifyStatus(conv.ID, StatusEvent{
			MessageID:      messageID,
			ConversationID: conv.ID,
			Status:         target,
			UserID:         actorID,
			At:             at,
		}, actorID)
	}
	return true, nil
}
