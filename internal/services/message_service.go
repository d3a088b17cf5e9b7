// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of chat messages: validated creation on behalf of a
// conversation party, and paginated history retrieval. The websocket session
// handler calls Create before broadcasting, which is what gives the channel
// its send-after-persist ordering guarantee: Create returns only once the row
// is durably stored.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// conversation/user identifiers and pagination parameters.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Pagination bounds for conversation history.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// MessageService coordinates message persistence and history retrieval.
type MessageService struct {
	DB *gorm.DB

	// MaxBodyRunes caps message length; 0 disables the check.
	MaxBodyRunes int
}

// CreateInput carries the caller-supplied fields of a message submission.
type CreateInput struct {
	ConversationID string
	SenderID       string
	Body           string
	Type           string // defaults to "text" when empty
	AttachmentURL  string
	ReplyToID      *string
}

// HistoryPage is one page of conversation history in chronological order,
// together with the metadata the pagination contract requires.
type HistoryPage struct {
	Messages      []domain.Message `json:"messages"`
	TotalMessages int64            `json:"total_messages"`
	HasMore       bool             `json:"has_more"`
	CurrentOffset int              `json:"current_offset"`
	Limit         int              `json:"limit"`
}

// Create validates the submission, checks that the sender may participate in
// the conversation, and persists the message in status "sent". The returned
// message is the row as stored; callers broadcast it only after this returns.
func (s *MessageService) Create(ctx context.Context, in CreateInput) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("conversation.id", in.ConversationID),
			attribute.String("user.id", in.SenderID),
		),
	)
	defer span.End()

	in.Body = strings.TrimSpace(in.Body)
	if in.Body == "" {
		return nil, ErrEmptyBody
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(in.Body) > s.MaxBodyRunes {
		return nil, ErrBodyTooLong
	}
	if in.Type == "" {
		in.Type = domain.MessageTypeText
	}
	if !domain.ValidMessageType(in.Type) {
		return nil, ErrInvalidMessageType
	}

	if _, err := LoadAuthorizedConversation(ctx, s.DB, in.ConversationID, in.SenderID); err != nil {
		return nil, err
	}

	return repo.CreateMessage(ctx, s.DB, repo.NewMessage{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Body:           in.Body,
		Type:           in.Type,
		AttachmentURL:  in.AttachmentURL,
		ReplyToID:      in.ReplyToID,
	})
}

// History returns one page of conversation history for userID.
//
// The pagination contract: limit defaults to DefaultPageLimit and is capped
// at MaxPageLimit; offset defaults to 0 and counts from the newest message.
// The page is fetched newest-first and reversed before returning, so callers
// always receive chronological order. Concatenating pages offset 0, 50, 100 …
// until HasMore is false therefore walks the full thread, newest page first,
// each page internally oldest-to-newest.
func (s *MessageService) History(ctx context.Context, userID, conversationID string, limit, offset int) (*HistoryPage, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		),
	)
	defer span.End()

	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := LoadAuthorizedConversation(ctx, s.DB, conversationID, userID); err != nil {
		return nil, err
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, err
	}

	items, err := repo.ListMessagesPageDesc(ctx, s.DB, conversationID, offset, limit)
	if err != nil {
		return nil, err
	}

	// newest-first → chronological
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return &HistoryPage{
		Messages:      items,
		TotalMessages: total,
		HasMore:       int64(offset+len(items)) < total,
		CurrentOffset: offset,
		Limit:         limit,
	}, nil
}

// Recipient resolves "the party in the conversation who is not the sender".
// During the pre-assignment window a message from a candidate provider goes
// to the owner; a message from the owner has no stable recipient yet and
// yields the empty string.
func Recipient(conv *domain.Conversation, senderID string) string {
	if senderID == conv.OwnerID {
		return conv.ProviderID
	}
	return conv.OwnerID
}
