// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
)

// NewMessage captures the caller-supplied fields of a message insert.
type NewMessage struct {
	ConversationID string
	SenderID       string
	Body           string
	Type           string
	AttachmentURL  string
	ReplyToID      *string
}

// CreateMessage inserts a new message row in status "sent".
func CreateMessage(ctx context.Context, db *gorm.DB, in NewMessage) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Body:           in.Body,
		Type:           in.Type,
		AttachmentURL:  in.AttachmentURL,
		ReplyToID:      in.ReplyToID,
		Status:         domain.StatusSent,
		CreatedAt:      time.Now().UTC(),
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND deleted_at IS NULL", conversationID).
		Scan(&total).Error
	return total, err
}

// ListMessagesPageDesc returns a paginated slice ordered newest first
// (CreatedAt DESC, ID DESC). The service layer reverses the page before
// handing it to callers, which expect chronological order.
func ListMessagesPageDesc(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateMessageStatus advances the delivery status and stamps the matching
// timestamp column. The guard condition is pushed into the WHERE clause so a
// concurrent transition can never move the status backwards: the row is only
// touched while its current status still ranks below the target.
func UpdateMessageStatus(ctx context.Context, db *gorm.DB, id, status string, at time.Time) (bool, error) {
	cols := map[string]any{"status": status}
	var guard []string
	switch status {
	case domain.StatusDelivered:
		cols["delivered_at"] = at
		guard = []string{domain.StatusSent}
	case domain.StatusRead:
		cols["read_at"] = at
		// read may be reached straight from sent, skipping delivered
		guard = []string{domain.StatusSent, domain.StatusDelivered}
	default:
		return false, gorm.ErrInvalidData
	}

	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status IN ?", id, guard).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// EditMessageBody replaces the body of a message and stamps EditedAt.
// Returns ErrNotFound when the message does not exist or senderID is not
// its author.
func EditMessageBody(ctx context.Context, db *gorm.DB, id, senderID, body string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND sender_id = ?", id, senderID).
		Updates(map[string]any{"body": body, "edited_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
