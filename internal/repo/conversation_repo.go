// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// All functions accept a *gorm.DB handle, making them safe for use within
// transactions or connection-scoped operations. They follow the "thin
// repository" approach: no business logic, only CRUD persistence and query
// composition.
//
// Error semantics:
//   - When a conversation is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateConversation inserts a new Conversation row for the given service
// request. The id is the service-request id itself, so the caller supplies
// it. CreatedAt is set to UTC.
func CreateConversation(ctx context.Context, db *gorm.DB, id, ownerID, providerID string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:         id,
		OwnerID:    ownerID,
		ProviderID: providerID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a conversation by its service-request id. If the
// record does not exist, it returns ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// AssignProvider records the provider accepted for the service request.
// Returns ErrNotFound when the conversation does not exist.
func AssignProvider(ctx context.Context, db *gorm.DB, id, providerID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("provider_id", providerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HasSentMessage reports whether userID authored at least one message in the
// conversation. Used by the counterpart access rule for the pre-assignment
// negotiation window.
func HasSentMessage(ctx context.Context, db *gorm.DB, conversationID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_id = ?", conversationID, userID).
		Count(&n).Error
	return n > 0, err
}
