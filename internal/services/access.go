// Package services – conversation access rule.
//
// A user may act on a conversation if they are its owner (the requester), or
// the currently assigned provider, or — for the provider role specifically —
// if they have previously sent at least one message in the thread. The last
// clause covers the negotiation window before a provider is assigned, where
// candidate providers and the owner talk inside the same thread. This
// three-way rule is deliberate business policy shared by the websocket
// handshake and the REST endpoints.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/repo"
)

// CanAccessConversation reports whether userID may participate in conv.
func CanAccessConversation(ctx context.Context, db *gorm.DB, conv *domain.Conversation, userID string) (bool, error) {
	if userID == conv.OwnerID {
		return true, nil
	}
	if conv.ProviderID != "" && userID == conv.ProviderID {
		return true, nil
	}
	// Pre-assignment counterpart: anyone who already messaged in the thread.
	return repo.HasSentMessage(ctx, db, conv.ID, userID)
}

// LoadAuthorizedConversation fetches the conversation and enforces the access
// rule in one step. It returns ErrConversationNotFound or ErrAccessDenied for
// the predictable cases and the raw DB error otherwise.
func LoadAuthorizedConversation(ctx context.Context, db *gorm.DB, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := repo.GetConversation(ctx, db, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	ok, err := CanAccessConversation(ctx, db, conv, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}
	return conv, nil
}
