// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// NotificationToken model.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
)

// UpsertToken registers (or re-activates) a device token for userID. A token
// string is globally unique; re-registration by a different user moves the
// token to that user, which covers device hand-overs and app reinstalls.
func UpsertToken(ctx context.Context, db *gorm.DB, userID, token, deviceType string) (*domain.NotificationToken, error) {
	var existing domain.NotificationToken
	err := db.WithContext(ctx).Where("token = ?", token).First(&existing).Error
	switch {
	case err == nil:
		existing.UserID = userID
		existing.DeviceType = deviceType
		existing.Active = true
		if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		t := &domain.NotificationToken{
			ID:         uuid.NewString(),
			UserID:     userID,
			Token:      token,
			DeviceType: deviceType,
			Active:     true,
			CreatedAt:  time.Now().UTC(),
		}
		return t, db.WithContext(ctx).Create(t).Error
	default:
		return nil, err
	}
}

// DeactivateToken soft-disables a token. A missing token is reported as
// ErrNotFound; an already-inactive one is a no-op success, so unregistration
// stays idempotent for clients that retry.
func DeactivateToken(ctx context.Context, db *gorm.DB, token string) error {
	var existing domain.NotificationToken
	if err := db.WithContext(ctx).Where("token = ?", token).First(&existing).Error; err != nil {
		return err
	}
	if !existing.Active {
		return nil
	}
	return db.WithContext(ctx).
		Model(&existing).
		Update("active", false).Error
}

// ListActiveTokens returns every active token owned by userID, oldest first.
func ListActiveTokens(ctx context.Context, db *gorm.DB, userID string) ([]domain.NotificationToken, error) {
	var out []domain.NotificationToken
	err := db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
