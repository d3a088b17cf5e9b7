// Package services – TokenService
//
// Notification-token bookkeeping: device registration, idempotent soft
// deactivation, and the active-token lookup the push dispatcher uses when a
// recipient has no live connection.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/repo"
)

// TokenService implements the notification-token collaborator contract.
type TokenService struct {
	DB *gorm.DB
}

// Register stores (or re-activates) a device token for userID. DeviceType
// defaults to "android" when empty, matching the mobile-first client mix.
func (s *TokenService) Register(ctx context.Context, userID, token, deviceType string) (*domain.NotificationToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	if deviceType == "" {
		deviceType = "android"
	}
	return repo.UpsertToken(ctx, s.DB, userID, token, deviceType)
}

// Deactivate soft-disables a token so it no longer receives pushes. The
// token row is kept for audit; repeated calls succeed.
func (s *TokenService) Deactivate(ctx context.Context, token string) error {
	err := repo.DeactivateToken(ctx, s.DB, strings.TrimSpace(token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTokenNotFound
	}
	return err
}

// ListActive returns every active token owned by userID.
func (s *TokenService) ListActive(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	return repo.ListActiveTokens(ctx, s.DB, userID)
}
