package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
)

func TestUpsertToken_CreateAndReactivate(t *testing.T) {
	db := newTestDB(t, &domain.NotificationToken{})
	ctx := context.Background()

	tok, err := UpsertToken(ctx, db, "u1", "fcm-abc", "android")
	if err != nil {
		t.Fatalf("UpsertToken create: %v", err)
	}
	if tok.ID == "" || !tok.Active || tok.UserID != "u1" {
		t.Fatalf("unexpected token: %+v", tok)
	}

	if err := DeactivateToken(ctx, db, "fcm-abc"); err != nil {
		t.Fatalf("DeactivateToken: %v", err)
	}

	// Re-registration reactivates the same row rather than duplicating it.
	again, err := UpsertToken(ctx, db, "u1", "fcm-abc", "android")
	if err != nil {
		t.Fatalf("UpsertToken reactivate: %v", err)
	}
	if again.ID != tok.ID || !again.Active {
		t.Fatalf("expected same row reactivated: %+v vs %+v", again, tok)
	}

	var n int64
	db.Model(&domain.NotificationToken{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected 1 token row, got %d", n)
	}
}

func TestUpsertToken_MovesBetweenUsers(t *testing.T) {
	db := newTestDB(t, &domain.NotificationToken{})
	ctx := context.Background()

	if _, err := UpsertToken(ctx, db, "u1", "fcm-shared", "android"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Device hand-over: same token registered by a different account.
	moved, err := UpsertToken(ctx, db, "u2", "fcm-shared", "ios")
	if err != nil {
		t.Fatalf("UpsertToken move: %v", err)
	}
	if moved.UserID != "u2" || moved.DeviceType != "ios" {
		t.Fatalf("token not moved: %+v", moved)
	}

	u1Tokens, err := ListActiveTokens(ctx, db, "u1")
	if err != nil || len(u1Tokens) != 0 {
		t.Fatalf("u1 must have lost the token: %v %v", u1Tokens, err)
	}
	u2Tokens, err := ListActiveTokens(ctx, db, "u2")
	if err != nil || len(u2Tokens) != 1 {
		t.Fatalf("u2 must own the token: %v %v", u2Tokens, err)
	}
}

func TestDeactivateToken_Idempotent(t *testing.T) {
	db := newTestDB(t, &domain.NotificationToken{})
	ctx := context.Background()

	if _, err := UpsertToken(ctx, db, "u1", "fcm-abc", "android"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := DeactivateToken(ctx, db, "fcm-abc"); err != nil {
		t.Fatalf("first deactivate: %v", err)
	}
	// Second deactivation of an inactive token is a no-op success.
	if err := DeactivateToken(ctx, db, "fcm-abc"); err != nil {
		t.Fatalf("repeat deactivate must succeed: %v", err)
	}
	// A token that was never registered is an error.
	if err := DeactivateToken(ctx, db, "never-seen"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveTokens_SkipsInactive(t *testing.T) {
	db := newTestDB(t, &domain.NotificationToken{})
	ctx := context.Background()

	if _, err := UpsertToken(ctx, db, "u1", "tok-1", "android"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := UpsertToken(ctx, db, "u1", "tok-2", "web"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := DeactivateToken(ctx, db, "tok-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := ListActiveTokens(ctx, db, "u1")
	if err != nil {
		t.Fatalf("ListActiveTokens: %v", err)
	}
	if len(active) != 1 || active[0].Token != "tok-2" {
		t.Fatalf("expected only tok-2 active, got %+v", active)
	}
}
