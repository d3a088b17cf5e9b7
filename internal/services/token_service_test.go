package services

import (
	"context"
	"errors"
	"testing"
)

func TestTokenService_Register(t *testing.T) {
	db := newSvcDB(t)
	svc := &TokenService{DB: db}
	ctx := context.Background()

	tok, err := svc.Register(ctx, "u1", "  fcm-abc  ", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if tok.Token != "fcm-abc" {
		t.Fatalf("token not trimmed: %q", tok.Token)
	}
	if tok.DeviceType != "android" {
		t.Fatalf("device type must default to android: %q", tok.DeviceType)
	}

	if _, err := svc.Register(ctx, "u1", "   ", "ios"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_Deactivate(t *testing.T) {
	db := newSvcDB(t)
	svc := &TokenService{DB: db}
	ctx := context.Background()

	if _, err := svc.Register(ctx, "u1", "fcm-abc", "android"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.Deactivate(ctx, "fcm-abc"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	// Repeats succeed; a never-registered token is reported.
	if err := svc.Deactivate(ctx, "fcm-abc"); err != nil {
		t.Fatalf("repeat Deactivate: %v", err)
	}
	if err := svc.Deactivate(ctx, "never-seen"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	active, err := svc.ListActive(ctx, "u1")
	if err != nil || len(active) != 0 {
		t.Fatalf("no active tokens expected: %v %v", active, err)
	}
}
