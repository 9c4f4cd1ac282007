package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	if _, err := NewJWTService(Config{Secret: "short"}); err != ErrInvalidSecretLength {
		t.Fatalf("expected ErrInvalidSecretLength, got %v", err)
	}
}

func TestMintAndValidateToken(t *testing.T) {
	svc, err := NewJWTService(Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, expiresAt, err := svc.MintToken("ops-laptop")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expected expiry in the future")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Subject != "ops-laptop" {
		t.Fatalf("expected subject ops-laptop, got %q", claims.Subject)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc, _ := NewJWTService(Config{Secret: testSecret})
	token, _, _ := svc.MintToken("ops-laptop")

	other, _ := NewJWTService(Config{Secret: "a-completely-different-32-char-secret!!"})
	if _, err := other.ValidateToken(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc, _ := NewJWTService(Config{Secret: testSecret, TokenDuration: time.Nanosecond})
	token, _, _ := svc.MintToken("ops-laptop")
	time.Sleep(time.Millisecond)

	if _, err := svc.ValidateToken(token); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}
