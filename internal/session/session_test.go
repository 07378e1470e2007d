package session

import (
	"context"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	m, err := NewManager("test-secret", "test-issuer", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, expiresAt, err := m.Issue("user-42", "Admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Issuer != "test-issuer" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.Role != "admin" {
		t.Fatalf("role was not normalized: %q", claims.Role)
	}
}

func TestParseRejectsForeignToken(t *testing.T) {
	a, _ := NewManager("secret-a", "docvault", time.Hour)
	b, _ := NewManager("secret-b", "docvault", time.Hour)

	token, _, err := a.Issue("user-1", "viewer")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m, err := NewManager("test-secret", "docvault", time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue("user-1", "viewer")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	m.now = time.Now
	if _, err := m.Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatalf("expected no user in fresh context")
	}
	ctx = ContextWithUser(ctx, "user-7")
	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
	ctx = ContextWithToken(ctx, "raw-token")
	tok, ok := TokenFromContext(ctx)
	if !ok || tok != "raw-token" {
		t.Fatalf("unexpected token: %s, ok=%v", tok, ok)
	}
}
