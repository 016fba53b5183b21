package auth

import (
	"context"
	"testing"
	"time"
)

const testSecret = "test-secret-test-secret"

func TestIssueAndVerify(t *testing.T) {
	ti := NewTokenIssuer(testSecret, time.Hour)

	tok, err := ti.Issue(42, "alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := ti.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != 42 || id.Email != "alice@example.com" {
		t.Fatalf("identity mismatch: %+v", id)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	ti := NewTokenIssuer(testSecret, time.Hour)
	tok, err := ti.Issue(1, "a@b.c")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewTokenIssuer("a-different-secret!", time.Hour)
	if _, err := other.Verify(tok); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestVerifyExpired(t *testing.T) {
	ti := NewTokenIssuer(testSecret, -time.Minute)
	tok, err := ti.Issue(1, "a@b.c")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ti.Verify(tok); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestVerifyHeader(t *testing.T) {
	ti := NewTokenIssuer(testSecret, time.Hour)
	tok, err := ti.Issue(7, "bob@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := ti.VerifyHeader("Bearer " + tok)
	if err != nil {
		t.Fatalf("verify header: %v", err)
	}
	if id.UserID != 7 {
		t.Fatalf("identity mismatch: %+v", id)
	}

	// Scheme is case-insensitive
	if _, err := ti.VerifyHeader("bearer " + tok); err != nil {
		t.Fatalf("lowercase scheme: %v", err)
	}

	for _, bad := range []string{"", "Bearer", "Basic " + tok, "Bearer not-a-token"} {
		if _, err := ti.VerifyHeader(bad); err == nil {
			t.Fatalf("header %q expected error", bad)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Fatalf("expected no identity in empty context")
	}

	ctx = WithIdentity(ctx, Identity{UserID: 3, Email: "c@d.e"})
	id, ok := FromContext(ctx)
	if !ok || id.UserID != 3 {
		t.Fatalf("identity mismatch: %+v ok=%v", id, ok)
	}
}
