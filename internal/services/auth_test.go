package services

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/anuragind003/cdp-backend/internal/requestdata"
)

func TestAuthServiceTokenRoundtrip(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	as := NewAuthService(testLogger(t), "test-signing-key", time.Minute, []Client{
		{ID: "offermart", SecretHash: string(hash), Scopes: []string{"ingest", "admin"}},
	})
	ctx := context.Background()

	token, expiresAt, err := as.IssueToken(ctx, "offermart", "s3cret")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if token == "" || time.Until(expiresAt) <= 0 {
		t.Fatalf("unexpected token/expiry: %q %v", token, expiresAt)
	}

	authedCtx, err := as.SetContextFromToken(ctx, token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(authedCtx)
	if rd == nil || rd.ClientID != "offermart" {
		t.Fatalf("unexpected request data: %+v", rd)
	}
	if !rd.HasScope("admin") {
		t.Fatalf("expected admin scope")
	}
	if rd.HasScope("export") {
		t.Fatalf("unexpected export scope")
	}
}

func TestAuthServiceRejectsBadCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	as := NewAuthService(testLogger(t), "test-signing-key", time.Minute, []Client{
		{ID: "offermart", SecretHash: string(hash)},
	})
	ctx := context.Background()

	if _, _, err := as.IssueToken(ctx, "offermart", "wrong"); err == nil {
		t.Fatalf("expected bad secret to be rejected")
	}
	if _, _, err := as.IssueToken(ctx, "unknown", "s3cret"); err == nil {
		t.Fatalf("expected unknown client to be rejected")
	}
}

func TestAuthServiceRejectsForgedToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	issuer := NewAuthService(testLogger(t), "key-one", time.Minute, []Client{
		{ID: "offermart", SecretHash: string(hash)},
	})
	verifier := NewAuthService(testLogger(t), "key-two", time.Minute, nil)

	token, _, err := issuer.IssueToken(context.Background(), "offermart", "s3cret")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := verifier.SetContextFromToken(context.Background(), token); err == nil {
		t.Fatalf("expected token signed with another key to be rejected")
	}
}
