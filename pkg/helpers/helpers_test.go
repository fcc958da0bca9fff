package helpers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oksasatya/flowery-users/pkg/mailer"
)

func TestPrepareEmailJob(t *testing.T) {
	tests := []struct {
		name      string
		job       mailer.EmailJob
		wantTpl   string
		wantEmail any
		wantType  any
	}{
		{
			name:      "fills missing fields",
			job:       mailer.EmailJob{To: "a@x.com", Template: " Password_Reset "},
			wantTpl:   "password_reset",
			wantEmail: "a@x.com",
			wantType:  "password_reset",
		},
		{
			name:      "keeps provided fields",
			job:       mailer.EmailJob{To: "a@x.com", Template: "account_deleted", Data: map[string]any{"Email": "b@x.com", "Type": "custom"}},
			wantTpl:   "account_deleted",
			wantEmail: "b@x.com",
			wantType:  "custom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := tt.job
			PrepareEmailJob(&job)
			if job.Template != tt.wantTpl {
				t.Fatalf("Template = %q, want %q", job.Template, tt.wantTpl)
			}
			if job.Data["Email"] != tt.wantEmail || job.Data["Type"] != tt.wantType {
				t.Fatalf("Data = %v", job.Data)
			}
		})
	}

	raw := mailer.EmailJob{To: "a@x.com", Subject: "s"}
	PrepareEmailJob(&raw)
	if raw.Data != nil {
		t.Fatalf("rendered job should be left alone, got %v", raw.Data)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("access", "refresh", time.Minute, time.Hour)
	sub := Subject{UserID: "u1", SessionID: "s1", Email: "a@x.com", Role: "premium"}

	access, exp, err := m.GenerateAccessToken(sub)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error: %v", err)
	}
	if time.Until(exp) > time.Minute || time.Until(exp) <= 0 {
		t.Fatalf("expiry = %v", exp)
	}
	claims, err := m.ParseAccessToken(access)
	if err != nil {
		t.Fatalf("ParseAccessToken() error: %v", err)
	}
	if claims.UserID != sub.UserID || claims.SessionID != sub.SessionID || claims.Email != sub.Email || claims.Role != sub.Role {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := m.ParseRefreshToken(access); err == nil {
		t.Fatal("access token must not parse as a refresh token")
	}

	expired := NewJWTManager("access", "refresh", -time.Minute, time.Hour)
	old, _, _ := expired.GenerateAccessToken(sub)
	if _, err := m.ParseAccessToken(old); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	m := NewResetTokenManager("secret", nil)

	tok, exp, err := m.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if d := time.Until(exp); d <= 59*time.Minute || d > time.Hour {
		t.Fatalf("token lifetime = %v, want one hour", d)
	}

	email, err := m.Consume(ctx, tok)
	if err != nil || email != "a@x.com" {
		t.Fatalf("Consume() = %q, %v", email, err)
	}
	if _, err := m.Consume(ctx, tok); !errors.Is(err, ErrResetTokenUsed) {
		t.Fatalf("second Consume() error = %v, want ErrResetTokenUsed", err)
	}
}

func TestResetTokenRejects(t *testing.T) {
	ctx := context.Background()
	m := NewResetTokenManager("secret", nil)

	other := NewResetTokenManager("other-secret", nil)
	forged, _, _ := other.Issue(ctx, "a@x.com")
	if _, err := m.Consume(ctx, forged); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("forged token error = %v", err)
	}

	m.TTL = -time.Second
	expired, _, _ := m.Issue(ctx, "a@x.com")
	if _, err := m.Consume(ctx, expired); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expired token error = %v", err)
	}

	if _, err := m.Consume(ctx, "garbage"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("garbage token error = %v", err)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if !CompareHashAndPassword(hash, "hunter22") || CompareHashAndPassword(hash, "hunter23") {
		t.Fatal("bcrypt comparison mismatch")
	}
}
