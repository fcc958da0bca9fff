package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/oksasatya/flowery-users/config"
)

func TestRenderPasswordReset(t *testing.T) {
	cfg := &config.Config{AppName: "Flowery 4107", AppURL: "http://shop.test"}
	exp := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	data := NewPasswordResetData(cfg, "Ada Lovelace", "ada@x.com", "http://front.test/reset/abc", exp)

	subject, text, html, err := Render(PasswordReset, data)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Flowery 4107 - Reset Password" {
		t.Fatalf("subject = %q", subject)
	}
	for _, want := range []string{"Hi Ada Lovelace", "http://front.test/reset/abc", "10 March 2026"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(html, "http://front.test/reset/abc") {
		t.Fatalf("html missing reset url:\n%s", html)
	}
}

func TestRenderAccountDeletedFromMap(t *testing.T) {
	data := ToMap(NewAccountDeletedData(nil, "", "old@x.com", 2))

	subject, text, _, err := Render(AccountDeleted, data)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Flowery 4107 - Account deleted" {
		t.Fatalf("subject = %q", subject)
	}
	if !strings.Contains(text, "Hi old@x.com") || !strings.Contains(text, "more than 2 days") {
		t.Fatalf("text = %q", text)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, _, err := Render("welcome", EmailData{}); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
