package validation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/flowery-users/pkg/apperror"
)

type resetRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,pwd"`
}

func bind(t *testing.T, payload string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	var req resetRequest
	return c.ShouldBindJSON(&req)
}

func TestBindError(t *testing.T) {
	Init()

	tests := []struct {
		name    string
		payload string
		field   string
		want    string
	}{
		{"missing email", `{}`, "email", "is required"},
		{"bad email", `{"email":"nope"}`, "email", "must be a valid email"},
		{"short password", `{"email":"a@x.com","password":"short"}`, "password", "min length 8"},
		{"broken json", `{"email" 1}`, "payload", "invalid json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bind(t, tt.payload)
			if err == nil {
				t.Fatal("expected bind error")
			}
			ae := BindError("resetPassword Error", err)
			if ae.Kind != apperror.InvalidInput || ae.Name != "resetPassword Error" {
				t.Fatalf("error = %+v", ae)
			}
			if got := ae.Params[tt.field]; got != tt.want {
				t.Fatalf("params[%s] = %v, want %q (all: %v)", tt.field, got, tt.want, ae.Params)
			}
		})
	}

	if err := bind(t, `{"email":"a@x.com","password":"longenough"}`); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
}

func TestToDetailsNil(t *testing.T) {
	if ToDetails(nil) != nil {
		t.Fatal("nil error should give nil details")
	}
}
