package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/flowery-users/internal/domain/entity"
	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

// withIdentity stands in for Auth.
func withIdentity(email, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role != "" {
			c.Set(CtxUserRole, role)
		}
		c.Set(CtxUserEmail, email)
		c.Next()
	}
}

func ok(c *gin.Context) { c.String(http.StatusOK, "ok") }

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func errType(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Status int `json:"status"`
		Error  struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if body.Status != 0 {
		t.Fatalf("status field = %d, want 0", body.Status)
	}
	return body.Error.Type
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		allowed  []entity.Role
		wantCode int
		wantType apperror.Kind
	}{
		{"admin allowed", "admin", []entity.Role{entity.RoleAdmin}, http.StatusOK, ""},
		{"premium among several", "premium", []entity.Role{entity.RoleUser, entity.RolePremium}, http.StatusOK, ""},
		{"user on admin route", "user", []entity.Role{entity.RoleAdmin}, http.StatusForbidden, apperror.Forbidden},
		{"admin on user route", "admin", []entity.Role{entity.RoleUser, entity.RolePremium}, http.StatusForbidden, apperror.Forbidden},
		{"no identity", "", []entity.Role{entity.RoleAdmin}, http.StatusUnauthorized, apperror.Unauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", withIdentity("a@x.com", tt.role), Authorize(tt.allowed...), ok)
			w := serve(r, http.MethodGet, "/x")
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantType != "" && errType(t, w) != string(tt.wantType) {
				t.Fatalf("type = %s, want %s", errType(t, w), tt.wantType)
			}
		})
	}
}

func TestSelfOnly(t *testing.T) {
	r := gin.New()
	r.POST("/users/:email/documents", withIdentity("Me@X.com", "user"), SelfOnly("email"), ok)

	if w := serve(r, http.MethodPost, "/users/me@x.com/documents"); w.Code != http.StatusOK {
		t.Fatalf("own email: code = %d", w.Code)
	}
	w := serve(r, http.MethodPost, "/users/other@x.com/documents")
	if w.Code != http.StatusForbidden || errType(t, w) != string(apperror.Forbidden) {
		t.Fatalf("other email: code = %d body=%s", w.Code, w.Body.String())
	}
}

func TestAuthUsesClaimsWithoutRedis(t *testing.T) {
	jwt := helpers.NewJWTManager("a", "r", time.Minute, time.Hour)
	tok, _, err := jwt.GenerateAccessToken(helpers.Subject{UserID: "u1", SessionID: "s1", Email: "a@x.com", Role: "premium"})
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/me", Auth(nil, jwt), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserID)+"|"+c.GetString(CtxUserEmail)+"|"+c.GetString(CtxUserRole))
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "u1|a@x.com|premium" {
		t.Fatalf("code = %d body=%q", w.Code, w.Body.String())
	}

	other := helpers.NewJWTManager("other", "r", time.Minute, time.Hour)
	forged, _, _ := other.GenerateAccessToken(helpers.Subject{UserID: "u1", Role: "admin"})
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: forged})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: code = %d", w.Code)
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware(), ErrorHandler(nil))
	r.GET("/classified", func(c *gin.Context) {
		_ = c.Error(apperror.New(apperror.BusinessRuleViolation, "togglePremium Error", "missing documents", map[string]any{"missing": []string{"id"}}))
	})
	r.GET("/raw", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: password authentication failed for user root"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.String(http.StatusTeapot, "done")
		_ = c.Error(errors.New("late"))
	})

	w := serve(r, http.MethodGet, "/classified")
	if w.Code != http.StatusUnprocessableEntity || errType(t, w) != string(apperror.BusinessRuleViolation) {
		t.Fatalf("classified: code = %d body=%s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/raw")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("raw: code = %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if msg := body["error"].(map[string]any)["message"]; msg != "unexpected error" {
		t.Fatalf("raw error leaked: %v", msg)
	}
	if body["request_id"] == "" || body["request_id"] == nil {
		t.Fatal("request_id missing")
	}

	w = serve(r, http.MethodGet, "/written")
	if w.Code != http.StatusTeapot || w.Body.String() != "done" {
		t.Fatalf("written: code = %d body=%q", w.Code, w.Body.String())
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(nil))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/boom")
	if w.Code != http.StatusInternalServerError || errType(t, w) != string(apperror.InvalidProgramState) {
		t.Fatalf("code = %d body=%s", w.Code, w.Body.String())
	}
}

func TestOnlyIfPrivateIP(t *testing.T) {
	r := gin.New()
	r.GET("/debug", OnlyIf(AllowPrivateIP()), ok)

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:5000", http.StatusOK},
		{"10.1.2.3:5000", http.StatusOK},
		{"192.168.0.9:5000", http.StatusOK},
		{"8.8.8.8:5000", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/debug", nil)
		req.RemoteAddr = tt.remote
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s: code = %d, want %d", tt.remote, w.Code, tt.want)
		}
	}
}

func TestRateLimitWithoutRedisIsNoop(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), ok)
	for i := 0; i < 3; i++ {
		if w := serve(r, http.MethodGet, "/x"); w.Code != http.StatusOK {
			t.Fatalf("request %d: code = %d", i, w.Code)
		}
	}
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.GET("/ip", RealIP(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"left-most forwarded", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"garbage header skipped", map[string]string{"X-Real-Ip": "nope", "X-Forwarded-For": "198.51.100.2"}, "198.51.100.2"},
		{"remote addr fallback", nil, "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			req.RemoteAddr = "192.0.2.10:4000"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Body.String() != tt.want {
				t.Fatalf("real_ip = %q, want %q", w.Body.String(), tt.want)
			}
		})
	}
}
