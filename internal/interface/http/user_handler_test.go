package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/flowery-users/config"
	userapp "github.com/oksasatya/flowery-users/internal/application"
	"github.com/oksasatya/flowery-users/internal/domain/entity"
	repo "github.com/oksasatya/flowery-users/internal/domain/repository"
	"github.com/oksasatya/flowery-users/internal/infrastructure/memory"
	"github.com/oksasatya/flowery-users/internal/infrastructure/storage"
	handlers "github.com/oksasatya/flowery-users/internal/interface/http"
	"github.com/oksasatya/flowery-users/internal/interface/middleware"
	"github.com/oksasatya/flowery-users/internal/router"
	"github.com/oksasatya/flowery-users/internal/router/modules"
	"github.com/oksasatya/flowery-users/pkg/helpers"
)

const adminEmail = "admin@flowery.test"

type nopNotifier struct{ sent int }

func (n *nopNotifier) Send(context.Context, string, string, string, string) error {
	n.sent++
	return nil
}

type testServer struct {
	engine   *gin.Engine
	store    *memory.UserStore
	jwt      *helpers.JWTManager
	files    *storage.FileStore
	notifier *nopNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewUserStore()
	files, err := storage.NewFileStore(t.TempDir(), "http://shop.test/files/uploads/documents")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cfg := &config.Config{AppName: "Flowery 4107", AppURL: "http://shop.test", AdminEmail: adminEmail, InactivityDays: 2}
	jwt := helpers.NewJWTManager("access", "refresh", time.Hour, 24*time.Hour)
	notifier := &nopNotifier{}

	r := repo.NewUserRepository(store)
	svc := userapp.NewService(r, notifier, helpers.NewResetTokenManager("reset", nil), nil, nil, cfg, files.BaseURL())
	sessions := userapp.NewSessionService(r, svc, jwt, nil, nil)

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware(), middleware.ErrorHandler(nil))
	reg := router.NewRegistry(engine)
	reg.Add(modules.NewUsersModule(handlers.NewUserHandler(svc, files, nil, cfg.AppURL), jwt, nil))
	reg.Add(modules.NewSessionsModule(handlers.NewSessionHandler(sessions, svc, nil, helpers.NewCookie("", false), cfg.AppURL), jwt, nil))
	reg.RegisterAll()

	return &testServer{engine: engine, store: store, jwt: jwt, files: files, notifier: notifier}
}

func (s *testServer) seed(t *testing.T, u entity.User) *entity.User {
	t.Helper()
	if u.FirstName == "" {
		u.FirstName = "Test"
	}
	created, err := s.store.Create(context.Background(), &u)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return created
}

func (s *testServer) cookieFor(t *testing.T, u *entity.User) *http.Cookie {
	t.Helper()
	tok, _, err := s.jwt.GenerateAccessToken(helpers.Subject{UserID: u.ID, SessionID: "sid", Email: u.Email, Role: string(u.Role)})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return &http.Cookie{Name: "access_token", Value: tok}
}

func (s *testServer) do(req *http.Request, cookie *http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func errorType(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["type"].(string)
	return s
}

func TestListUsersAsAdmin(t *testing.T) {
	s := newTestServer(t)
	admin := s.seed(t, entity.User{Email: adminEmail, Role: entity.RoleAdmin})
	for i := 0; i < 14; i++ {
		s.seed(t, entity.User{Email: fmt.Sprintf("u%02d@x.com", i)})
	}

	w, body := s.do(httptest.NewRequest(http.MethodGet, "/api/users?limit=5&page=2", nil), s.cookieFor(t, admin))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if body["status"] != float64(1) {
		t.Fatalf("status field = %v", body["status"])
	}
	if users, _ := body["users"].([]any); len(users) != 5 {
		t.Fatalf("users = %v", body["users"])
	}
	if body["totalPages"] != float64(3) || body["page"] != float64(2) {
		t.Fatalf("paging = %v/%v", body["page"], body["totalPages"])
	}
	want := "http://shop.test/api/users?limit=5&page=3"
	if body["nextLink"] != want {
		t.Fatalf("nextLink = %v, want %s", body["nextLink"], want)
	}
}

func TestListUsersRejectsBadLimit(t *testing.T) {
	s := newTestServer(t)
	admin := s.seed(t, entity.User{Email: adminEmail, Role: entity.RoleAdmin})

	w, body := s.do(httptest.NewRequest(http.MethodGet, "/api/users?limit=abc", nil), s.cookieFor(t, admin))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if body["status"] != float64(0) || errorType(body) != "INVALID_FIELDS_VALUE_ERROR" {
		t.Fatalf("body = %v", body)
	}
	e := body["error"].(map[string]any)
	if e["name"] != "getUsers Error" || e["message"] == "" {
		t.Fatalf("error = %v", e)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	user := s.seed(t, entity.User{Email: "a@x.com"})

	tests := []struct {
		method, path string
		cookie       *http.Cookie
		want         int
	}{
		{http.MethodGet, "/api/users", nil, http.StatusUnauthorized},
		{http.MethodGet, "/api/users", &http.Cookie{Name: "access_token", Value: "garbage"}, http.StatusUnauthorized},
		{http.MethodGet, "/api/users", s.cookieFor(t, user), http.StatusForbidden},
		{http.MethodGet, "/api/users/a@x.com", s.cookieFor(t, user), http.StatusForbidden},
		{http.MethodPut, "/api/users/a@x.com/premium", s.cookieFor(t, user), http.StatusForbidden},
		{http.MethodDelete, "/api/users", s.cookieFor(t, user), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w, _ := s.do(httptest.NewRequest(tt.method, tt.path, nil), tt.cookie)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGetUserByEmail(t *testing.T) {
	s := newTestServer(t)
	admin := s.seed(t, entity.User{Email: adminEmail, Role: entity.RoleAdmin})
	s.seed(t, entity.User{FirstName: "Ada", Email: "ada@x.com", Password: "secret-hash"})

	w, body := s.do(httptest.NewRequest(http.MethodGet, "/api/users/ADA@x.com", nil), s.cookieFor(t, admin))
	if w.Code != http.StatusOK || body["msg"] != "user found" {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "secret-hash") {
		t.Fatal("password hash leaked")
	}

	w, body = s.do(httptest.NewRequest(http.MethodGet, "/api/users/ghost@x.com", nil), s.cookieFor(t, admin))
	if w.Code != http.StatusNotFound || errorType(body) != "NOT_FOUND_ENTITY_ERROR" {
		t.Fatalf("status = %d body=%v", w.Code, body)
	}
}

func TestTogglePremiumRoute(t *testing.T) {
	s := newTestServer(t)
	admin := s.seed(t, entity.User{Email: adminEmail, Role: entity.RoleAdmin})
	s.seed(t, entity.User{Email: "ready@x.com", Documents: []entity.Document{
		{Name: "id"}, {Name: "address"}, {Name: "bankaccount"},
	}})
	s.seed(t, entity.User{Email: "partial@x.com", Documents: []entity.Document{{Name: "id"}}})

	w, body := s.do(httptest.NewRequest(http.MethodPut, "/api/users/ready@x.com/premium", nil), s.cookieFor(t, admin))
	if w.Code != http.StatusOK || body["msg"] != "user role changed to premium" {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	w, body = s.do(httptest.NewRequest(http.MethodPut, "/api/users/partial@x.com/premium", nil), s.cookieFor(t, admin))
	if w.Code != http.StatusUnprocessableEntity || errorType(body) != "BUSINESS_RULES_ERROR" {
		t.Fatalf("status = %d body=%v", w.Code, body)
	}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(handlers.DocumentsField, name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = io.WriteString(fw, content)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadDocuments(t *testing.T) {
	s := newTestServer(t)
	user := s.seed(t, entity.User{Email: "a@x.com"})

	body, ct := multipartBody(t, map[string]string{"ID.pdf": "id-bytes", "address.png": "addr-bytes"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/a@x.com/documents", body)
	req.Header.Set("Content-Type", ct)
	w, resp := s.do(req, s.cookieFor(t, user))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	docs, _ := resp["userDocuments"].([]any)
	if len(docs) != 2 {
		t.Fatalf("userDocuments = %v", resp["userDocuments"])
	}
	for _, d := range docs {
		ref, _ := d.(map[string]any)["referenceUrl"].(string)
		if !strings.HasPrefix(ref, s.files.BaseURL()+"/") {
			t.Fatalf("referenceUrl = %q", ref)
		}
		if _, err := os.Stat(filepath.Join(s.files.BasePath(), strings.TrimPrefix(ref, s.files.BaseURL()+"/"))); err != nil {
			t.Fatalf("stored file missing: %v", err)
		}
	}

	stored, _ := s.store.Get(user.ID)
	if len(stored.Documents) != 2 {
		t.Fatalf("stored documents = %+v", stored.Documents)
	}
}

func TestUploadDocumentsForAnotherUser(t *testing.T) {
	s := newTestServer(t)
	user := s.seed(t, entity.User{Email: "a@x.com"})
	s.seed(t, entity.User{Email: "b@x.com"})

	body, ct := multipartBody(t, map[string]string{"id.pdf": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/b@x.com/documents", body)
	req.Header.Set("Content-Type", ct)
	w, resp := s.do(req, s.cookieFor(t, user))
	if w.Code != http.StatusForbidden || errorType(resp) != "FORBIDDEN_ERROR" {
		t.Fatalf("status = %d body=%v", w.Code, resp)
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	s := newTestServer(t)
	user := s.seed(t, entity.User{Email: "a@x.com"})

	body, ct := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/users/a@x.com/documents", body)
	req.Header.Set("Content-Type", ct)
	w, resp := s.do(req, s.cookieFor(t, user))
	if w.Code != http.StatusBadRequest || errorType(resp) != "INVALID_FIELDS_VALUE_ERROR" {
		t.Fatalf("status = %d body=%v", w.Code, resp)
	}
}

func TestUploadCleansUpWhenUserIsGone(t *testing.T) {
	s := newTestServer(t)
	user := s.seed(t, entity.User{Email: "a@x.com"})
	cookie := s.cookieFor(t, user)
	if _, err := s.store.DeleteByEmail(context.Background(), "a@x.com"); err != nil {
		t.Fatal(err)
	}

	body, ct := multipartBody(t, map[string]string{"id.pdf": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/a@x.com/documents", body)
	req.Header.Set("Content-Type", ct)
	w, _ := s.do(req, cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	entries, err := os.ReadDir(s.files.BasePath())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("orphan files left: %d", len(entries))
	}
}

func TestSweepRoute(t *testing.T) {
	s := newTestServer(t)
	admin := s.seed(t, entity.User{Email: adminEmail, Role: entity.RoleAdmin})
	stale := time.Now().Add(-96 * time.Hour)
	s.seed(t, entity.User{Email: "old@x.com", LastConnection: &stale})

	w, body := s.do(httptest.NewRequest(http.MethodDelete, "/api/users", nil), s.cookieFor(t, admin))
	if w.Code != http.StatusOK || body["msg"] != "1 inactive users deleted" {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if s.notifier.sent != 1 {
		t.Fatalf("notifications = %d", s.notifier.sent)
	}
}

func TestUnknownRoutes(t *testing.T) {
	s := newTestServer(t)
	tests := []struct{ method, path string }{
		{http.MethodGet, "/api/nope"},
		{http.MethodPatch, "/api/users"},
		{http.MethodGet, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w, body := s.do(httptest.NewRequest(tt.method, tt.path, nil), nil)
			if w.Code != http.StatusNotFound {
				t.Fatalf("status = %d", w.Code)
			}
			if errorType(body) != "ROUTING_ERROR" {
				t.Fatalf("body = %v", body)
			}
			params := body["error"].(map[string]any)["params"].(map[string]any)
			if params["method"] != tt.method || params["path"] != tt.path {
				t.Fatalf("params = %v", params)
			}
		})
	}
}

func TestLoginRecordsConnection(t *testing.T) {
	s := newTestServer(t)
	hash, err := helpers.HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	u := s.seed(t, entity.User{Email: "a@x.com", Password: hash})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/login", strings.NewReader(`{"email":"a@x.com","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ := s.do(req, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var gotCookie bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "access_token" && c.Value != "" {
			gotCookie = true
		}
	}
	if !gotCookie {
		t.Fatal("access_token cookie not set")
	}
	if stored, _ := s.store.Get(u.ID); stored.LastConnection == nil {
		t.Fatal("last connection not recorded")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/sessions/login", strings.NewReader(`{"email":"a@x.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	w, body := s.do(req, nil)
	if w.Code != http.StatusUnauthorized || errorType(body) != "UNAUTHORIZED_ERROR" {
		t.Fatalf("status = %d body=%v", w.Code, body)
	}
}

func TestResetPasswordRoute(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, entity.User{Email: "a@x.com"})

	send := func(payload string) (*httptest.ResponseRecorder, map[string]any) {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/resetpassword", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		return s.do(req, nil)
	}

	if w, _ := send(`{"email":"a@x.com"}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if s.notifier.sent != 1 {
		t.Fatalf("notifications = %d", s.notifier.sent)
	}
	if w, body := send(`{"email":"not-an-email"}`); w.Code != http.StatusBadRequest || errorType(body) != "INVALID_FIELDS_VALUE_ERROR" {
		t.Fatalf("status = %d body=%v", w.Code, body)
	}
	if w, _ := send(`{"email":"` + adminEmail + `"}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("admin reset status = %d", w.Code)
	}
}
