package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/quantfolio/quantfolio/internal/auth"
	"github.com/quantfolio/quantfolio/internal/shared"
	_ "github.com/quantfolio/quantfolio/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func serveAuth(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager, method, target, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	r := chi.NewRouter()
	handler.MountRoutes(r)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res, sess
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &auth.User{
		ID:           "usr_1",
		Email:        "quant@example.com",
		Name:         "Quant User",
		PasswordHash: string(hash),
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: activeUser(t, "hunter22")})

	res, sess := serveAuth(t, handler, sessionManager, http.MethodPost, "/login",
		`{"email":"quant@example.com","password":"hunter22"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string `json:"userId"`
		CSRFToken     string `json:"csrfToken"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Authenticated || payload.UserID != "usr_1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.CSRFToken == "" {
		t.Fatalf("expected a csrf token after login")
	}
	if !sess.Authenticated() || sess.UserID() != "usr_1" {
		t.Fatalf("expected session bound to usr_1")
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: activeUser(t, "hunter22")})

	res, sess := serveAuth(t, handler, sessionManager, http.MethodPost, "/login",
		`{"email":"quant@example.com","password":"wrong"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
	if sess.Authenticated() {
		t.Fatalf("session must stay anonymous after a failed login")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, _ := serveAuth(t, handler, sessionManager, http.MethodPost, "/login",
		`{"email":"ghost@example.com","password":"hunter22"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t, "hunter22")
	user.IsActive = false
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: user})

	res, _ := serveAuth(t, handler, sessionManager, http.MethodPost, "/login",
		`{"email":"quant@example.com","password":"hunter22"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, _ := serveAuth(t, handler, sessionManager, http.MethodPost, "/login", `{"email":`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}

	res, _ = serveAuth(t, handler, sessionManager, http.MethodPost, "/login", `{"email":"not-an-email","password":"x"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for validation failure, got %d", res.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, sess := serveAuth(t, handler, sessionManager, http.MethodGet, "/session", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"authenticated":false`) {
		t.Fatalf("expected anonymous session payload, got %s", res.Body.String())
	}
	// The anonymous session must carry a CSRF token, otherwise no client
	// could ever POST to /login.
	var payload struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.CSRFToken == "" {
		t.Fatalf("expected a csrf token for the anonymous session")
	}
	if sess.Get(shared.CSRFSessionKey) != payload.CSRFToken {
		t.Fatalf("expected the returned token to be stored in the session")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: activeUser(t, "hunter22")})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("usr_1", "quant@example.com", "Quant User")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	r := chi.NewRouter()
	handler.MountRoutes(r)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if sess.Authenticated() {
		t.Fatalf("expected anonymous session after logout")
	}
}
