package bots_test

import (
	"context"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/authz"
	"github.com/quantfolio/quantfolio/internal/bots"
	"github.com/quantfolio/quantfolio/internal/shared"
	_ "github.com/quantfolio/quantfolio/testing"
)

type fakeRepo struct {
	bots     map[string]*bots.Bot
	commands []string
	err      error
}

func (f *fakeRepo) ListBots(ctx context.Context, ownerID string) ([]bots.Bot, error) {
	if f.err != nil {
		return nil, f.err
	}
	var list []bots.Bot
	for _, bot := range f.bots {
		if bot.OwnerID == ownerID {
			list = append(list, *bot)
		}
	}
	return list, nil
}

func (f *fakeRepo) GetBot(ctx context.Context, id string) (*bots.Bot, error) {
	if f.err != nil {
		return nil, f.err
	}
	bot, ok := f.bots[id]
	if !ok {
		return nil, bots.ErrNotFound
	}
	return bot, nil
}

func (f *fakeRepo) RecordCommand(ctx context.Context, botID, command, issuedBy string) error {
	f.commands = append(f.commands, botID+":"+command+":"+issuedBy)
	return f.err
}

func operatorGate(allowlist string) authz.Middleware {
	store := authz.NewStore(authz.Config{
		Allowlists: map[authz.Role]string{authz.RoleBotOperator: allowlist},
	}, nil)
	return authz.Middleware{Store: store, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func serveBots(t *testing.T, handler *bots.Handler, userEmail, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	handler.MountRoutes(r)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userEmail != "" {
		mr := miniredis.RunT(t)
		redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
		sess, err := sessionManager.Load(context.Background(), req)
		require.NoError(t, err)
		sess.SetUser("usr_1", userEmail, "Quant User")
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}

	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func newBotsHandler(repo bots.RepositoryPort, mw authz.Middleware) *bots.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var svc *bots.Service
	if repo != nil {
		svc = bots.NewService(repo)
	}
	return bots.NewHandler(logger, svc, mw)
}

func TestListBotsRequiresOperator(t *testing.T) {
	handler := newBotsHandler(&fakeRepo{}, operatorGate("ops@example.com"))

	res := serveBots(t, handler, "", http.MethodGet, "/", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = serveBots(t, handler, "quant@example.com", http.MethodGet, "/", "")
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.JSONEq(t, `{"error":"Forbidden (botOperator)"}`, res.Body.String())
}

func TestListBots(t *testing.T) {
	repo := &fakeRepo{bots: map[string]*bots.Bot{
		"bot_1": {ID: "bot_1", Name: "scalper", Mode: "paper", Status: "running", OwnerID: "usr_1", Pairlist: []string{"BTC/USDT"}},
		"bot_2": {ID: "bot_2", Name: "other", OwnerID: "usr_2"},
	}}
	handler := newBotsHandler(repo, operatorGate("ops@example.com"))

	res := serveBots(t, handler, "ops@example.com", http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"id":"bot_1"`)
	assert.NotContains(t, res.Body.String(), `"id":"bot_2"`, "foreign bots stay invisible")
}

func TestListBotsWithoutDatabase(t *testing.T) {
	handler := newBotsHandler(nil, operatorGate("ops@example.com"))

	res := serveBots(t, handler, "ops@example.com", http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"bots":[]}`, res.Body.String())
}

func TestCommandEndpoint(t *testing.T) {
	repo := &fakeRepo{bots: map[string]*bots.Bot{
		"bot_1": {ID: "bot_1", OwnerID: "usr_1"},
	}}
	handler := newBotsHandler(repo, operatorGate("ops@example.com"))

	res := serveBots(t, handler, "ops@example.com", http.MethodPost, "/bot_1/command", `{"command":"stop"}`)
	require.Equal(t, http.StatusAccepted, res.Code)
	require.Len(t, repo.commands, 1)
	assert.Equal(t, "bot_1:stop:usr_1", repo.commands[0])
}

func TestCommandRejectsUnknownVerb(t *testing.T) {
	repo := &fakeRepo{bots: map[string]*bots.Bot{"bot_1": {ID: "bot_1", OwnerID: "usr_1"}}}
	handler := newBotsHandler(repo, operatorGate("ops@example.com"))

	res := serveBots(t, handler, "ops@example.com", http.MethodPost, "/bot_1/command", `{"command":"selfdestruct"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, repo.commands)
}

func TestCommandHidesForeignBot(t *testing.T) {
	repo := &fakeRepo{bots: map[string]*bots.Bot{
		"bot_1": {ID: "bot_1", OwnerID: "usr_other"},
	}}
	handler := newBotsHandler(repo, operatorGate("ops@example.com"))

	res := serveBots(t, handler, "ops@example.com", http.MethodPost, "/bot_1/command", `{"command":"start"}`)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Empty(t, repo.commands)
}

func TestCommandUnknownBot(t *testing.T) {
	repo := &fakeRepo{bots: map[string]*bots.Bot{}}
	handler := newBotsHandler(repo, operatorGate("ops@example.com"))

	res := serveBots(t, handler, "ops@example.com", http.MethodPost, "/bot_missing/command", `{"command":"start"}`)
	assert.Equal(t, http.StatusNotFound, res.Code)
}
