package bots

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quantfolio/quantfolio/internal/authz"
	"github.com/quantfolio/quantfolio/internal/platform/httpx"
	"github.com/quantfolio/quantfolio/internal/shared"
)

// Handler exposes the bots JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance. A nil service means no database is
// configured.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers bot routes. Everything is botOperator-gated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.RoleBotOperator))
		r.Get("/", h.listBots)
		r.Post("/{id}/command", h.command)
	})
}

type botSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	Equity     float64   `json:"equity"`
	DayPnl     float64   `json:"dayPnl"`
	Pairlist   []string  `json:"pairlist"`
	StrategyID string    `json:"strategyId,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (h *Handler) listBots(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"bots": []botSummary{}})
		return
	}
	list, err := h.service.ListBots(r.Context(), currentUserID(r))
	if err != nil {
		h.logger.Error("list bots", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	summaries := make([]botSummary, 0, len(list))
	for _, bot := range list {
		summaries = append(summaries, botSummary{
			ID:         bot.ID,
			Name:       bot.Name,
			Mode:       bot.Mode,
			Status:     bot.Status,
			Equity:     bot.Equity,
			DayPnl:     bot.DayPnl,
			Pairlist:   bot.Pairlist,
			StrategyID: bot.StrategyID,
			UpdatedAt:  bot.UpdatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bots": summaries})
}

type commandRequest struct {
	Command string `json:"command" validate:"required,oneof=start stop reload"`
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "database not configured")
		return
	}
	var req commandRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	botID := chi.URLParam(r, "id")
	if err := h.service.Command(r.Context(), botID, req.Command, currentUserID(r)); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "bot not found")
			return
		}
		h.logger.Error("bot command", slog.String("bot_id", botID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{
		"botId":   botID,
		"command": req.Command,
	})
}

func currentUserID(r *http.Request) string {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	if id := sess.UserID(); id != "" {
		return id
	}
	return sess.UserEmail()
}
