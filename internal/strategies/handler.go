package strategies

import (
	"encoding/json"
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

// Handler exposes the models-area JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance. A nil service means no database is
// configured; reads answer empty and writes answer 500.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers models routes. Everything is researcher-gated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.RoleResearcher))
		r.Get("/strategies", h.listStrategies)
		r.Post("/strategies", h.createStrategy)
		r.Post("/runs", h.queueRun)
		r.Post("/promote", h.promote)
	})
}

type strategySummary struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	Description   string      `json:"description,omitempty"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	LatestVersion *versionRef `json:"latestVersion"`
}

type versionRef struct {
	ID         string `json:"id"`
	VersionTag string `json:"versionTag"`
	StorageKey string `json:"storageKey"`
}

func (h *Handler) listStrategies(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"strategies": []strategySummary{}})
		return
	}
	owner := currentUserID(r)
	list, err := h.service.ListStrategies(r.Context(), owner)
	if err != nil {
		h.logger.Error("list strategies", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	summaries := make([]strategySummary, 0, len(list))
	for _, s := range list {
		summary := strategySummary{
			ID:          s.ID,
			Name:        s.Name,
			Slug:        s.Slug,
			Description: s.Description,
			UpdatedAt:   s.UpdatedAt,
		}
		if s.LatestVersion != nil {
			summary.LatestVersion = &versionRef{
				ID:         s.LatestVersion.ID,
				VersionTag: s.LatestVersion.VersionTag,
				StorageKey: s.LatestVersion.StorageKey,
			}
		}
		summaries = append(summaries, summary)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"strategies": summaries})
}

type createStrategyRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	VersionTag  string `json:"versionTag"`
	StorageKey  string `json:"storageKey"`
}

func (h *Handler) createStrategy(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "database not configured")
		return
	}
	var req createStrategyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	strategy, err := h.service.CreateStrategy(r.Context(), CreateStrategyInput{
		Name:        req.Name,
		Description: req.Description,
		VersionTag:  req.VersionTag,
		StorageKey:  req.StorageKey,
		OwnerID:     currentUserID(r),
	})
	if err != nil {
		h.logger.Error("create strategy", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":   strategy.ID,
		"slug": strategy.Slug,
	})
}

type queueRunRequest struct {
	StrategyID string          `json:"strategyId" validate:"required"`
	Spec       json.RawMessage `json:"spec" validate:"required"`
	Params     json.RawMessage `json:"params"`
}

func (h *Handler) queueRun(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "database not configured")
		return
	}
	var req queueRunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	run, err := h.service.QueueBacktest(r.Context(), QueueBacktestInput{
		StrategyID: req.StrategyID,
		OwnerID:    currentUserID(r),
		Spec:       req.Spec,
		Params:     req.Params,
	})
	if err != nil {
		h.logger.Error("queue backtest", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{
		"runId":  run.ID,
		"status": run.Status,
	})
}

type promoteRequest struct {
	RunID  string `json:"runId" validate:"required"`
	BotID  string `json:"botId" validate:"required"`
	Target string `json:"target" validate:"omitempty,oneof=paper live"`
}

func (h *Handler) promote(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "database not configured")
		return
	}
	var req promoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.Target == "" {
		req.Target = TargetPaper
	}
	promotion, err := h.service.Promote(r.Context(), PromoteInput{
		RunID:   req.RunID,
		BotID:   req.BotID,
		Target:  req.Target,
		OwnerID: currentUserID(r),
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "run or bot not found")
			return
		}
		h.logger.Error("promote run", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{
		"promotionId": promotion.ID,
		"target":      promotion.Target,
		"status":      promotion.Status,
	})
}

// currentUserID mirrors the gate's canonical identifier preference: the
// stable id first, the email as fallback.
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
