package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quantfolio/quantfolio/internal/platform/httpx"
	"github.com/quantfolio/quantfolio/internal/shared"
)

// Handler exposes the JSON sign-in surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/session", h.session)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	CSRFToken     string `json:"csrfToken,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(user.ID, user.Email, user.Name)
	token, _ := h.csrf.EnsureToken(r.Context(), sess)

	httpx.JSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		CSRFToken:     token,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		sess.ClearUser()
		h.sessions.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{Authenticated: false})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.JSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}
	// Anonymous sessions get a token too. Login is a POST, so a client
	// that cannot obtain a token here could never sign in.
	token, _ := h.csrf.EnsureToken(r.Context(), sess)
	if !sess.Authenticated() {
		httpx.JSON(w, http.StatusOK, sessionResponse{Authenticated: false, CSRFToken: token})
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		UserID:        sess.UserID(),
		Email:         sess.UserEmail(),
		Name:          sess.UserName(),
		CSRFToken:     token,
	})
}
