package settings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courierdash/courierdash/internal/guard"
	"github.com/courierdash/courierdash/internal/session"
	"github.com/courierdash/courierdash/internal/shared"
	"github.com/courierdash/courierdash/internal/view"
)

// Fetcher retrieves the settings document from the remote API.
type Fetcher interface {
	GetSettings(ctx context.Context, token string) (Values, error)
}

// Handler serves the admin-only settings page. The admin gate itself is
// applied at the router, this handler only fetches and renders.
type Handler struct {
	logger    *slog.Logger
	api       Fetcher
	templates *view.Engine
	csrf      *shared.CSRFManager
	store     session.CredentialStore
	guard     *guard.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, api Fetcher, templates *view.Engine, csrf *shared.CSRFManager, store session.CredentialStore, g *guard.Guard) *Handler {
	return &Handler{logger: logger, api: api, templates: templates, csrf: csrf, store: store, guard: g}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showSettings)
}

type formErrors map[string]string

func (h *Handler) showSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	token, err := h.store.Get(ctx, sess.ID)
	if err != nil {
		h.logger.Error("read credential slot", slog.Any("error", err))
		h.guard.Expire(w, r, sess)
		return
	}

	values, err := h.api.GetSettings(ctx, token)
	if errors.Is(err, shared.ErrUpstreamUnauthorized) {
		h.guard.Expire(w, r, sess)
		return
	}
	if err != nil {
		h.logger.Error("fetch settings failed", slog.Any("error", err))
		h.render(w, r, map[string]any{"Errors": formErrors{"general": shared.MsgFetchFailed}}, http.StatusBadGateway)
		return
	}

	h.render(w, r, map[string]any{"Entries": values.Entries()}, http.StatusOK)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flashes []shared.FlashMessage
	var email string
	if sess != nil {
		flashes = sess.PopFlashes()
		email = sess.Email()
	}
	viewData := view.TemplateData{
		Title:       "Settings",
		CSRFToken:   csrfToken,
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		Role:        shared.RoleFromContext(r.Context()),
		Email:       email,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/settings.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
