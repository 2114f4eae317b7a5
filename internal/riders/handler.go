package riders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courierdash/courierdash/internal/authz"
	"github.com/courierdash/courierdash/internal/guard"
	"github.com/courierdash/courierdash/internal/session"
	"github.com/courierdash/courierdash/internal/shared"
	"github.com/courierdash/courierdash/internal/view"
)

// Lister fetches the rider collection from the remote API.
type Lister interface {
	ListRiders(ctx context.Context, token string) ([]Rider, error)
}

// Handler serves the riders page.
type Handler struct {
	logger    *slog.Logger
	api       Lister
	templates *view.Engine
	csrf      *shared.CSRFManager
	store     session.CredentialStore
	guard     *guard.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, api Lister, templates *view.Engine, csrf *shared.CSRFManager, store session.CredentialStore, g *guard.Guard) *Handler {
	return &Handler{logger: logger, api: api, templates: templates, csrf: csrf, store: store, guard: g}
}

// MountRoutes registers rider routes.
func (h *Handler) MountRoutes(r chi.Router) {
	gate := authz.Middleware{Logger: h.logger}
	r.Get("/", h.listRiders)
	r.With(gate.Require(authz.ResourceRider, authz.ActionEdit)).Get("/{id}/edit", h.editRider)
	r.With(gate.Require(authz.ResourceRider, authz.ActionDelete)).Post("/{id}/delete", h.deleteRider)
}

type formErrors map[string]string

func (h *Handler) listRiders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	token, err := h.store.Get(ctx, sess.ID)
	if err != nil {
		h.logger.Error("read credential slot", slog.Any("error", err))
		h.guard.Expire(w, r, sess)
		return
	}

	items, err := h.api.ListRiders(ctx, token)
	if errors.Is(err, shared.ErrUpstreamUnauthorized) {
		h.guard.Expire(w, r, sess)
		return
	}
	if err != nil {
		h.logger.Error("list riders failed", slog.Any("error", err))
		h.render(w, r, map[string]any{"Riders": []Rider{}, "Errors": formErrors{"general": shared.MsgFetchFailed}}, http.StatusBadGateway)
		return
	}

	role := shared.RoleFromContext(ctx)
	h.render(w, r, map[string]any{
		"Riders":    items,
		"CanEdit":   authz.Can(role, authz.ResourceRider, authz.ActionEdit),
		"CanDelete": authz.Can(role, authz.ResourceRider, authz.ActionDelete),
	}, http.StatusOK)
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
		Title:       "Riders",
		CSRFToken:   csrfToken,
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		Role:        shared.RoleFromContext(r.Context()),
		Email:       email,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/riders.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

// The remote API exposes no rider mutation endpoints yet, so the controls
// acknowledge the action and return to the list.
func (h *Handler) editRider(w http.ResponseWriter, r *http.Request) {
	h.acknowledge(w, r, "Editing rider "+chi.URLParam(r, "id")+" is not available yet.")
}

func (h *Handler) deleteRider(w http.ResponseWriter, r *http.Request) {
	h.acknowledge(w, r, "Deleting rider "+chi.URLParam(r, "id")+" is not available yet.")
}

func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "info", Message: message})
	}
	http.Redirect(w, r, "/riders", http.StatusSeeOther)
}
