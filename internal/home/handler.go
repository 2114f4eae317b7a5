// Package home renders the dashboard landing page: one card per section the
// current role may open.
package home

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courierdash/courierdash/internal/authz"
	"github.com/courierdash/courierdash/internal/shared"
	"github.com/courierdash/courierdash/internal/view"
)

// Card is one navigation tile on the landing page.
type Card struct {
	Key   string
	Label string
	Path  string
}

// Handler serves the landing page.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, templates: templates, csrf: csrf}
}

// MountRoutes registers the landing page route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showHome)
}

func (h *Handler) showHome(w http.ResponseWriter, r *http.Request) {
	role := shared.RoleFromContext(r.Context())
	cards := []Card{
		{Key: "orders", Label: "Orders", Path: "/orders"},
		{Key: "riders", Label: "Riders", Path: "/riders"},
	}
	if authz.Can(role, authz.ResourceSettings, authz.ActionView) {
		cards = append(cards, Card{Key: "settings", Label: "Settings", Path: "/settings"})
	}
	cards = append(cards, Card{Key: "users", Label: "Users", Path: "/users"})

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flashes []shared.FlashMessage
	var email string
	if sess != nil {
		flashes = sess.PopFlashes()
		email = sess.Email()
	}
	viewData := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		Role:        role,
		Email:       email,
		Data:        map[string]any{"Cards": cards},
	}
	if err := h.templates.Render(w, "pages/home.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
