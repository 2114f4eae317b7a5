package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/courierdash/courierdash/internal/guard"
	"github.com/courierdash/courierdash/internal/session"
	"github.com/courierdash/courierdash/internal/shared"
	"github.com/courierdash/courierdash/internal/upstream"
	"github.com/courierdash/courierdash/internal/view"
)

// Authenticator exchanges email/password for a bearer credential. Satisfied
// by the upstream client; tests substitute a stub.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Handler wires HTTP endpoints for the login and logout flows.
type Handler struct {
	logger        *slog.Logger
	authenticator Authenticator
	service       *Service
	templates     *view.Engine
	sessions      *shared.SessionManager
	csrf          *shared.CSRFManager
	store         session.CredentialStore
	guard         *guard.Guard
	validator     *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, authenticator Authenticator, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, store session.CredentialStore, g *guard.Guard) *Handler {
	return &Handler{
		logger:        logger,
		authenticator: authenticator,
		service:       service,
		templates:     templates,
		sessions:      sessions,
		csrf:          csrf,
		store:         store,
		guard:         g,
		validator:     validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		// Already logged in: straight to the dashboard.
		if credential, err := h.store.Get(r.Context(), sess.ID); err == nil {
			if st := session.Evaluate(credential, time.Now()); st.Status == session.StatusValid {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
		}
	}
	h.renderLogin(w, r, loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldErr := range validationErrors {
				formErrors[fieldErr.Field()] = fieldMessage(fieldErr)
			}
		} else {
			formErrors["general"] = "Invalid input"
		}
	}

	if len(formErrors) == 0 {
		credential, err := h.authenticator.Login(r.Context(), form.Email, form.Password)
		switch {
		case errors.Is(err, upstream.ErrInvalidLogin):
			formErrors["general"] = "Invalid email or password"
		case err != nil:
			h.logger.Error("upstream login", slog.Any("error", err))
			formErrors["general"] = "Authentication failed"
		default:
			state := session.Evaluate(credential, time.Now())
			if state.Status != session.StatusValid {
				// The upstream handed us a credential we would bounce on
				// the very next request. Fail the login instead.
				h.logger.Error("upstream issued unusable credential")
				formErrors["general"] = "Authentication failed"
				break
			}
			if err := h.store.Set(r.Context(), sess.ID, credential, time.Until(state.ExpiresAt)); err != nil {
				h.logger.Error("store credential", slog.Any("error", err))
				formErrors["general"] = "Authentication failed"
				break
			}
			// A timer armed for a previous credential on this session would
			// otherwise fire at the old expiry and clear the fresh slot.
			if err := h.guard.Refresh(sess.ID, state.ExpiresAt); err != nil {
				h.logger.Error("arm auto-logout", slog.Any("error", err))
				if cerr := h.store.Clear(r.Context(), sess.ID); cerr != nil {
					h.logger.Error("clear credential slot", slog.Any("error", cerr))
				}
				formErrors["general"] = "Authentication failed"
				break
			}
			sess.SetEmail(form.Email)
			if _, err := h.csrf.RotateToken(r.Context(), sess); err != nil {
				h.logger.Warn("rotate csrf token", slog.Any("error", err))
			}
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Login successful!"})
			if err := h.service.RegisterSession(r.Context(), SessionRecord{
				ID:        sess.ID,
				Email:     form.Email,
				Role:      state.Role,
				ExpiresAt: state.ExpiresAt,
				IP:        r.RemoteAddr,
				UserAgent: r.UserAgent(),
			}); err != nil {
				h.logger.Warn("register session", slog.Any("error", err))
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	h.renderLogin(w, r, loginPageData{Form: loginForm{Email: form.Email}, Errors: formErrors}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.guard.Drop(r.Context(), sess.ID)
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	if data.Errors == nil {
		data.Errors = map[string]string{}
	}
	var flashes []shared.FlashMessage
	if sess != nil {
		flashes = sess.PopFlashes()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func fieldMessage(err validator.FieldError) string {
	switch err.Field() {
	case "Email":
		return "A valid email is required"
	case "Password":
		return "Password must be at least 6 characters"
	default:
		return "Invalid value"
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}
