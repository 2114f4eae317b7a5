package authz

import (
	"log/slog"
	"net/http"

	"github.com/courierdash/courierdash/internal/shared"
)

// Middleware gates whole routes on the permission matrix using the role the
// route guard placed in the request context.
type Middleware struct {
	Logger *slog.Logger
}

// Require rejects the request with 403 unless the current role holds the
// capability. Lacking a capability is a rendering decision everywhere else;
// this middleware exists for resources gated as a whole, like settings.
func (m Middleware) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := shared.RoleFromContext(r.Context())
			if !Can(role, resource, action) {
				if m.Logger != nil {
					m.Logger.Warn("access denied",
						slog.String("resource", string(resource)),
						slog.String("action", string(action)),
						slog.String("path", r.URL.Path))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
