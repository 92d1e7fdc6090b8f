package middlewares

import (
	"net/http"

	"github.com/dresguerra/admingate/internal/authz"
	httperrors "github.com/dresguerra/admingate/internal/http/errors"
)

// RequirePermissions consulta el guard de autorización con semántica AND:
// el caller necesita TODOS los permisos declarados. Debe ir después de
// RequireAuth (necesita el user ID en el contexto). El path de autorización
// es puramente cache-bound, nunca toca la base.
func RequirePermissions(guard *authz.Guard, required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				httperrors.WriteError(w, http.StatusUnauthorized, "TOKEN_MISSING", "falta el bearer token")
				return
			}
			if err := guard.Check(r.Context(), userID, required...); err != nil {
				httperrors.WriteDomain(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
