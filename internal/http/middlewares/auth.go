package middlewares

import (
	"net/http"
	"strings"

	httperrors "github.com/dresguerra/admingate/internal/http/errors"
	jwtx "github.com/dresguerra/admingate/internal/jwt"
)

// RequireAuth valida Authorization: Bearer <JWT> y guarda la identidad en el
// contexto. Rechaza refresh tokens: acá solo entran access tokens.
func RequireAuth(issuer *jwtx.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				httperrors.WriteError(w, http.StatusUnauthorized, "TOKEN_MISSING", "falta el bearer token")
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := issuer.ParseAndVerify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				httperrors.WriteError(w, http.StatusUnauthorized, "TOKEN_INVALID", "token inválido o expirado")
				return
			}
			if use, _ := claims["token_use"].(string); use == "refresh" {
				httperrors.WriteError(w, http.StatusUnauthorized, "TOKEN_INVALID", "un refresh token no autoriza requests")
				return
			}

			ctx := r.Context()
			if sub, _ := claims.GetSubject(); sub != "" {
				ctx = WithUserID(ctx, sub)
			}
			if username, _ := claims["username"].(string); username != "" {
				ctx = WithUsername(ctx, username)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
