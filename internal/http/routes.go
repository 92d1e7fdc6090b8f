// Package http arma el router y el servidor del servicio.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dresguerra/admingate/internal/authz"
	"github.com/dresguerra/admingate/internal/http/handlers"
	"github.com/dresguerra/admingate/internal/http/middlewares"
	jwtx "github.com/dresguerra/admingate/internal/jwt"
)

// PermManageRoles protege las rutas del ledger rol↔permiso.
const PermManageRoles = "MANAGE_ROLES"

// RouterDeps agrupa lo que el router necesita.
type RouterDeps struct {
	Auth    *handlers.AuthHandler
	RBAC    *handlers.RBACHandler
	Health  *handlers.HealthHandler
	Issuer  *jwtx.Issuer
	Guard   *authz.Guard
	Metrics http.Handler // handler de /metrics; nil lo omite
}

// NewRouter arma el árbol de rutas con la cadena global de middlewares:
// request id → métricas → logging → recover.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	requireAuth := middlewares.RequireAuth(d.Issuer)
	requireManageRoles := middlewares.RequirePermissions(d.Guard, PermManageRoles)

	r.Get("/healthz", d.Health.Healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/signin", d.Auth.SignIn)
		r.Post("/refresh", d.Auth.Refresh)
		r.Post("/forgot-password", d.Auth.ForgotPassword)
		r.Post("/verify-reset-code", d.Auth.VerifyResetCode)
		r.Post("/reset-password", d.Auth.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", d.Auth.Logout)
			r.Post("/change-password", d.Auth.ChangePassword)
		})
	})

	r.Route("/v1/roles-permissions", func(r chi.Router) {
		r.Use(requireAuth, requireManageRoles)
		r.Post("/assign", d.RBAC.Assign)
		r.Put("/replace", d.RBAC.Replace)
		r.Delete("/remove", d.RBAC.Remove)
		r.Delete("/roles/{roleID}/clear", d.RBAC.Clear)
		r.Get("/roles/{roleID}/permissions", d.RBAC.List)
	})

	return middlewares.Chain(r,
		middlewares.WithRequestID(),
		WithMetrics,
		middlewares.WithLogging(),
		middlewares.WithRecover(),
	)
}
