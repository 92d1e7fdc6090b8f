package authz

import (
	"context"
	"strings"

	"github.com/dresguerra/admingate/internal/domain/autherr"
	"github.com/dresguerra/admingate/internal/observability/logger"
)

// Guard decide autorización por request, solo contra el cache de permisos.
// Semántica AND: todos los permisos requeridos deben estar presentes.
type Guard struct {
	perms *PermissionCache
}

// NewGuard crea el guard sobre el cache de permisos.
func NewGuard(perms *PermissionCache) *Guard {
	return &Guard{perms: perms}
}

// Check permite o niega el acceso del usuario a una operación que requiere
// los permisos dados.
//
//   - Cache miss → PERMISSIONS_NOT_CACHED (equivalente a no autenticado;
//     nunca default-allow).
//   - Falta alguno de los requeridos → INSUFFICIENT_PERMISSIONS.
//
// Sin permisos requeridos la operación es pública para cualquier sujeto
// autenticado.
func (g *Guard) Check(ctx context.Context, userID string, required ...string) error {
	if len(required) == 0 {
		return nil
	}

	cached, ok := g.perms.Get(ctx, userID)
	if !ok {
		logger.From(ctx).Debug("permissions not cached",
			logger.Component("authz.guard"),
			logger.UserID(userID),
		)
		return autherr.New(autherr.KindPermissionsNotCached,
			"no se encontraron permisos en la caché para este usuario")
	}

	have := make(map[string]struct{}, len(cached))
	for _, p := range cached {
		have[strings.TrimSpace(p)] = struct{}{}
	}

	// requeridos y cacheados se comparan normalizados por igual
	var missing []string
	for _, p := range required {
		if _, ok := have[strings.TrimSpace(p)]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		logger.From(ctx).Debug("insufficient permissions",
			logger.Component("authz.guard"),
			logger.UserID(userID),
			logger.Permissions(missing),
		)
		return autherr.New(autherr.KindInsufficientPermissions,
			"no tienes los permisos necesarios para acceder a este recurso")
	}
	return nil
}
