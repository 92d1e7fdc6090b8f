// Package authz contiene el cache de permisos y el guard de autorización.
//
// El cache es la única fuente del path de autorización: un request nunca toca
// la base de datos para decidir acceso. Las mutaciones del ledger NO invalidan
// entradas de otros usuarios que comparten el rol; esas entradas quedan stale
// hasta que expire el TTL o el usuario vuelva a firmar/refrescar. Trade-off
// aceptado y documentado en la spec del servicio.
package authz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dresguerra/admingate/internal/cache"
)

// CacheKeyPrefix es el prefijo de las entradas de permisos.
const CacheKeyPrefix = "perm:user:"

// PermissionCache mapea user id → set de nombres de permisos, con TTL.
// Escrito por el Auth Service en cada sign-in/refresh; leído por el Guard.
type PermissionCache struct {
	client cache.Client
	ttl    time.Duration
}

// NewPermissionCache crea el cache de permisos sobre un cache.Client.
func NewPermissionCache(client cache.Client, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PermissionCache{client: client, ttl: ttl}
}

type entry struct {
	Permissions []string `json:"permissions"`
}

// Set escribe el snapshot de permisos del usuario.
func (p *PermissionCache) Set(ctx context.Context, userID string, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}
	b, err := json.Marshal(entry{Permissions: permissions})
	if err != nil {
		return err
	}
	return p.client.Set(ctx, CacheKeyPrefix+userID, b, p.ttl)
}

// Get obtiene el snapshot de permisos del usuario.
// ok=false en miss (inexistente, expirado o payload corrupto).
func (p *PermissionCache) Get(ctx context.Context, userID string) ([]string, bool) {
	b, err := p.client.Get(ctx, CacheKeyPrefix+userID)
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false
	}
	return e.Permissions, true
}

// Evict elimina la entrada del usuario (logout). Idempotente.
func (p *PermissionCache) Evict(ctx context.Context, userID string) error {
	return p.client.Delete(ctx, CacheKeyPrefix+userID)
}
