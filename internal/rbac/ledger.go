// Package rbac implementa el ledger rol↔permiso: la fuente de verdad de las
// asociaciones que alimentan la cache de permisos. Todas las mutaciones son
// transaccionales; un fallo en cualquier paso revierte la operación completa.
package rbac

import (
	"context"
	"errors"
	"sort"

	"github.com/dresguerra/admingate/internal/domain/autherr"
	"github.com/dresguerra/admingate/internal/domain/repository"
	"github.com/dresguerra/admingate/internal/observability/logger"
)

// Ledger administra las asociaciones rol↔permiso.
type Ledger struct {
	repo repository.RBACRepository
}

// NewLedger construye el servicio sobre el repositorio dado.
func NewLedger(repo repository.RBACRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Assign asocia al rol los permisos dados que aún no tenga. Es idempotente
// respecto de los ya asignados: reenviar una mezcla de nuevos y existentes no
// es error; que TODOS ya estén asignados sí lo es (ALL_ALREADY_ASSIGNED).
func (l *Ledger) Assign(ctx context.Context, roleID string, permissionIDs []string) error {
	log := logger.From(ctx).With(logger.Component("rbac"), logger.Op("assign"), logger.RoleID(roleID))

	ids := dedupe(permissionIDs)
	err := l.repo.WithTx(ctx, func(tx repository.RBACTx) error {
		if err := resolveRole(ctx, tx, roleID); err != nil {
			return err
		}
		if err := resolvePermissions(ctx, tx, ids); err != nil {
			return err
		}

		existing, err := tx.GetRolePermissionIDs(ctx, roleID)
		if err != nil {
			return autherr.Internal(err)
		}
		fresh := subtract(ids, existing)
		if len(fresh) == 0 {
			return autherr.New(autherr.KindAllAlreadyAssigned,
				"todos los permisos indicados ya están asignados al rol")
		}
		if err := tx.InsertRolePermissions(ctx, roleID, fresh); err != nil {
			return autherr.Internal(err)
		}
		log.Info("permisos asignados", logger.Count(len(fresh)))
		return nil
	})
	return asDomainErr(err)
}

// Replace sobreescribe el set completo de permisos del rol: borra todas las
// asociaciones existentes e inserta exactamente las indicadas.
func (l *Ledger) Replace(ctx context.Context, roleID string, permissionIDs []string) error {
	log := logger.From(ctx).With(logger.Component("rbac"), logger.Op("replace"), logger.RoleID(roleID))

	ids := dedupe(permissionIDs)
	err := l.repo.WithTx(ctx, func(tx repository.RBACTx) error {
		if err := resolveRole(ctx, tx, roleID); err != nil {
			return err
		}
		if err := resolvePermissions(ctx, tx, ids); err != nil {
			return err
		}
		if _, err := tx.DeleteAllRolePermissions(ctx, roleID); err != nil {
			return autherr.Internal(err)
		}
		if err := tx.InsertRolePermissions(ctx, roleID, ids); err != nil {
			return autherr.Internal(err)
		}
		log.Info("permisos reemplazados", logger.Count(len(ids)))
		return nil
	})
	return asDomainErr(err)
}

// RemoveSpecific elimina del rol las asociaciones con los permisos dados.
// Si alguno de los permisos pedidos no está asociado al rol, falla con
// PERMISSIONS_NOT_LINKED listando los ofensores y no elimina nada.
func (l *Ledger) RemoveSpecific(ctx context.Context, roleID string, permissionIDs []string) error {
	log := logger.From(ctx).With(logger.Component("rbac"), logger.Op("remove"), logger.RoleID(roleID))

	ids := dedupe(permissionIDs)
	err := l.repo.WithTx(ctx, func(tx repository.RBACTx) error {
		if err := resolveRole(ctx, tx, roleID); err != nil {
			return err
		}
		if err := resolvePermissions(ctx, tx, ids); err != nil {
			return err
		}

		existing, err := tx.GetRolePermissionIDs(ctx, roleID)
		if err != nil {
			return autherr.Internal(err)
		}
		notLinked := subtract(ids, existing)
		if len(notLinked) > 0 {
			return autherr.New(autherr.KindNotLinked,
				"los siguientes permisos no están asociados al rol").WithIDs(notLinked)
		}
		if _, err := tx.DeleteRolePermissions(ctx, roleID, ids); err != nil {
			return autherr.Internal(err)
		}
		log.Info("permisos removidos", logger.Count(len(ids)))
		return nil
	})
	return asDomainErr(err)
}

// ClearAll elimina todas las asociaciones del rol. Si no tiene ninguna,
// falla con NOTHING_TO_CLEAR.
func (l *Ledger) ClearAll(ctx context.Context, roleID string) error {
	log := logger.From(ctx).With(logger.Component("rbac"), logger.Op("clear"), logger.RoleID(roleID))

	err := l.repo.WithTx(ctx, func(tx repository.RBACTx) error {
		if err := resolveRole(ctx, tx, roleID); err != nil {
			return err
		}
		deleted, err := tx.DeleteAllRolePermissions(ctx, roleID)
		if err != nil {
			return autherr.Internal(err)
		}
		if deleted == 0 {
			return autherr.New(autherr.KindNothingToClear, "el rol no tiene permisos asignados")
		}
		log.Info("permisos limpiados", logger.Count(deleted))
		return nil
	})
	return asDomainErr(err)
}

// ListPermissionNames retorna la proyección ordenada de nombres de permisos
// asociados al rol.
func (l *Ledger) ListPermissionNames(ctx context.Context, roleID string) ([]string, error) {
	if _, err := l.repo.GetRole(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.New(autherr.KindRoleNotFound, "rol no encontrado")
		}
		return nil, autherr.Internal(err)
	}
	names, err := l.repo.GetRolePermissionNames(ctx, roleID)
	if err != nil {
		return nil, autherr.Internal(err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func resolveRole(ctx context.Context, r repository.RBACReader, roleID string) error {
	if _, err := r.GetRole(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return autherr.New(autherr.KindRoleNotFound, "rol no encontrado")
		}
		return autherr.Internal(err)
	}
	return nil
}

// resolvePermissions verifica que todos los IDs existan; los faltantes se
// reportan juntos en un único error. Una lista vacía (o toda en blanco) es un
// problema del request, no de existencia: falla como INVALID_INPUT.
func resolvePermissions(ctx context.Context, r repository.RBACReader, ids []string) error {
	if len(ids) == 0 {
		return autherr.New(autherr.KindInvalidInput, "lista de permisos vacía")
	}
	found, err := r.GetPermissionsByIDs(ctx, ids)
	if err != nil {
		return autherr.Internal(err)
	}
	if len(found) == len(ids) {
		return nil
	}
	have := make(map[string]bool, len(found))
	for _, p := range found {
		have[p.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return autherr.New(autherr.KindPermissionsNotFound,
		"los siguientes permisos no existen").WithIDs(missing)
}

// dedupe colapsa duplicados preservando orden estable para mensajes.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// subtract retorna los elementos de a que no están en b.
func subtract(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	var out []string
	for _, id := range a {
		if !in[id] {
			out = append(out, id)
		}
	}
	return out
}

// asDomainErr garantiza que lo que sale del servicio sea un *autherr.Error.
func asDomainErr(err error) error {
	if err == nil {
		return nil
	}
	var de *autherr.Error
	if errors.As(err, &de) {
		return err
	}
	return autherr.Internal(err)
}
