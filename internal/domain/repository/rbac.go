package repository

import (
	"context"
	"time"
)

// Role representa un rol definido en el sistema.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Permission representa una capacidad atómica nombrada.
type Permission struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// RBACReader define las lecturas sobre roles, permisos y asociaciones.
// Está disponible tanto fuera como dentro de una transacción.
type RBACReader interface {
	// GetRole obtiene un rol por ID. Retorna ErrNotFound si no existe.
	GetRole(ctx context.Context, roleID string) (*Role, error)

	// GetPermissionsByIDs resuelve permisos por sus IDs.
	// Los IDs inexistentes simplemente no aparecen en el resultado.
	GetPermissionsByIDs(ctx context.Context, ids []string) ([]Permission, error)

	// GetRolePermissionIDs retorna los IDs de permisos asociados al rol.
	GetRolePermissionIDs(ctx context.Context, roleID string) ([]string, error)

	// GetRolePermissionNames retorna la proyección de nombres de permisos
	// asociados al rol, ordenada.
	GetRolePermissionNames(ctx context.Context, roleID string) ([]string, error)
}

// RBACTx agrega las mutaciones sobre la tabla de asociaciones.
// Solo existe dentro de WithTx: las asociaciones nunca se mutan fuera
// de una transacción.
type RBACTx interface {
	RBACReader

	// InsertRolePermissions inserta asociaciones (role, perm) para todos los
	// permIDs dados. La unicidad (role, permission) la garantiza el store.
	InsertRolePermissions(ctx context.Context, roleID string, permIDs []string) error

	// DeleteRolePermissions elimina las asociaciones del rol con los permIDs
	// dados. Retorna cuántas filas se eliminaron.
	DeleteRolePermissions(ctx context.Context, roleID string, permIDs []string) (int, error)

	// DeleteAllRolePermissions elimina todas las asociaciones del rol.
	// Retorna cuántas filas se eliminaron.
	DeleteAllRolePermissions(ctx context.Context, roleID string) (int, error)
}

// RBACRepository define el acceso al ledger rol↔permiso.
type RBACRepository interface {
	RBACReader

	// WithTx ejecuta fn dentro de una transacción. Commit solo si fn retorna
	// nil; cualquier error (o panic) hace rollback completo.
	WithTx(ctx context.Context, fn func(tx RBACTx) error) error
}
