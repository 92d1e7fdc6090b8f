package pg

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dresguerra/admingate/internal/domain/repository"
)

// Helpers de bootstrap usados por cmd/seed. El CRUD general de roles y
// permisos vive fuera de este servicio; acá solo lo mínimo para provisionar.

// CreateRole crea un rol. Retorna ErrConflict si el nombre ya existe.
func (s *Store) CreateRole(ctx context.Context, name string) (*repository.Role, error) {
	const q = `
INSERT INTO role (id, name, created_at)
VALUES ($1, $2, $3)
RETURNING id, name, created_at`
	var role repository.Role
	err := s.pool.QueryRow(ctx, q, uuid.NewString(), name, time.Now().UTC()).
		Scan(&role.ID, &role.Name, &role.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &role, nil
}

// CreatePermission crea un permiso. Retorna ErrConflict si el nombre ya existe.
func (s *Store) CreatePermission(ctx context.Context, name, description string) (*repository.Permission, error) {
	const q = `
INSERT INTO permission (id, name, description, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id, name, description, created_at`
	var p repository.Permission
	err := s.pool.QueryRow(ctx, q, uuid.NewString(), name, description, time.Now().UTC()).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &p, nil
}
