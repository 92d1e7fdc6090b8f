package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dresguerra/admingate/internal/domain/repository"
)

// rbacRepo implementa repository.RBACRepository.
type rbacRepo struct {
	pool *pgxpool.Pool
}

var _ repository.RBACRepository = rbacRepo{}

// rbacQueries implementa repository.RBACReader sobre un querier (pool o tx).
type rbacQueries struct {
	q querier
}

func (r rbacQueries) GetRole(ctx context.Context, roleID string) (*repository.Role, error) {
	const q = `SELECT id, name, created_at FROM role WHERE id = $1`
	var role repository.Role
	if err := r.q.QueryRow(ctx, q, roleID).Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
		return nil, translateErr(err)
	}
	return &role, nil
}

func (r rbacQueries) GetPermissionsByIDs(ctx context.Context, ids []string) ([]repository.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
SELECT id, name, description, created_at
FROM permission
WHERE id = ANY($1)
ORDER BY name`
	rows, err := r.q.Query(ctx, q, ids)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []repository.Permission
	for rows.Next() {
		var p repository.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r rbacQueries) GetRolePermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	const q = `SELECT permission_id FROM role_permission WHERE role_id = $1 ORDER BY permission_id`
	rows, err := r.q.Query(ctx, q, roleID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r rbacQueries) GetRolePermissionNames(ctx context.Context, roleID string) ([]string, error) {
	const q = `
SELECT p.name
FROM role_permission rp
JOIN permission p ON p.id = rp.permission_id
WHERE rp.role_id = $1
ORDER BY p.name`
	rows, err := r.q.Query(ctx, q, roleID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Lecturas fuera de transacción, directo sobre el pool.

func (r rbacRepo) GetRole(ctx context.Context, roleID string) (*repository.Role, error) {
	return rbacQueries{q: r.pool}.GetRole(ctx, roleID)
}

func (r rbacRepo) GetPermissionsByIDs(ctx context.Context, ids []string) ([]repository.Permission, error) {
	return rbacQueries{q: r.pool}.GetPermissionsByIDs(ctx, ids)
}

func (r rbacRepo) GetRolePermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	return rbacQueries{q: r.pool}.GetRolePermissionIDs(ctx, roleID)
}

func (r rbacRepo) GetRolePermissionNames(ctx context.Context, roleID string) ([]string, error) {
	return rbacQueries{q: r.pool}.GetRolePermissionNames(ctx, roleID)
}

// rbacTx implementa repository.RBACTx dentro de una transacción.
type rbacTx struct {
	rbacQueries
	tx pgx.Tx
}

func (t rbacTx) InsertRolePermissions(ctx context.Context, roleID string, permIDs []string) error {
	if len(permIDs) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, pid := range permIDs {
		b.Queue(`INSERT INTO role_permission (role_id, permission_id) VALUES ($1, $2)`, roleID, pid)
	}
	br := t.tx.SendBatch(ctx, b)
	defer br.Close()
	for range permIDs {
		if _, err := br.Exec(); err != nil {
			return translateErr(err)
		}
	}
	return nil
}

func (t rbacTx) DeleteRolePermissions(ctx context.Context, roleID string, permIDs []string) (int, error) {
	if len(permIDs) == 0 {
		return 0, nil
	}
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM role_permission WHERE role_id = $1 AND permission_id = ANY($2)`,
		roleID, permIDs,
	)
	if err != nil {
		return 0, translateErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (t rbacTx) DeleteAllRolePermissions(ctx context.Context, roleID string) (int, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM role_permission WHERE role_id = $1`, roleID)
	if err != nil {
		return 0, translateErr(err)
	}
	return int(tag.RowsAffected()), nil
}

// WithTx ejecuta fn dentro de una transacción. Rollback garantizado ante
// error o panic; commit solo si fn retorna nil.
func (r rbacRepo) WithTx(ctx context.Context, fn func(tx repository.RBACTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op si ya hubo commit

	if err := fn(rbacTx{rbacQueries: rbacQueries{q: tx}, tx: tx}); err != nil {
		return err
	}
	return translateErr(tx.Commit(ctx))
}
