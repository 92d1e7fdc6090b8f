package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dresguerra/admingate/internal/domain/repository"
)

// userRepo implementa repository.UserRepository.
type userRepo struct {
	pool *pgxpool.Pool
}

var _ repository.UserRepository = userRepo{}

const userColumns = `id, username, email, password_hash, active, role_id, refresh_token_hash, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*repository.User, error) {
	var u repository.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Active,
		&u.RoleID, &u.RefreshTokenHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}
	return &u, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	const q = `SELECT ` + userColumns + ` FROM app_user WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, q, username))
}

func (r userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	const q = `SELECT ` + userColumns + ` FROM app_user WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, userID))
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	const q = `SELECT ` + userColumns + ` FROM app_user WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	const q = `
INSERT INTO app_user (id, username, email, password_hash, active, role_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING ` + userColumns
	now := time.Now().UTC()
	return scanUser(r.pool.QueryRow(ctx, q,
		uuid.NewString(), input.Username, input.Email, input.PasswordHash,
		input.Active, nullIfEmpty(input.RoleID), now,
	))
}

func (r userRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	const q = `UPDATE app_user SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, q, userID, newHash)
}

func (r userRepo) UpdateRefreshTokenHash(ctx context.Context, userID string, hash *string) error {
	const q = `UPDATE app_user SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, q, userID, nullIfEmpty(hash))
}

func (r userRepo) UpdateRole(ctx context.Context, userID string, roleID *string) error {
	const q = `UPDATE app_user SET role_id = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, q, userID, nullIfEmpty(roleID))
}

// exec ejecuta un UPDATE por id y traduce "cero filas" a ErrNotFound.
func (r userRepo) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
