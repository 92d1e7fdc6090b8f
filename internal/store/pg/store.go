// Package pg implementa los repositorios del dominio sobre PostgreSQL.
// Usa pgxpool directamente.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dresguerra/admingate/internal/domain/repository"
)

// querier es el subconjunto común de pgxpool.Pool y pgx.Tx que usan las
// queries. Permite compartir las lecturas entre pool y transacción.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store agrupa los repositorios PostgreSQL sobre un único pool.
type Store struct {
	pool *pgxpool.Pool
}

// Config parametriza la conexión.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// New abre el pool y verifica la conexión.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close cierra el pool.
func (s *Store) Close() { s.pool.Close() }

// Pool expone el pool para infraestructura (migraciones, health checks).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Users retorna el repositorio de usuarios.
func (s *Store) Users() repository.UserRepository { return userRepo{pool: s.pool} }

// RBAC retorna el repositorio del ledger rol↔permiso.
func (s *Store) RBAC() repository.RBACRepository { return rbacRepo{pool: s.pool} }

// ResetCodes retorna el repositorio de códigos de reset.
func (s *Store) ResetCodes() repository.ResetCodeRepository { return resetCodeRepo{pool: s.pool} }

// nullIfEmpty retorna nil si el string es nil o vacío.
func nullIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// translateErr traduce errores del driver a los sentinels del dominio.
// Las violaciones de constraints nunca se filtran crudas hacia arriba.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return &repository.ConflictError{Field: conflictField(pgErr.ConstraintName)}
		case "23503": // foreign_key_violation
			return repository.ErrConflict
		case "22001": // string_data_right_truncation
			return repository.ErrInvalidInput
		}
	}
	return err
}

// conflictField mapea el nombre del constraint único al campo ofensivo.
func conflictField(constraint string) string {
	switch constraint {
	case "app_user_username_key":
		return "username"
	case "app_user_email_key":
		return "email"
	case "role_name_key":
		return "role name"
	case "permission_name_key":
		return "permission name"
	case "role_permission_pkey":
		return "role permission"
	}
	return ""
}
