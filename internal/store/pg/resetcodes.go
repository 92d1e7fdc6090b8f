package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dresguerra/admingate/internal/domain/repository"
)

// resetCodeRepo implementa repository.ResetCodeRepository.
type resetCodeRepo struct {
	pool *pgxpool.Pool
}

var _ repository.ResetCodeRepository = resetCodeRepo{}

func (r resetCodeRepo) Create(ctx context.Context, input repository.CreateResetCodeInput) (*repository.ResetCode, error) {
	const q = `
INSERT INTO password_reset_code (id, user_id, code, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, code, expires_at, created_at`
	var rc repository.ResetCode
	err := r.pool.QueryRow(ctx, q,
		uuid.NewString(), input.UserID, input.Code, input.ExpiresAt.UTC(), time.Now().UTC(),
	).Scan(&rc.ID, &rc.UserID, &rc.Code, &rc.ExpiresAt, &rc.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &rc, nil
}

// GetByCode busca por código exacto. Con múltiples filas para el mismo código
// gana la vigente más nueva; si todas expiraron retorna la más nueva igual,
// para que el caller pueda eliminarla y reportar la expiración.
func (r resetCodeRepo) GetByCode(ctx context.Context, code string) (*repository.ResetCode, error) {
	const q = `
SELECT id, user_id, code, expires_at, created_at
FROM password_reset_code
WHERE code = $1
ORDER BY (expires_at > NOW()) DESC, created_at DESC
LIMIT 1`
	var rc repository.ResetCode
	err := r.pool.QueryRow(ctx, q, code).Scan(&rc.ID, &rc.UserID, &rc.Code, &rc.ExpiresAt, &rc.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &rc, nil
}

func (r resetCodeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM password_reset_code WHERE id = $1`, id)
	return translateErr(err)
}

func (r resetCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM password_reset_code WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, translateErr(err)
	}
	return int(tag.RowsAffected()), nil
}
