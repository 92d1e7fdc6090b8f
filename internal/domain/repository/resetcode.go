package repository

import (
	"context"
	"time"
)

// ResetCode representa un código temporal de restablecimiento de contraseña.
// Single-use: se elimina al consumirse o al detectarse expirado.
type ResetCode struct {
	ID        string
	UserID    string
	Code      string // 6 dígitos numéricos
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CreateResetCodeInput contiene los datos para crear un código de reset.
type CreateResetCodeInput struct {
	UserID    string
	Code      string
	ExpiresAt time.Time
}

// ResetCodeRepository define operaciones sobre códigos de reset.
// Puede haber múltiples códigos vigentes por usuario; la búsqueda es por
// código exacto y gana la primera coincidencia no expirada.
type ResetCodeRepository interface {
	// Create persiste un nuevo código.
	Create(ctx context.Context, input CreateResetCodeInput) (*ResetCode, error)

	// GetByCode busca un código por su valor. Retorna ErrNotFound si no existe.
	GetByCode(ctx context.Context, code string) (*ResetCode, error)

	// Delete elimina un código por ID. Idempotente.
	Delete(ctx context.Context, id string) error

	// DeleteExpired elimina códigos expirados (cleanup job).
	// Retorna el número de códigos eliminados.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
