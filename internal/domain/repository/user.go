package repository

import (
	"context"
	"time"
)

// User representa una identidad autenticable del backend administrativo.
type User struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	Active           bool
	RoleID           *string
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasRole indica si el usuario tiene un rol asignado.
func (u *User) HasRole() bool {
	return u.RoleID != nil && *u.RoleID != ""
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	RoleID       *string
}

// UserRepository define operaciones sobre usuarios.
// "No encontrado" siempre se reporta como ErrNotFound, nunca como nil-nil.
type UserRepository interface {
	// GetByUsername busca un usuario por username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID busca un usuario por ID.
	GetByID(ctx context.Context, userID string) (*User, error)

	// GetByEmail busca un usuario por email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create crea un nuevo usuario.
	// Retorna ErrConflict si username o email ya existen.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// UpdatePasswordHash reemplaza el hash del password.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// UpdateRefreshTokenHash reemplaza el hash del refresh token.
	// nil limpia el valor (logout).
	UpdateRefreshTokenHash(ctx context.Context, userID string, hash *string) error

	// UpdateRole asigna (o limpia, con nil) el rol del usuario.
	UpdateRole(ctx context.Context, userID string, roleID *string) error
}
