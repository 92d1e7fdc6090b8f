// Package autherr define la taxonomía de errores de dominio del subsistema
// de autenticación/autorización. Cada error lleva un Kind estable legible por
// máquina, un mensaje humano y, cuando aplica, la lista de IDs ofensivos.
//
// La capa HTTP traduce Kind → status; las capas de dominio nunca conocen HTTP.
package autherr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind es el código estable del error.
type Kind string

const (
	KindInvalidCredentials      Kind = "INVALID_CREDENTIALS"
	KindAccountInactive         Kind = "ACCOUNT_INACTIVE"
	KindNoRoleAssigned          Kind = "NO_ROLE_ASSIGNED"
	KindRefreshTokenMissing     Kind = "REFRESH_TOKEN_MISSING"
	KindRefreshTokenInvalid     Kind = "REFRESH_TOKEN_INVALID"
	KindRefreshInProgress       Kind = "REFRESH_TOKEN_ALREADY_IN_PROGRESS"
	KindNotFound                Kind = "NOT_FOUND"
	KindInvalidCode             Kind = "INVALID_RESET_CODE"
	KindCodeExpired             Kind = "RESET_CODE_EXPIRED"
	KindInvalidCurrentPassword  Kind = "INVALID_CURRENT_PASSWORD"
	KindRoleNotFound            Kind = "ROLE_NOT_FOUND"
	KindPermissionsNotFound     Kind = "PERMISSIONS_NOT_FOUND"
	KindAllAlreadyAssigned      Kind = "ALL_ALREADY_ASSIGNED"
	KindNotLinked               Kind = "PERMISSIONS_NOT_LINKED"
	KindNothingToClear          Kind = "NOTHING_TO_CLEAR"
	KindPermissionsNotCached    Kind = "PERMISSIONS_NOT_CACHED"
	KindInsufficientPermissions Kind = "INSUFFICIENT_PERMISSIONS"
	KindConflict                Kind = "CONFLICT"
	KindInvalidInput            Kind = "INVALID_INPUT"
	KindInternal                Kind = "INTERNAL_ERROR"
)

// Error es el error de dominio con Kind estable.
type Error struct {
	Kind    Kind
	Message string
	IDs     []string // IDs ofensivos (PermissionsNotFound, NotLinked)
	Err     error    // causa original, solo para logs
}

func (e *Error) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Message, strings.Join(e.IDs, ", "))
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap permite acceder a la causa original.
func (e *Error) Unwrap() error { return e.Err }

// Is permite comparar con errors.Is contra otro *Error por Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New crea un error de dominio.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf crea un error de dominio con mensaje formateado.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithIDs retorna una copia con la lista de IDs ofensivos.
func (e *Error) WithIDs(ids []string) *Error {
	ne := *e
	ne.IDs = ids
	return &ne
}

// Wrap crea un error de dominio conservando la causa.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal envuelve un error inesperado en el kind genérico interno.
// El detalle queda solo en la causa (para logs), nunca en el mensaje.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "error interno", Err: err}
}

// KindOf extrae el Kind de un error. Errores no categorizados son internos.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind verifica si err tiene el Kind dado.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
