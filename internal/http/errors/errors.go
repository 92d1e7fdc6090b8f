// Package errors traduce la taxonomía de errores del dominio al borde HTTP.
// Es la única capa que conoce status codes: los servicios solo hablan Kinds.
package errors

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dresguerra/admingate/internal/domain/autherr"
)

type apiError struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	IDs              []string `json:"ids,omitempty"`
	RequestID        string   `json:"request_id,omitempty"`
}

// statusFor es la tabla de traducción Kind → status HTTP.
func statusFor(kind autherr.Kind) int {
	switch kind {
	case autherr.KindInvalidCredentials, autherr.KindRefreshTokenInvalid, autherr.KindPermissionsNotCached:
		return http.StatusUnauthorized
	case autherr.KindAccountInactive, autherr.KindNoRoleAssigned,
		autherr.KindRefreshTokenMissing, autherr.KindInsufficientPermissions:
		return http.StatusForbidden
	case autherr.KindNotFound, autherr.KindRoleNotFound, autherr.KindPermissionsNotFound:
		return http.StatusNotFound
	case autherr.KindRefreshInProgress, autherr.KindAllAlreadyAssigned,
		autherr.KindNotLinked, autherr.KindNothingToClear, autherr.KindConflict:
		return http.StatusConflict
	case autherr.KindInvalidCode, autherr.KindCodeExpired,
		autherr.KindInvalidCurrentPassword, autherr.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomain responde un error de dominio con su status traducido.
// Errores no categorizados degradan a 500 sin exponer detalle interno.
func WriteDomain(w http.ResponseWriter, err error) {
	var de *autherr.Error
	if !errors.As(err, &de) {
		de = autherr.Internal(err)
	}
	writeBody(w, statusFor(de.Kind), apiError{
		Error:            string(de.Kind),
		ErrorDescription: de.Message,
		IDs:              de.IDs,
	})
}

// WriteError responde un error con código y descripción explícitos.
func WriteError(w http.ResponseWriter, status int, code, desc string) {
	writeBody(w, status, apiError{Error: code, ErrorDescription: desc})
}

func writeBody(w http.ResponseWriter, status int, body apiError) {
	body.RequestID = w.Header().Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica el body JSON de forma tolerante (no falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Content-Type debe ser application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "json inválido")
		return false
	}
	return true
}
