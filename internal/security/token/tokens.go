// Package token provee helpers para el manejo de refresh tokens persistidos:
// del token presentado solo se guarda su hash, nunca el valor crudo.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// SHA256Base64URL devuelve sha256(input) en base64url sin padding
// (formato de almacenamiento en DB).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// HashMatches compara en tiempo constante el hash de un token presentado
// contra el hash almacenado.
func HashMatches(presented, storedHash string) bool {
	h := SHA256Base64URL(presented)
	return subtle.ConstantTimeCompare([]byte(h), []byte(storedHash)) == 1
}
