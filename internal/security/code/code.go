// Package code genera códigos numéricos de restablecimiento de contraseña.
package code

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	min = 100000
	max = 999999
)

// NewResetCode genera un código de 6 dígitos (100000–999999 inclusive)
// desde una fuente criptográficamente segura.
func NewResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+min, 10), nil
}
