// Package jwt emite y verifica los tokens firmados del servicio (EdDSA).
package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Errores de verificación.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrNotRefresh   = errors.New("not a refresh token")
)

// Issuer firma tokens con una clave ed25519 y los verifica por kid.
type Issuer struct {
	Iss        string // claim "iss"
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewIssuer crea un Issuer.
// seedB64 es la seed ed25519 (base64, 32 bytes); vacía genera una clave
// efímera (los tokens no sobreviven reinicios; solo dev/test).
func NewIssuer(iss, seedB64 string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if accessTTL <= 0 {
		accessTTL = 2 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	var priv ed25519.PrivateKey
	if seedB64 != "" {
		seed, err := base64.StdEncoding.DecodeString(seedB64)
		if err != nil {
			return nil, fmt.Errorf("jwt: decode signing seed: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("jwt: signing seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
		}
		priv = ed25519.NewKeyFromSeed(seed)
	} else {
		var err error
		_, priv, err = ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
	}

	pub := priv.Public().(ed25519.PublicKey)

	// kid derivado de la pubkey: estable entre procesos con la misma seed.
	sum := sha256.Sum256(pub)
	kid := base64.RawURLEncoding.EncodeToString(sum[:8])

	return &Issuer{
		Iss:        iss,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		kid:        kid,
		priv:       priv,
		pub:        pub,
	}, nil
}

// IssueAccess emite un Access Token con sub y username.
// La autorización es cache-backed: acá no se embeben permisos.
func (i *Issuer) IssueAccess(sub, username string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)
	claims := jwtv5.MapClaims{
		"iss":      i.Iss,
		"sub":      sub,
		"username": username,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      exp.Unix(),
	}
	signed, err := i.sign(claims)
	return signed, exp, err
}

// IssueRefresh emite un Refresh Token marcado con token_use=refresh.
func (i *Issuer) IssueRefresh(sub, username string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.RefreshTTL)
	claims := jwtv5.MapClaims{
		"iss":       i.Iss,
		"sub":       sub,
		"username":  username,
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       exp.Unix(),
		"token_use": "refresh",
	}
	signed, err := i.sign(claims)
	return signed, exp, err
}

func (i *Issuer) sign(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.kid
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.priv)
}

// Keyfunc devuelve un jwt.Keyfunc que valida el kid del token.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != i.kid {
			return nil, errors.New("unknown kid")
		}
		return i.pub, nil
	}
}

// ParseAndVerify parsea un token y valida firma, exp/nbf e issuer.
func (i *Issuer) ParseAndVerify(tokenStr string) (jwtv5.MapClaims, error) {
	tk, err := jwtv5.Parse(tokenStr, i.Keyfunc(),
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithIssuer(i.Iss),
	)
	if err != nil || !tk.Valid {
		return nil, ErrTokenInvalid
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseRefresh parsea un refresh token y verifica el marcador token_use.
// Retorna el subject.
func (i *Issuer) ParseRefresh(tokenStr string) (sub string, err error) {
	claims, err := i.ParseAndVerify(tokenStr)
	if err != nil {
		return "", err
	}
	if use, _ := claims["token_use"].(string); use != "refresh" {
		return "", ErrNotRefresh
	}
	sub, err = claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenInvalid
	}
	return sub, nil
}
