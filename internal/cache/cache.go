// Package cache provee abstracciones para caching con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, sobre go-cache; desarrollo/testing y single-node)
//   - Redis (producción)
//
// El cache es derivado y descartable: un miss nunca es un error fatal para el
// caller, es una señal de re-poblar (o re-autenticar, en el caso del cache de
// permisos).
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set guarda un valor con TTL. Si ttl es 0, usa el default del backend.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete elimina una key. Idempotente.
	Delete(ctx context.Context, key string) error

	// Ping verifica la conexión al backend.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// ErrNotFound indica que la key no existe en el cache.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind       string // "memory" | "redis"
	DefaultTTL time.Duration
	Redis      RedisConfig
}

// RedisConfig configuración del backend redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// New crea un cliente de cache según la configuración.
// Backends desconocidos caen a memory.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg.Redis)
	case "memory", "":
		return NewMemory(cfg.DefaultTTL), nil
	default:
		return NewMemory(cfg.DefaultTTL), nil
	}
}
