package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/dresguerra/admingate/internal/authz"
	"github.com/dresguerra/admingate/internal/cache"
	"github.com/dresguerra/admingate/internal/domain/autherr"
)

func newGuard(t *testing.T) (*authz.PermissionCache, *authz.Guard) {
	t.Helper()
	perms := authz.NewPermissionCache(cache.NewMemory(time.Minute), time.Minute)
	return perms, authz.NewGuard(perms)
}

func TestGuard_DeniesWhenNotCached(t *testing.T) {
	_, guard := newGuard(t)

	err := guard.Check(context.Background(), "user-1", "FETCH_ALL_USERS")
	if !autherr.IsKind(err, autherr.KindPermissionsNotCached) {
		t.Fatalf("esperaba PERMISSIONS_NOT_CACHED, got %v", err)
	}
}

func TestGuard_DeniesWhenMissingOne(t *testing.T) {
	perms, guard := newGuard(t)
	ctx := context.Background()

	if err := perms.Set(ctx, "user-1", []string{"FETCH_ALL_USERS"}); err != nil {
		t.Fatalf("Set err: %v", err)
	}

	err := guard.Check(ctx, "user-1", "FETCH_ALL_USERS", "MANAGE_ROLES")
	if !autherr.IsKind(err, autherr.KindInsufficientPermissions) {
		t.Fatalf("esperaba INSUFFICIENT_PERMISSIONS, got %v", err)
	}
}

func TestGuard_AllowsWhenAllPresent(t *testing.T) {
	perms, guard := newGuard(t)
	ctx := context.Background()

	if err := perms.Set(ctx, "user-1", []string{"FETCH_ALL_USERS", "MANAGE_ROLES"}); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	if err := guard.Check(ctx, "user-1", "FETCH_ALL_USERS", "MANAGE_ROLES"); err != nil {
		t.Fatalf("debía permitir: %v", err)
	}
}

func TestGuard_NoRequiredIsPublic(t *testing.T) {
	_, guard := newGuard(t)
	if err := guard.Check(context.Background(), "user-1"); err != nil {
		t.Fatalf("sin permisos requeridos debe permitir: %v", err)
	}
}

func TestGuard_NormalizesWhitespaceBothSides(t *testing.T) {
	perms, guard := newGuard(t)
	ctx := context.Background()

	// nombres cacheados con relleno y requeridos con relleno comparan igual
	if err := perms.Set(ctx, "user-1", []string{"  FETCH_ALL_USERS  "}); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	if err := guard.Check(ctx, "user-1", "FETCH_ALL_USERS"); err != nil {
		t.Fatalf("el nombre cacheado con relleno debe coincidir: %v", err)
	}
	if err := guard.Check(ctx, "user-1", " FETCH_ALL_USERS "); err != nil {
		t.Fatalf("el requerido con relleno debe coincidir: %v", err)
	}
}

func TestPermissionCache_EvictAndNilSet(t *testing.T) {
	perms, _ := newGuard(t)
	ctx := context.Background()

	// nil se normaliza a lista vacía (cache hit con cero permisos)
	if err := perms.Set(ctx, "user-1", nil); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	got, ok := perms.Get(ctx, "user-1")
	if !ok || len(got) != 0 {
		t.Fatalf("esperaba hit con lista vacía, got %v ok=%v", got, ok)
	}

	if err := perms.Evict(ctx, "user-1"); err != nil {
		t.Fatalf("Evict err: %v", err)
	}
	if _, ok := perms.Get(ctx, "user-1"); ok {
		t.Fatal("después de Evict debe ser miss")
	}
	// idempotente
	if err := perms.Evict(ctx, "user-1"); err != nil {
		t.Fatalf("Evict repetido err: %v", err)
	}
}
