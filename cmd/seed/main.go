// Comando seed: provisiona el rol ADMIN con sus permisos base y un usuario
// administrador con contraseña generada. Pensado para el primer arranque;
// es idempotente frente a datos ya existentes.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/dresguerra/admingate/internal/config"
	"github.com/dresguerra/admingate/internal/domain/repository"
	"github.com/dresguerra/admingate/internal/email"
	"github.com/dresguerra/admingate/internal/observability/logger"
	"github.com/dresguerra/admingate/internal/rbac"
	"github.com/dresguerra/admingate/internal/security/password"
	"github.com/dresguerra/admingate/internal/store/pg"
	migrations "github.com/dresguerra/admingate/migrations/postgres"
)

var basePermissions = []struct {
	name, description string
}{
	{"FETCH_ALL_USERS", "Listar todos los usuarios"},
	{"MANAGE_USERS", "Crear, modificar y desactivar usuarios"},
	{"MANAGE_ROLES", "Administrar roles y sus permisos"},
}

func main() {
	_ = godotenv.Load()

	var (
		cfgPath    = flag.String("config", "", "ruta del config.yaml (opcional)")
		adminUser  = flag.String("admin-user", "admin", "username del administrador")
		adminEmail = flag.String("admin-email", "admin@localhost", "email del administrador")
		migrate    = flag.Bool("migrate", true, "aplicar migraciones antes de sembrar")
	)
	flag.Parse()

	if err := run(*cfgPath, *adminUser, *adminEmail, *migrate); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfgPath, adminUser, adminEmail string, migrate bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cargar config: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "admingate-seed"})
	defer logger.Sync() //nolint:errcheck
	log := logger.L()

	ctx := context.Background()

	store, err := pg.New(ctx, pg.Config{DSN: cfg.Storage.DSN})
	if err != nil {
		return err
	}
	defer store.Close()

	if migrate {
		if _, err := store.Migrate(ctx, migrations.FS); err != nil {
			return err
		}
	}

	// Rol ADMIN
	role, err := store.CreateRole(ctx, "ADMIN")
	if err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		log.Info("el rol ADMIN ya existe, nada que sembrar")
		return nil
	}
	log.Info("rol creado", logger.RoleID(role.ID))

	// Permisos base + asociación
	permIDs := make([]string, 0, len(basePermissions))
	for _, p := range basePermissions {
		perm, err := store.CreatePermission(ctx, p.name, p.description)
		if err != nil {
			return err
		}
		permIDs = append(permIDs, perm.ID)
	}
	ledger := rbac.NewLedger(store.RBAC())
	if err := ledger.Assign(ctx, role.ID, permIDs); err != nil {
		return err
	}
	log.Info("permisos base asignados", logger.Count(len(permIDs)))

	// Usuario administrador con contraseña generada
	plain, err := randomPassword()
	if err != nil {
		return err
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return err
	}
	user, err := store.Users().Create(ctx, repository.CreateUserInput{
		Username:     adminUser,
		Email:        adminEmail,
		PasswordHash: hash,
		Active:       true,
		RoleID:       &role.ID,
	})
	if err != nil {
		return err
	}
	log.Info("usuario administrador creado", logger.UserID(user.ID), logger.Username(user.Username))

	if cfg.SMTP.Host != "" {
		mailSvc := email.NewService(&email.SMTPSender{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			From:               cfg.SMTP.From,
			User:               cfg.SMTP.Username,
			Pass:               cfg.SMTP.Password,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
		if err := mailSvc.SendAccessCredentials(adminEmail, adminUser, plain); err != nil {
			log.Warn("no se pudieron enviar las credenciales por correo", logger.Err(err))
			fmt.Printf("contraseña generada para %s: %s\n", adminUser, plain)
		}
	} else {
		fmt.Printf("contraseña generada para %s: %s\n", adminUser, plain)
	}

	return nil
}

func randomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
