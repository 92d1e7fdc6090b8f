package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dresguerra/admingate/internal/auth"
	"github.com/dresguerra/admingate/internal/authz"
	"github.com/dresguerra/admingate/internal/cache"
	"github.com/dresguerra/admingate/internal/config"
	"github.com/dresguerra/admingate/internal/email"
	httpserver "github.com/dresguerra/admingate/internal/http"
	"github.com/dresguerra/admingate/internal/http/handlers"
	jwtx "github.com/dresguerra/admingate/internal/jwt"
	"github.com/dresguerra/admingate/internal/observability/logger"
	"github.com/dresguerra/admingate/internal/rbac"
	"github.com/dresguerra/admingate/internal/store/pg"
	migrations "github.com/dresguerra/admingate/migrations/postgres"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:           "admingate",
		Short:         "Servicio de autenticación y autorización",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "ruta del config.yaml (opcional)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath)
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes y termina",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cfgPath)
		},
	}

	root.AddCommand(serve, migrate)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cargar config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "admingate",
		Version:     version,
	})
	defer logger.Sync() //nolint:errcheck
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := pg.New(ctx, pg.Config{
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	cacheClient, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		DefaultTTL: config.Dur(cfg.Cache.DefaultTTL),
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
	})
	if err != nil {
		return err
	}
	defer cacheClient.Close()

	issuer, err := jwtx.NewIssuer(cfg.JWT.Issuer, cfg.JWT.SigningKey,
		config.Dur(cfg.JWT.AccessTTL), config.Dur(cfg.JWT.RefreshTTL))
	if err != nil {
		return err
	}

	permCache := authz.NewPermissionCache(cacheClient, config.Dur(cfg.Cache.DefaultTTL))
	guard := authz.NewGuard(permCache)

	var mailSvc *email.Service
	if cfg.SMTP.Host != "" {
		mailSvc = email.NewService(&email.SMTPSender{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			From:               cfg.SMTP.From,
			User:               cfg.SMTP.Username,
			Pass:               cfg.SMTP.Password,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
	} else {
		log.Warn("SMTP no configurado, no se enviarán correos")
	}

	authSvc := auth.NewService(auth.Deps{
		Users:      store.Users(),
		RBAC:       store.RBAC(),
		ResetCodes: store.ResetCodes(),
		Issuer:     issuer,
		Perms:      permCache,
		Mail:       mailSvc,
		ResetTTL:   cfg.Auth.Reset.TTL,
	})
	ledger := rbac.NewLedger(store.RBAC())

	metricsHandler, err := httpserver.RegisterMetrics(httpserver.MetricsConfig{
		Pool: store.Pool,
	})
	if err != nil {
		return err
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Auth:    handlers.NewAuthHandler(authSvc, issuer),
		RBAC:    handlers.NewRBACHandler(ledger),
		Health:  handlers.NewHealthHandler(store, cacheClient),
		Issuer:  issuer,
		Guard:   guard,
		Metrics: metricsHandler,
	})

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  config.Dur(cfg.Server.ReadTimeout),
		WriteTimeout: config.Dur(cfg.Server.WriteTimeout),
	}, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("servidor escuchando", logger.String("addr", cfg.Server.Addr))
		return srv.Start()
	})

	// Limpieza periódica de códigos de reset vencidos.
	g.Go(func() error {
		interval := config.Dur(cfg.Auth.CleanupInterval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := authSvc.CleanupExpiredCodes(gctx); err != nil {
					log.Warn("limpieza de códigos falló", logger.Err(err))
				} else if n > 0 {
					log.Info("códigos de reset vencidos eliminados", logger.Count(n))
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("apagando servidor")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Dur(cfg.Server.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runMigrate(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cargar config: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "admingate", Version: version})
	defer logger.Sync() //nolint:errcheck
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := pg.New(ctx, pg.Config{
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	applied, err := store.Migrate(ctx, migrations.FS)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		log.Info("sin migraciones pendientes")
	} else {
		log.Info("migraciones aplicadas", logger.Any("versions", applied))
	}
	return nil
}
