package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soaringjerry/VisitPulse/internal/api"
	"github.com/soaringjerry/VisitPulse/internal/catalog"
	"github.com/soaringjerry/VisitPulse/internal/config"
	"github.com/soaringjerry/VisitPulse/internal/db"
	"github.com/soaringjerry/VisitPulse/internal/logger"
	"github.com/soaringjerry/VisitPulse/internal/middleware"
	"github.com/soaringjerry/VisitPulse/internal/services"
)

// app is the wired service graph shared by the subcommands.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	store     api.Store
	auth      *middleware.Authenticator
	responses *services.ResponseService
	sessions  *services.SessionService
	admin     *services.AdminService
	dashboard *services.DashboardService
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	auth := middleware.NewAuthenticator(cfg.JWTSecret)
	admin, err := services.NewAdminService(store, cfg.AdminCode, auth.SignToken, cfg.TokenTTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	responses := services.NewResponseService(store, cat, log.With("component", "responses"))
	return &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		auth:      auth,
		responses: responses,
		sessions:  services.NewSessionService(responses, cfg.SessionTTL, cfg.ResultsTimeout, log.With("component", "sessions")),
		admin:     admin,
		dashboard: services.NewDashboardService(store, cat),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) router() *api.Router {
	return api.NewRouter(api.Deps{
		Responses: a.responses,
		Sessions:  a.sessions,
		Admin:     a.admin,
		Dashboard: a.dashboard,
		Auth:      a.auth,
		Log:       a.log.With("component", "http"),
		Info:      api.BuildInfo{Commit: a.cfg.Commit, BuildTime: a.cfg.BuildTime},
	})
}

// openStore returns the in-memory store when no database path is configured,
// otherwise a migrated SQLite store.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (api.Store, error) {
	if cfg.DBPath == "" {
		log.Warn("VISITPULSE_DB_PATH not set, responses are kept in memory only")
		return api.NewMemoryStore(), nil
	}
	return openSQLite(ctx, cfg, log)
}

func openSQLite(ctx context.Context, cfg *config.Config, log *logger.Logger) (*db.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	sqlDB, err := db.Open(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	applied, err := db.RunMigrations(ctx, sqlDB, cfg.MigrationsDir)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	for _, name := range applied {
		log.Info("migration applied", "name", name)
	}
	store, err := db.NewSQLiteStore(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}
	log.Info("sqlite store ready", "driver", cfg.DBDriver, "path", cfg.DBPath)
	return store, nil
}
