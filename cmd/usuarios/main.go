// Package main implements the console entry point for the usuarios
// application: user and access-credential management backed by PostgreSQL.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Fraanv1/TPI-Programacion-II/internal/config"
	"github.com/Fraanv1/TPI-Programacion-II/internal/platform/logger"
	"github.com/Fraanv1/TPI-Programacion-II/internal/platform/postgres"
	"github.com/Fraanv1/TPI-Programacion-II/internal/service"
	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

const dbConnectTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("usuarios: %v", err)
	}
}

// run wires configuration, logging, the database and the service layer,
// then hands control to the interactive menu loop.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := openDatabase(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Warn("failed to close database", "error", closeErr)
		}
	}()

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	userStore := postgres.NewPostgresUserStore(db, appLogger)
	credentialStore := postgres.NewPostgresCredentialStore(db, appLogger)

	credentialService := service.NewCredentialService(credentialStore, userStore, db, appLogger)
	userService := service.NewUserService(userStore, credentialService, db, appLogger)

	appLogger.Info("usuarios started", "log_level", cfg.Server.LogLevel)

	m := newMenu(userService, os.Stdin, os.Stdout)
	return m.Run(context.Background())
}

// openDatabase opens the connection pool and verifies connectivity once at
// startup so a bad URL fails fast instead of on the first menu action.
func openDatabase(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", store.ErrConnection, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to reach database: %v", store.ErrConnection, err)
	}

	return db, nil
}
