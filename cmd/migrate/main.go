package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"workshop-manager/internal/config"
	"workshop-manager/internal/logging"
	"workshop-manager/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// advisoryLockKey serializes concurrent migrator runs.
const advisoryLockKey = 7462839

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.App.LogLevel, cfg.IsDevelopment())

	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal().Err(err).Msg("[CONNECT]")
	}

	ctx := context.Background()
	pool := connectDB(ctx, cfg.Database.URL)
	defer pool.Close()

	conn := acquireLock(ctx, pool)
	defer conn.Release()

	setupSchemaMigrations(ctx, conn)

	filenames, err := migrations.Files()
	if err != nil {
		log.Fatal().Err(err).Msg("[DISCOVER]")
	}

	for _, filename := range filenames {
		if err := applyMigration(ctx, conn, filename); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("[ERROR]")
		}
	}

	log.Info().Int("files", len(filenames)).Msg("[DONE] all migrations processed")
}

func connectDB(ctx context.Context, url string) *pgxpool.Pool {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		log.Fatal().Err(err).Msg("[CONNECT] failed to create pool")
	}

	if err := pool.Ping(connCtx); err != nil {
		log.Fatal().Err(err).Msg("[CONNECT] failed to ping database")
	}

	log.Info().Msg("[CONNECT] success")
	return pool
}

// acquireLock takes a session advisory lock on a dedicated connection. All
// migration work runs on that connection so the lock covers it.
func acquireLock(ctx context.Context, pool *pgxpool.Pool) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("[LOCK] failed to acquire connection for lock")
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		log.Fatal().Err(err).Msg("[LOCK] failed to query advisory lock")
	}
	if !locked {
		log.Fatal().Msg("[LOCK] failed: another migrator is currently running")
	}

	log.Info().Msg("[LOCK] success")
	return conn
}

func setupSchemaMigrations(ctx context.Context, conn *pgxpool.Conn) {
	query := `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := conn.Exec(ctx, query); err != nil {
		log.Fatal().Err(err).Msg("[ERROR] failed to create schema_migrations table")
	}
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// applyMigration runs one file in its own transaction. A file already applied
// with the same checksum is skipped; an edited applied file is an error.
func applyMigration(ctx context.Context, conn *pgxpool.Conn, filename string) error {
	version, err := migrations.Version(filename)
	if err != nil {
		return err
	}
	sqlBytes, err := fs.ReadFile(migrations.FS, filename)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}
	sum := checksum(sqlBytes)

	var existing string
	err = conn.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", version).Scan(&existing)
	switch {
	case err == nil:
		if existing != sum {
			return fmt.Errorf("checksum mismatch: recorded %s, file %s", existing, sum)
		}
		log.Info().Str("file", filename).Msg("[SKIP]")
		return nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return fmt.Errorf("failed to query schema_migrations: %w", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, sum,
	); err != nil {
		return fmt.Errorf("failed to insert migration record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Info().Str("file", filename).Msg("[APPLY]")
	return nil
}
