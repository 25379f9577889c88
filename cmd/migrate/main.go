package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"grocer-be/internal/config"
	"grocer-be/internal/db"
	"grocer-be/internal/logger"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	mode := flag.String("mode", "up", "migration mode: up, down or status")
	dir := flag.String("dir", "./migrations", "directory holding *.sql migrations")
	flag.Parse()

	// DB_URL wins over the DB_* settings when both are present
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		dsn = db.DSN(cfg)
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.L().Fatal("failed to open db", zap.Error(err))
	}
	defer conn.Close()

	if err := run(conn, *mode, *dir); err != nil {
		logger.L().Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func run(conn *sql.DB, mode, migrationsDir string) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	// file names carry a sortable version prefix
	sort.Strings(files)

	switch mode {
	case "up":
		return migrateUp(conn, files)
	case "down":
		return migrateDown(conn, files)
	case "status":
		return status(conn, files)
	default:
		return fmt.Errorf("unknown mode: %s (use up, down or status)", mode)
	}
}

func applied(conn *sql.DB, version string) (bool, error) {
	var exists bool
	err := conn.QueryRow(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", version, err)
	}
	return exists, nil
}

func migrateUp(conn *sql.DB, files []string) error {
	log := logger.L().With(zap.String("mode", "up"))

	count := 0
	for _, file := range files {
		version := filepath.Base(file)

		done, err := applied(conn, version)
		if err != nil {
			return err
		}
		if done {
			log.Debug("skipping applied migration", zap.String("version", version))
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}

		log.Info("applying migration", zap.String("version", version))
		err = inTx(conn, func(tx *sql.Tx) error {
			if _, err := tx.Exec(extractMigrationPart(string(content), "Up")); err != nil {
				return fmt.Errorf("apply %s: %w", version, err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
				return fmt.Errorf("record %s: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		count++
	}

	log.Info("migrations applied", zap.Int("count", count))
	return nil
}

func migrateDown(conn *sql.DB, files []string) error {
	log := logger.L().With(zap.String("mode", "down"))

	var version string
	err := conn.QueryRow(`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find last migration: %w", err)
	}

	var path string
	for _, f := range files {
		if filepath.Base(f) == version {
			path = f
			break
		}
	}
	if path == "" {
		return fmt.Errorf("migration file not found for version: %s", version)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	log.Info("rolling back migration", zap.String("version", version))
	return inTx(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(extractMigrationPart(string(content), "Down")); err != nil {
			return fmt.Errorf("roll back %s: %w", version, err)
		}
		if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
			return fmt.Errorf("unrecord %s: %w", version, err)
		}
		return nil
	})
}

func status(conn *sql.DB, files []string) error {
	log := logger.L().With(zap.String("mode", "status"))
	for _, file := range files {
		version := filepath.Base(file)
		done, err := applied(conn, version)
		if err != nil {
			return err
		}
		log.Info("migration", zap.String("version", version), zap.Bool("applied", done))
	}
	return nil
}

func inTx(conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// extractMigrationPart returns the lines between "-- +migrate <section>" and
// the next marker.
func extractMigrationPart(content string, section string) string {
	var part strings.Builder
	inPart := false

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "-- +migrate") {
			if inPart {
				break
			}
			inPart = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-- +migrate")) == section
			continue
		}
		if inPart {
			part.WriteString(line + "\n")
		}
	}
	return part.String()
}
