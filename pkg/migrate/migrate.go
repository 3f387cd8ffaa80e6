package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
)

const (
	DefaultDir = "pkg/migrate/migrations"

	// SQL files are written for Postgres only.
	dialect = "postgres"
)

// Step describes what MigrateToVersion has to do to reach a target version.
type Step int

const (
	StepNone Step = iota
	StepUp
	StepDown
)

// Run executes a goose command against the migrations in dir.
func Run(ctx context.Context, conn *sql.DB, dir string, command string, args ...string) error {
	if err := prepare(conn, dir); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, conn, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion walks the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, conn *sql.DB, dir string, targetVersion string) error {
	target, err := ParseVersion(targetVersion)
	if err != nil {
		return err
	}
	if err := prepare(conn, dir); err != nil {
		return err
	}

	current, err := goose.GetDBVersion(conn)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch Plan(current, target) {
	case StepUp:
		if err := goose.UpToContext(ctx, conn, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	case StepDown:
		if err := goose.DownToContext(ctx, conn, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

// ParseVersion reads a YYYYMMDDHHMMSS migration version.
func ParseVersion(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("target version is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	return v, nil
}

// Plan picks the direction from current to target.
func Plan(current, target int64) Step {
	switch {
	case current < target:
		return StepUp
	case current > target:
		return StepDown
	default:
		return StepNone
	}
}

// SyncSQLite creates the schema on a sqlite database straight from the models.
func SyncSQLite(ctx context.Context, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("sqlite automigrate: %w", err)
	}
	return nil
}

func prepare(conn *sql.DB, dir string) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}
