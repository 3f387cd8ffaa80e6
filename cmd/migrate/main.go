package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// dbCommands need a live Postgres connection.
var dbCommands = map[string]func(ctx context.Context, conn *sql.DB, opts options) error{
	"up": func(ctx context.Context, conn *sql.DB, opts options) error {
		return migrate.Run(ctx, conn, opts.dir, "up")
	},
	"down": func(ctx context.Context, conn *sql.DB, opts options) error {
		return migrate.Run(ctx, conn, opts.dir, "down")
	},
	"status": func(ctx context.Context, conn *sql.DB, opts options) error {
		return migrate.Run(ctx, conn, opts.dir, "status")
	},
	"version": func(ctx context.Context, conn *sql.DB, opts options) error {
		return migrate.MigrateToVersion(ctx, conn, opts.dir, opts.version)
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    opts.cmd,
		"dir":    opts.dir,
		"driver": cfg.DB.Driver,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("missing -name")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	command, ok := dbCommands[opts.cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if cfg.DB.IsSQLite() {
		if opts.cmd != "up" {
			return fmt.Errorf("not supported on sqlite")
		}
		if err := migrate.SyncSQLite(ctx, dbClient); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema synced")
		return nil
	}

	conn, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")
	return command(ctx, conn, opts)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
