// Package main is the entrypoint for cad-bridge.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/cad-bridge/internal/config"
	"github.com/morezero/cad-bridge/internal/server"
	"github.com/morezero/cad-bridge/pkg/bootstrap"
	"github.com/morezero/cad-bridge/pkg/db"
	"github.com/morezero/cad-bridge/pkg/entity"
)

const usage = `Usage: cad-bridge [command]
       cad-bridge serve              Start the bridge (host main loop, NATS, HTTP).
       cad-bridge migrate up         Run journal migrations.
       cad-bridge migrate down       Report only; journal migrations are forward-only.
       cad-bridge migrate status     Show migration status.
       cad-bridge ensure-db [name]   Create the journal database if missing (default name: cad_bridge_test).
       cad-bridge clear              Truncate the operation journal; schema is preserved.
       cad-bridge prune <age>        Delete journal rows older than age (e.g. 72h).
       cad-bridge check-design [file] Load a design seed and print what it registers.

Commands:
  serve           (default) Start the bridge.
  migrate up      Run journal migrations only.
  migrate down    Forward-only; prints how to drop journal rows instead.
  migrate status  Show current migration status.
  ensure-db [name] Create database on the same host as DATABASE_URL.
  clear           Truncate the operation journal.
  prune <age>     Remove old journal rows.
  check-design    Validate BRIDGE_DESIGN_FILE (or the given file) without starting the bridge.

Environment: COMMS_URL, DATABASE_URL (journal and database commands), MIGRATION_PATH,
BRIDGE_HTTP_ADDR (default :8080), BRIDGE_DESIGN_FILE, BRIDGE_REQUEST_TIMEOUT.
`

const defaultTestDatabase = "cad_bridge_test"

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("cad-bridge migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := withPool(runMigrateUp); err != nil {
				log.Fatalf("cad-bridge migrate up: %v", err)
			}
		case "status":
			if err := withPool(runMigrateStatus); err != nil {
				log.Fatalf("cad-bridge migrate status: %v", err)
			}
		case "down":
			if err := withPool(runMigrateDown); err != nil {
				log.Fatalf("cad-bridge migrate down: %v", err)
			}
		default:
			log.Fatalf("cad-bridge migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := withPool(db.ClearJournal); err != nil {
			log.Fatalf("cad-bridge clear: %v", err)
		}
		return
	case "prune":
		if len(args) < 2 {
			log.Fatalf("cad-bridge prune: require an age (e.g. 72h)")
		}
		maxAge, err := parseAge(args[1])
		if err != nil {
			log.Fatalf("cad-bridge prune: %v", err)
		}
		if err := withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			n, err := db.NewJournal(pool).Prune(ctx, maxAge)
			if err == nil {
				fmt.Printf("Pruned %d journal rows.\n", n)
			}
			return err
		}); err != nil {
			log.Fatalf("cad-bridge prune: %v", err)
		}
		return
	case "ensure-db":
		dbName := defaultTestDatabase
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("cad-bridge ensure-db: %v", err)
		}
		return
	case "check-design":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		if err := runCheckDesign(file); err != nil {
			log.Fatalf("cad-bridge check-design: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("cad-bridge: %v", err)
	}
}

// withPool loads config, opens the journal pool and runs fn against it.
func withPool(fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool)
}

func migrationPath() string {
	cfg, err := config.LoadConfig()
	if err != nil {
		return "migrations"
	}
	return cfg.MigrationPath
}

func runMigrateUp(ctx context.Context, pool *pgxpool.Pool) error {
	migrationSQL, err := db.LoadMigrationFiles(migrationPath())
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus(ctx context.Context, pool *pgxpool.Pool) error {
	return db.MigrationStatus(ctx, pool, migrationPath())
}

func runMigrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	return db.MigrationDown(ctx, pool, migrationPath())
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	targetURL, err := targetDatabaseURL(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

// targetDatabaseURL swaps the database name of databaseURL for dbName,
// keeping host, credentials and query (e.g. sslmode).
func targetDatabaseURL(databaseURL, dbName string) (string, error) {
	if dbName == "" {
		return "", fmt.Errorf("database name is required")
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func parseAge(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("age must be positive, got %s", d)
	}
	return d, nil
}

func runCheckDesign(file string) error {
	seed, err := bootstrap.LoadDesignSeed(file)
	if err != nil {
		return err
	}
	root, err := bootstrap.BuildDesign(seed)
	if err != nil {
		return err
	}
	stats, err := entity.NewRegistry().RefreshFromDesign(root)
	if err != nil {
		return err
	}
	fmt.Printf("Design %q (root %s): %d components, %d bodies, %d sketches, %d features, %d occurrences, %d joints, %d parameters.\n",
		seed.Name, root.Name(), stats.Components, stats.Bodies, stats.Sketches, stats.Features,
		stats.Occurrences, stats.Joints, len(root.Parameters()))
	return nil
}
