package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/retailops/backend/internal/infrastructure/config"
	"github.com/retailops/backend/internal/infrastructure/logger"
	"github.com/retailops/backend/internal/infrastructure/migration"
)

const defaultMigrationsDir = "migrations"

var usage = `Schema migration tool for the sync database.

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                 Apply all pending migrations
  down               Roll back all applied migrations
  step <n>           Apply n migrations (negative rolls back)
  goto <version>     Migrate to an exact version
  version            Show the current schema version
  force <version>    Overwrite the recorded version (dirty-state recovery)
  drop --confirm     Drop every database object
  create <name>      Scaffold a new up/down migration pair
  list               List migration pairs on disk

Flags:
  -dir string        Migrations directory (default: ./migrations)
  -log-level string  debug, info, warn or error (default: info)

The database connection comes from the server configuration
(RETAIL_DATABASE_* environment variables or config file).`

func main() {
	var (
		dir      string
		logLevel string
	)
	flag.StringVar(&dir, "dir", "", "migrations directory")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := run(flag.Args(), resolveDir(dir), log); err != nil {
		log.Fatal("Migration command failed", zap.Error(err))
	}
}

func run(args []string, dir string, log *zap.Logger) error {
	command := args[0]
	log.Info("Running migration command", zap.String("command", command), zap.String("dir", dir))

	// create and list only touch the filesystem
	switch command {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate create <name>")
		}
		p, err := migration.Scaffold(dir, args[1])
		if err != nil {
			return err
		}
		log.Info("Migration scaffolded",
			zap.String("version", p.Version),
			zap.String("up", p.UpPath),
			zap.String("down", p.DownPath),
		)
		return nil

	case "list":
		bases, err := migration.List(dir)
		if err != nil {
			return err
		}
		if len(bases) == 0 {
			log.Info("No migrations found")
			return nil
		}
		for _, base := range bases {
			fmt.Println(base)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	runner, err := migration.NewRunner(db, dir, log)
	if err != nil {
		return err
	}
	defer runner.Close()

	switch command {
	case "up":
		return runner.Apply()

	case "down":
		return runner.Rollback()

	case "step":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[1])
		}
		return runner.Step(n)

	case "goto":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return runner.To(uint(version))

	case "version":
		version, dirty, err := runner.Status()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
		return nil

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return runner.Force(version)

	case "drop":
		if !hasConfirmFlag(args[1:]) {
			return fmt.Errorf("drop destroys all data; rerun as: migrate drop --confirm")
		}
		return runner.Drop()

	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// resolveDir picks the migrations directory: the flag when given, the
// working directory's migrations/ when present, otherwise the directory
// next to the repository root relative to the binary.
func resolveDir(flagDir string) string {
	dir := flagDir
	if dir == "" {
		dir = defaultMigrationsDir
		if _, err := os.Stat(dir); err != nil {
			if execPath, execErr := os.Executable(); execErr == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsDir)
				if _, statErr := os.Stat(candidate); statErr == nil {
					dir = candidate
				}
			}
		}
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func hasConfirmFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}
