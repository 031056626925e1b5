package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dvloznov/monomind/internal/config"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/rs/zerolog"
)

// driver applies migrations to one kind of database.
type driver interface {
	Ensure(ctx context.Context) error
	Applied(ctx context.Context) (map[int]AppliedMigration, error)
	Apply(ctx context.Context, m Migration, appliedBy string) error
	Close() error
}

type options struct {
	Driver        string
	DatabaseURL   string
	ProjectID     string
	DatasetID     string
	MigrationsDir string
	AppliedBy     string
	AllowDrift    bool
	DryRun        bool
}

func main() {
	log := logger.New(logger.Options{Service: "monomind-migrate"})

	cfg, err := config.Read(os.Getenv("MONOMIND_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read configuration")
	}

	var opts options
	flag.StringVar(&opts.Driver, "driver", cfg.Ledger.Backend, "Database to migrate: postgres or bigquery")
	flag.StringVar(&opts.DatabaseURL, "database-url", cfg.Ledger.DatabaseURL, "Postgres connection URL (or set DATABASE_URL)")
	flag.StringVar(&opts.ProjectID, "project", cfg.BigQuery.ProjectID, "GCP project ID (or set GOOGLE_CLOUD_PROJECT)")
	flag.StringVar(&opts.DatasetID, "dataset", cfg.BigQuery.Dataset, "BigQuery dataset ID")
	flag.StringVar(&opts.MigrationsDir, "migrations", "", "Path to migrations directory (default migrations/<driver>)")
	flag.StringVar(&opts.AppliedBy, "applied-by", "migrate-cli", "Name of the tool applying migrations")
	flag.BoolVar(&opts.AllowDrift, "allow-drift", false, "Do not fail when an applied migration file has changed")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "List pending migrations without applying them")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	if err := run(ctx, log, opts); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func run(ctx context.Context, log zerolog.Logger, opts options) error {
	if opts.MigrationsDir == "" {
		opts.MigrationsDir = filepath.Join("migrations", opts.Driver)
	}
	dir, err := findDir(opts.MigrationsDir)
	if err != nil {
		return err
	}

	var d driver
	vars := map[string]string{}
	switch opts.Driver {
	case config.LedgerPostgres:
		if opts.DatabaseURL == "" {
			return fmt.Errorf("-database-url is required for postgres")
		}
		d, err = newPostgresDriver(ctx, opts.DatabaseURL)
	case config.LedgerBigQuery:
		if opts.ProjectID == "" {
			return fmt.Errorf("-project is required for bigquery")
		}
		vars["PROJECT_ID"] = opts.ProjectID
		vars["DATASET_ID"] = opts.DatasetID
		d, err = newBigQueryDriver(ctx, opts.ProjectID, opts.DatasetID)
	default:
		return fmt.Errorf("unknown driver %q (want postgres or bigquery)", opts.Driver)
	}
	if err != nil {
		return err
	}
	defer d.Close()

	log.Info().Str("driver", opts.Driver).Str("dir", dir).Msg("Connected")
	return migrate(ctx, log, d, dir, vars, opts)
}

func migrate(ctx context.Context, log zerolog.Logger, d driver, dir string, vars map[string]string, opts options) error {
	if err := d.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	migrations, err := readMigrations(dir, vars, func(name string) {
		log.Warn().Str("file", name).Msg("Skipping file with invalid format")
	})
	if err != nil {
		return err
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	applied, err := d.Applied(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	todo, err := pending(migrations, applied, opts.AllowDrift)
	if err != nil {
		return err
	}
	if len(todo) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return nil
	}

	for _, m := range todo {
		mlog := log.With().Int("version", m.Version).Str("name", m.Name).Logger()
		if opts.DryRun {
			mlog.Info().Msg("Pending")
			continue
		}
		mlog.Info().Msg("Applying")
		if err := d.Apply(ctx, m, opts.AppliedBy); err != nil {
			return fmt.Errorf("migration %s: %w", m.Filename, err)
		}
		mlog.Info().Msg("Applied")
	}

	if !opts.DryRun {
		log.Info().Int("count", len(todo)).Msg("Successfully applied migrations")
	}
	return nil
}
