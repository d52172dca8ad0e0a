package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/config"
	"github.com/jogardn/orders-client/internal/migration"
	"github.com/jogardn/orders-client/internal/mockapi"
)

// runMigrate copies orders into the Postgres database named by -to. The
// source is -from, else MOCK_DATABASE_URL, else a freshly seeded memory store.
func runMigrate(ctx context.Context, cfg *config.Config, logger *logrus.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	from := fs.String("from", cfg.Mock.DatabaseURL, "source database url")
	to := fs.String("to", "", "target database url")
	seed := fs.Int("seed", 50, "orders to generate when there is no source database")
	dryRun := fs.Bool("dry-run", false, "report what would be copied without writing")
	overwrite := fs.Bool("overwrite", false, "replace orders that already exist in the target")
	batchSize := fs.Int("batch-size", 50, "orders per batch")
	concurrency := fs.Int("concurrency", 4, "batches copied in parallel")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *to == "" {
		return errors.New("migrate: -to is required")
	}

	source, err := openSource(ctx, *from, *seed, cfg, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := mockapi.NewPostgresStore(ctx, *to, cfg.Mock.DBConnAttempts, logger)
	if err != nil {
		return err
	}
	defer target.Close()

	return migrate(ctx, source, target, migration.Config{
		BatchSize:    *batchSize,
		Concurrency:  *concurrency,
		DryRun:       *dryRun,
		SkipExisting: !*overwrite,
	}, logger, out)
}

func openSource(ctx context.Context, dsn string, seed int, cfg *config.Config, logger *logrus.Logger) (mockapi.Store, error) {
	if dsn != "" {
		return mockapi.NewPostgresStore(ctx, dsn, cfg.Mock.DBConnAttempts, logger)
	}

	store := mockapi.NewMemoryStore()
	server := mockapi.NewServer(mockapi.Options{Store: store, Logger: logger})
	if err := mockapi.Seed(ctx, server, seed, nil); err != nil {
		return nil, err
	}
	return store, nil
}

// migrate copies, validates unless dry running, and prints both reports.
func migrate(ctx context.Context, source, target mockapi.Store, mc migration.Config, logger *logrus.Logger, out io.Writer) error {
	m := migration.NewMigrator(source, target, logger)
	m.SetConfig(mc)

	report := struct {
		Result     *migration.Result     `json:"result"`
		Validation *migration.Comparison `json:"validation,omitempty"`
	}{}

	var err error
	if report.Result, err = m.Migrate(ctx); err != nil {
		return err
	}
	if !mc.DryRun {
		if report.Validation, err = m.Validate(ctx); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if report.Result.Failed > 0 {
		return errors.New("migrate: some orders could not be copied")
	}
	return nil
}
