package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/fitstock/internal/domain/purchase"
	"github.com/xenking/fitstock/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing supplier exports")
	flag.StringVar(&pattern, "pattern", "*.jsonl.gz", "glob of export files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, filepath.Join(dataDir, pattern), databaseURL); err != nil {
		lg.Fatal("Purchase import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, glob, databaseURL string) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrap(err, "glob export files")
	}
	if len(files) == 0 {
		lg.Info("No export files found", zap.String("glob", glob))
		return nil
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	svc := purchase.NewService(postgres.NewPurchaseRepository(pool), nil)
	stats, err := importFiles(ctx, lg, svc, files)
	if err != nil {
		return err
	}

	lg.Info("Purchase import completed",
		zap.Int("files", len(files)),
		zap.Int64("recorded", stats.recorded.Load()),
		zap.Int64("duplicates", stats.duplicates.Load()),
		zap.Int64("invalid", stats.invalid.Load()),
	)
	return nil
}
