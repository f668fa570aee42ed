// seed loads the reference data a fresh install needs: accounting heads and
// batch categories. It is idempotent.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"himalayan-flavours/internal/config"
	"himalayan-flavours/internal/db"
	"himalayan-flavours/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect", zap.Error(err))
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal("Failed to begin transaction", zap.Error(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	log.Info("Seeding accounting heads")
	tag, err := tx.Exec(ctx, `
		INSERT INTO accounting_heads (name, type, description)
		VALUES
		    ('Raw Materials',      'expense', 'Spices, oil, vegetables and other ingredients'),
		    ('Packaging',          'expense', 'Jars, lids, labels and cartons'),
		    ('Labour',             'expense', 'Production wages'),
		    ('Utilities',          'expense', 'Gas, electricity and water'),
		    ('Transport',          'expense', 'Freight and delivery'),
		    ('Marketing',          'expense', 'Promotion and sampling'),
		    ('Online Sales',       'income',  'Storefront orders'),
		    ('Wholesale',          'income',  'Retailer and distributor orders'),
		    ('Farmers Market',     'income',  'Stall and event sales')
		ON CONFLICT (name, type) DO NOTHING
	`)
	if err != nil {
		log.Fatal("Failed to seed accounting heads", zap.Error(err))
	}
	log.Info("Accounting heads seeded", zap.Int64("inserted", tag.RowsAffected()))

	log.Info("Seeding batch categories")
	tag, err = tx.Exec(ctx, `
		INSERT INTO batch_categories (code, name, prefix)
		VALUES
		    ('pickle',    'Pickles',     'PKL'),
		    ('chutney',   'Chutneys',    'CHT'),
		    ('spice-mix', 'Spice Mixes', 'SPC')
		ON CONFLICT (code) DO NOTHING
	`)
	if err != nil {
		log.Fatal("Failed to seed batch categories", zap.Error(err))
	}
	log.Info("Batch categories seeded", zap.Int64("inserted", tag.RowsAffected()))

	if err := tx.Commit(ctx); err != nil {
		log.Fatal("Failed to commit", zap.Error(err))
	}
	log.Info("Seed data loaded")
}
