package core_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"himalayan-flavours/internal/core"
	"himalayan-flavours/internal/db"
)

var migrateOnce sync.Once

// testEnv bundles the services under test over one pool.
type testEnv struct {
	ctx         context.Context
	pool        *pgxpool.Pool
	inventory   core.InventoryService
	batches     core.BatchService
	expenses    core.ExpenseService
	income      core.IncomeService
	consumption core.ConsumptionService
	reports     core.ReportingService
	catalog     core.CatalogService
}

// setupTestDB migrates the test database once per run, truncates every table,
// and wires the services with weighted average costing and consumption-inclusive batch cost.
func setupTestDB(t *testing.T) *testEnv {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	migrateOnce.Do(func() {
		m, err := db.NewMigrator(dbURL, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, m.Up())
		require.NoError(t, m.Close())
	})

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE inventory_movements, batch_inventory_consumption, expenses, income,
			batch_products, batches, batch_sequences, batch_categories,
			inventory_items, products, customers, accounting_heads CASCADE
	`)
	require.NoError(t, err, "truncate test database")

	log := zaptest.NewLogger(t)
	inventory := core.NewInventoryService(pool, core.CostingWeightedAverage, log)
	return &testEnv{
		ctx:         ctx,
		pool:        pool,
		inventory:   inventory,
		batches:     core.NewBatchService(pool, inventory, log),
		expenses:    core.NewExpenseService(pool, inventory, log),
		income:      core.NewIncomeService(pool, log),
		consumption: core.NewConsumptionService(pool, inventory, log),
		reports:     core.NewReportingService(pool, true),
		catalog:     core.NewCatalogService(pool),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// newItem creates an item holding stock units at cost.
func (e *testEnv) newItem(t *testing.T, name, stock, cost string) *core.InventoryItem {
	t.Helper()
	item, err := e.inventory.CreateItem(e.ctx, core.ItemInput{
		Name:         name,
		Unit:         "kg",
		UnitCost:     dec(cost),
		OpeningStock: dec(stock),
	})
	require.NoError(t, err)
	return item
}

func (e *testEnv) newBatch(t *testing.T, number string) *core.Batch {
	t.Helper()
	b, err := e.batches.CreateBatch(e.ctx, core.BatchInput{BatchNumber: number, BatchName: number})
	require.NoError(t, err)
	return b
}

func (e *testEnv) stockOf(t *testing.T, item *core.InventoryItem) *core.InventoryItem {
	t.Helper()
	got, err := e.inventory.GetItem(e.ctx, item.ID)
	require.NoError(t, err)
	return got
}

// assertConsistent fails the test when any ledger invariant is broken.
func (e *testEnv) assertConsistent(t *testing.T) {
	t.Helper()
	violations, err := core.VerifyInvariants(e.ctx, e.pool)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func nopLogger() *zap.Logger { return zap.NewNop() }
