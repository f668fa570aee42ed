package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BatchService manages production batches, their products, and batch categories.
type BatchService interface {
	CreateBatch(ctx context.Context, in BatchInput) (*Batch, error)
	UpdateBatch(ctx context.Context, id uuid.UUID, in BatchInput) (*Batch, error)
	GetBatchByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	// GetAllBatches returns batches newest first with their products loaded.
	GetAllBatches(ctx context.Context, filter BatchFilter) ([]Batch, error)
	// DeleteBatch returns every consumed quantity to stock, unlinks ledger rows,
	// and removes the batch with its products and consumption rows.
	DeleteBatch(ctx context.Context, id uuid.UUID) error

	AddBatchProduct(ctx context.Context, batchID uuid.UUID, in BatchProductInput) (*BatchProduct, error)
	RemoveBatchProduct(ctx context.Context, batchID, batchProductID uuid.UUID) error

	CreateBatchCategory(ctx context.Context, code, name, prefix string) (*BatchCategory, error)
	ListBatchCategories(ctx context.Context) ([]BatchCategory, error)
}

type batchService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
	log       *zap.Logger
	now       func() time.Time
}

func NewBatchService(pool *pgxpool.Pool, inventory InventoryService, log *zap.Logger) BatchService {
	return &batchService{pool: pool, inventory: inventory, log: log.Named("batch"), now: time.Now}
}

const batchColumns = `id, batch_number, batch_name, production_date, status, category_id, notes, created_at, updated_at`

func scanBatch(row pgx.Row) (*Batch, error) {
	var b Batch
	if err := row.Scan(&b.ID, &b.BatchNumber, &b.BatchName, &b.ProductionDate, &b.Status,
		&b.CategoryID, &b.Notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Products = []BatchProduct{}
	return &b, nil
}

func assertBatchExistsTx(ctx context.Context, q pgxQuerier, id uuid.UUID, lock bool) error {
	sql := "SELECT id FROM batches WHERE id = $1"
	if lock {
		sql += " FOR UPDATE"
	}
	var found uuid.UUID
	if err := q.QueryRow(ctx, sql, id).Scan(&found); err != nil {
		return storeError("resolve batch", "batch", id.String(), err)
	}
	return nil
}

func (s *batchService) CreateBatch(ctx context.Context, in BatchInput) (*Batch, error) {
	if in.Status == "" {
		in.Status = BatchStatusActive
	}
	if !in.Status.Valid() {
		return nil, validationf("status", "unknown batch status %q", in.Status)
	}
	for i, p := range in.Products {
		if p.QuantityProduced.IsNegative() {
			return nil, validationf(fmt.Sprintf("products[%d].quantity_produced", i), "cannot be negative")
		}
	}

	generated := strings.TrimSpace(in.BatchNumber) == "" && in.CategoryID == nil
	attempts := 1
	if generated {
		attempts = maxNumberAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		b, err := s.createBatchOnce(ctx, in)
		if err == nil {
			return b, nil
		}
		if !generated || !isUniqueViolation(err) {
			return nil, storeError("create batch", "batch", in.BatchNumber, err)
		}
		lastErr = err
		s.log.Warn("batch number collision, retrying", zap.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("failed to allocate a unique batch number after %d attempts: %w", attempts, lastErr)
}

// createBatchOnce returns raw pgx errors so the caller can detect number collisions.
func (s *batchService) createBatchOnce(ctx context.Context, in BatchInput) (*Batch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, beginError(err)
	}
	defer tx.Rollback(ctx)

	number := strings.TrimSpace(in.BatchNumber)
	switch {
	case number != "":
	case in.CategoryID != nil:
		if number, err = nextCategoryNumberTx(ctx, tx, *in.CategoryID); err != nil {
			return nil, err
		}
	default:
		if number, err = newBatchNumber(s.now()); err != nil {
			return nil, err
		}
	}

	productionDate := s.now()
	if in.ProductionDate != nil {
		productionDate = *in.ProductionDate
	}

	b, err := scanBatch(tx.QueryRow(ctx, `
		INSERT INTO batches (batch_number, batch_name, production_date, status, category_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+batchColumns,
		number, in.BatchName, productionDate, string(in.Status), in.CategoryID, in.Notes,
	))
	if err != nil {
		return nil, err
	}

	for _, p := range in.Products {
		bp, err := insertBatchProductTx(ctx, tx, b.ID, p)
		if err != nil {
			return nil, err
		}
		b.Products = append(b.Products, *bp)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, commitError(err)
	}
	return b, nil
}

func insertBatchProductTx(ctx context.Context, q pgxQuerier, batchID uuid.UUID, in BatchProductInput) (*BatchProduct, error) {
	var bp BatchProduct
	err := q.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO batch_products (batch_id, product_id, quantity_produced, unit)
			VALUES ($1, $2, $3, $4)
			RETURNING id, batch_id, product_id, quantity_produced, unit, created_at
		)
		SELECT ins.id, ins.batch_id, ins.product_id, p.name, ins.quantity_produced, ins.unit, ins.created_at
		FROM ins JOIN products p ON p.id = ins.product_id
	`, batchID, in.ProductID, in.QuantityProduced, in.Unit).Scan(
		&bp.ID, &bp.BatchID, &bp.ProductID, &bp.ProductName, &bp.QuantityProduced, &bp.Unit, &bp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bp, nil
}

func (s *batchService) UpdateBatch(ctx context.Context, id uuid.UUID, in BatchInput) (*Batch, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, validationf("status", "unknown batch status %q", in.Status)
	}

	b, err := scanBatch(s.pool.QueryRow(ctx, `
		UPDATE batches SET
			batch_number    = COALESCE(NULLIF($1, ''), batch_number),
			batch_name      = $2,
			production_date = COALESCE($3, production_date),
			status          = COALESCE(NULLIF($4, ''), status),
			category_id     = $5,
			notes           = $6,
			updated_at      = NOW()
		WHERE id = $7
		RETURNING `+batchColumns,
		strings.TrimSpace(in.BatchNumber), in.BatchName, in.ProductionDate, string(in.Status), in.CategoryID, in.Notes, id,
	))
	if err != nil {
		return nil, storeError("update batch", "batch", id.String(), err)
	}
	if err := s.loadProducts(ctx, []*Batch{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *batchService) GetBatchByID(ctx context.Context, id uuid.UUID) (*Batch, error) {
	b, err := scanBatch(s.pool.QueryRow(ctx, "SELECT "+batchColumns+" FROM batches WHERE id = $1", id))
	if err != nil {
		return nil, storeError("fetch batch", "batch", id.String(), err)
	}
	if err := s.loadProducts(ctx, []*Batch{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *batchService) GetAllBatches(ctx context.Context, filter BatchFilter) ([]Batch, error) {
	var w whereBuilder
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.CategoryID != nil {
		w.add("category_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		w.addSearch(filter.Search, "batch_number", "batch_name")
	}

	rows, err := s.pool.Query(ctx,
		"SELECT "+batchColumns+" FROM batches"+w.sql()+" ORDER BY production_date DESC, created_at DESC", w.args...)
	if err != nil {
		return nil, storeError("query batches", "batch", "", err)
	}
	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	if err := s.loadProducts(ctx, batches); err != nil {
		return nil, err
	}
	out := make([]Batch, len(batches))
	for i, b := range batches {
		out[i] = *b
	}
	return out, nil
}

// loadProducts fills Products for every batch with a single query.
func (s *batchService) loadProducts(ctx context.Context, batches []*Batch) error {
	if len(batches) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(batches))
	byID := make(map[uuid.UUID]*Batch, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	rows, err := s.pool.Query(ctx, `
		SELECT bp.id, bp.batch_id, bp.product_id, p.name, bp.quantity_produced, bp.unit, bp.created_at
		FROM batch_products bp
		JOIN products p ON p.id = bp.product_id
		WHERE bp.batch_id = ANY($1)
		ORDER BY bp.created_at, bp.id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query batch products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bp BatchProduct
		if err := rows.Scan(&bp.ID, &bp.BatchID, &bp.ProductID, &bp.ProductName, &bp.QuantityProduced, &bp.Unit, &bp.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan batch product: %w", err)
		}
		if b, ok := byID[bp.BatchID]; ok {
			b.Products = append(b.Products, bp)
		}
	}
	return rows.Err()
}

func (s *batchService) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return beginError(err)
	}
	defer tx.Rollback(ctx)

	if err := assertBatchExistsTx(ctx, tx, id, true); err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, inventory_item_id, quantity_consumed
		FROM batch_inventory_consumption
		WHERE batch_id = $1
		ORDER BY inventory_item_id
		FOR UPDATE
	`, id)
	if err != nil {
		return fmt.Errorf("failed to fetch batch consumption: %w", err)
	}
	type consumed struct {
		id     uuid.UUID
		itemID uuid.UUID
		qty    decimal.Decimal
	}
	var records []consumed
	for rows.Next() {
		var c consumed
		if err := rows.Scan(&c.id, &c.itemID, &c.qty); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan consumption row: %w", err)
		}
		records = append(records, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating consumption rows: %w", err)
	}

	batchID := id
	for _, c := range records {
		consumptionID := c.id
		_, err := s.inventory.RestoreConsumedStockTx(ctx, tx, c.itemID, c.qty, MovementMeta{
			BatchID:       &batchID,
			ConsumptionID: &consumptionID,
			Notes:         "Batch deleted, consumption returned to stock",
		})
		if err != nil {
			return fmt.Errorf("failed to restore stock for consumption %s: %w", c.id, err)
		}
	}

	// batch_products and batch_inventory_consumption cascade; expenses and income are unlinked.
	if _, err := tx.Exec(ctx, "DELETE FROM batches WHERE id = $1", id); err != nil {
		return storeError("delete batch", "batch", id.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return commitError(err)
	}
	s.log.Info("batch deleted", zap.String("batch_id", id.String()), zap.Int("consumption_rows_restored", len(records)))
	return nil
}

func (s *batchService) AddBatchProduct(ctx context.Context, batchID uuid.UUID, in BatchProductInput) (*BatchProduct, error) {
	if in.QuantityProduced.IsNegative() {
		return nil, validationf("quantity_produced", "cannot be negative")
	}
	if err := assertBatchExistsTx(ctx, s.pool, batchID, false); err != nil {
		return nil, err
	}
	bp, err := insertBatchProductTx(ctx, s.pool, batchID, in)
	if err != nil {
		return nil, storeError("add batch product", "product", in.ProductID.String(), err)
	}
	return bp, nil
}

func (s *batchService) RemoveBatchProduct(ctx context.Context, batchID, batchProductID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM batch_products WHERE id = $1 AND batch_id = $2", batchProductID, batchID)
	if err != nil {
		return storeError("remove batch product", "batch product", batchProductID.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "batch product", ID: batchProductID.String()}
	}
	return nil
}

func (s *batchService) CreateBatchCategory(ctx context.Context, code, name, prefix string) (*BatchCategory, error) {
	code, prefix = strings.TrimSpace(code), strings.ToUpper(strings.TrimSpace(prefix))
	if code == "" {
		return nil, validationf("code", "is required")
	}
	if prefix == "" {
		return nil, validationf("prefix", "is required")
	}
	if name == "" {
		name = code
	}

	var c BatchCategory
	err := s.pool.QueryRow(ctx, `
		INSERT INTO batch_categories (code, name, prefix)
		VALUES ($1, $2, $3)
		RETURNING id, code, name, prefix, created_at
	`, code, name, prefix).Scan(&c.ID, &c.Code, &c.Name, &c.Prefix, &c.CreatedAt)
	if err != nil {
		return nil, storeError("create batch category", "batch category", code, err)
	}
	return &c, nil
}

func (s *batchService) ListBatchCategories(ctx context.Context) ([]BatchCategory, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, code, name, prefix, created_at FROM batch_categories ORDER BY code")
	if err != nil {
		return nil, storeError("query batch categories", "batch category", "", err)
	}
	defer rows.Close()

	var out []BatchCategory
	for rows.Next() {
		var c BatchCategory
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Prefix, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
