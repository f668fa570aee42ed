package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryService owns stock levels, invoice reservations, and the movement audit trail.
// Every mutation locks the item row, checks, updates, and appends a movement in one transaction.
type InventoryService interface {
	// Standalone operations (manage their own transactions).
	CreateItem(ctx context.Context, in ItemInput) (*InventoryItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, in ItemInput) (*InventoryItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	GetItem(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]InventoryItem, error)
	// ListLowStock returns items at or below their minimum stock.
	ListLowStock(ctx context.Context) ([]InventoryItem, error)
	GetMovements(ctx context.Context, itemID uuid.UUID) ([]InventoryMovement, error)

	AddStock(ctx context.Context, itemID uuid.UUID, qty, unitCost decimal.Decimal, meta MovementMeta) (*InventoryItem, error)
	ConsumeInventoryForBatch(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal, batchID uuid.UUID, meta MovementMeta) (*InventoryItem, error)
	AddInvoicedQuantity(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error)
	ReleaseInvoicedQuantity(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error)

	// TX-scoped operations: work within a caller-provided transaction.
	// Used by the expense, consumption and batch services to stay atomic with their own rows.

	AddStockTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty, unitCost decimal.Decimal, meta MovementMeta) (*InventoryItem, error)
	// ConsumeInventoryForBatchTx decrements stock. A reservation left above the new
	// stock level is clipped down to it.
	ConsumeInventoryForBatchTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty decimal.Decimal, batchID uuid.UUID, meta MovementMeta) (*InventoryItem, error)
	// RestoreConsumedStockTx returns previously consumed stock. Unit cost is unchanged.
	RestoreConsumedStockTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error)
	AddInvoicedQuantityTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error)
	// ReleaseInvoicedQuantityTx decrements the reservation, floored at zero.
	ReleaseInvoicedQuantityTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error)
}

type inventoryService struct {
	pool   *pgxpool.Pool
	policy CostingPolicy
	log    *zap.Logger
}

func NewInventoryService(pool *pgxpool.Pool, policy CostingPolicy, log *zap.Logger) InventoryService {
	if policy == "" {
		policy = CostingWeightedAverage
	}
	return &inventoryService{pool: pool, policy: policy, log: log.Named("inventory")}
}

const itemColumns = `id, name, sku, unit, unit_cost, current_stock, invoiced_quantity,
	minimum_stock, maximum_stock, created_at, updated_at`

func scanItem(row pgx.Row) (*InventoryItem, error) {
	var it InventoryItem
	if err := row.Scan(&it.ID, &it.Name, &it.SKU, &it.Unit, &it.UnitCost, &it.CurrentStock,
		&it.InvoicedQuantity, &it.MinimumStock, &it.MaximumStock, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.derive()
	return &it, nil
}

func lockItemTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*InventoryItem, error) {
	it, err := scanItem(tx.QueryRow(ctx, "SELECT "+itemColumns+" FROM inventory_items WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return nil, storeError("lock inventory item", "inventory item", id.String(), err)
	}
	return it, nil
}

func insertMovement(ctx context.Context, q pgxQuerier, itemID uuid.UUID, mt MovementType, qty, unitCost decimal.Decimal, meta MovementMeta) error {
	_, err := q.Exec(ctx, `
		INSERT INTO inventory_movements (inventory_item_id, movement_type, quantity, unit_cost, batch_id, expense_id, consumption_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, itemID, string(mt), qty, unitCost, meta.BatchID, meta.ExpenseID, meta.ConsumptionID, meta.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert %s movement: %w", mt, err)
	}
	return nil
}

func validateItemInput(in ItemInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationf("name", "is required")
	}
	if in.UnitCost.IsNegative() {
		return validationf("unit_cost", "cannot be negative, got %s", in.UnitCost)
	}
	if in.MinimumStock.IsNegative() || in.MaximumStock.IsNegative() {
		return validationf("minimum_stock", "stock thresholds cannot be negative")
	}
	if in.MaximumStock.IsPositive() && in.MaximumStock.LessThan(in.MinimumStock) {
		return validationf("maximum_stock", "must not be below minimum_stock")
	}
	return nil
}

// inTx runs fn in a fresh transaction and commits it.
func inTx[T any](ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := pool.Begin(ctx)
	if err != nil {
		return zero, beginError(err)
	}
	defer tx.Rollback(ctx)

	out, err := fn(tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, commitError(err)
	}
	return out, nil
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) CreateItem(ctx context.Context, in ItemInput) (*InventoryItem, error) {
	if err := validateItemInput(in); err != nil {
		return nil, err
	}
	if in.OpeningStock.IsNegative() {
		return nil, validationf("opening_stock", "cannot be negative, got %s", in.OpeningStock)
	}

	return inTx(ctx, s.pool, func(tx pgx.Tx) (*InventoryItem, error) {
		it, err := scanItem(tx.QueryRow(ctx, `
			INSERT INTO inventory_items (name, sku, unit, unit_cost, minimum_stock, maximum_stock)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+itemColumns,
			strings.TrimSpace(in.Name), in.SKU, in.Unit, in.UnitCost, in.MinimumStock, in.MaximumStock,
		))
		if err != nil {
			return nil, storeError("create inventory item", "inventory item", in.Name, err)
		}
		if in.OpeningStock.IsPositive() {
			// Opening balance is booked through the receipt path so it leaves a STOCK_IN movement.
			return s.AddStockTx(ctx, tx, it.ID, in.OpeningStock, in.UnitCost, MovementMeta{Notes: "Opening stock"})
		}
		return it, nil
	})
}

func (s *inventoryService) UpdateItem(ctx context.Context, id uuid.UUID, in ItemInput) (*InventoryItem, error) {
	if err := validateItemInput(in); err != nil {
		return nil, err
	}
	it, err := scanItem(s.pool.QueryRow(ctx, `
		UPDATE inventory_items
		SET name = $1, sku = $2, unit = $3, minimum_stock = $4, maximum_stock = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING `+itemColumns,
		strings.TrimSpace(in.Name), in.SKU, in.Unit, in.MinimumStock, in.MaximumStock, id,
	))
	if err != nil {
		return nil, storeError("update inventory item", "inventory item", id.String(), err)
	}
	return it, nil
}

// DeleteItem removes an item that no expense or consumption row references.
func (s *inventoryService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM inventory_items WHERE id = $1", id)
	if err != nil {
		return storeError("delete inventory item", "inventory item", id.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "inventory item", ID: id.String()}
	}
	return nil
}

func (s *inventoryService) GetItem(ctx context.Context, id uuid.UUID) (*InventoryItem, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, "SELECT "+itemColumns+" FROM inventory_items WHERE id = $1", id))
	if err != nil {
		return nil, storeError("fetch inventory item", "inventory item", id.String(), err)
	}
	return it, nil
}

func (s *inventoryService) ListItems(ctx context.Context, filter ItemFilter) ([]InventoryItem, error) {
	var w whereBuilder
	if filter.Search != "" {
		w.addSearch(filter.Search, "name", "COALESCE(sku, '')")
	}
	if filter.LowStockOnly {
		w.clauses = append(w.clauses, "current_stock <= minimum_stock")
	}

	rows, err := s.pool.Query(ctx, "SELECT "+itemColumns+" FROM inventory_items"+w.sql()+" ORDER BY name", w.args...)
	if err != nil {
		return nil, storeError("query inventory items", "inventory item", "", err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory items: %w", err)
	}
	return items, nil
}

func (s *inventoryService) ListLowStock(ctx context.Context) ([]InventoryItem, error) {
	return s.ListItems(ctx, ItemFilter{LowStockOnly: true})
}

func (s *inventoryService) GetMovements(ctx context.Context, itemID uuid.UUID) ([]InventoryMovement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, inventory_item_id, movement_type, quantity, unit_cost, batch_id, expense_id, consumption_id, notes, created_at
		FROM inventory_movements
		WHERE inventory_item_id = $1
		ORDER BY created_at, id
	`, itemID)
	if err != nil {
		return nil, storeError("query inventory movements", "inventory item", itemID.String(), err)
	}
	defer rows.Close()

	var out []InventoryMovement
	for rows.Next() {
		var m InventoryMovement
		if err := rows.Scan(&m.ID, &m.InventoryItemID, &m.MovementType, &m.Quantity, &m.UnitCost,
			&m.BatchID, &m.ExpenseID, &m.ConsumptionID, &m.Notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *inventoryService) AddStock(ctx context.Context, itemID uuid.UUID, qty, unitCost decimal.Decimal, meta MovementMeta) (*InventoryItem, error) {
	return inTx(ctx, s.pool, func(tx pgx.Tx) (*InventoryItem, error) {
		return s.AddStockTx(ctx, tx, itemID, qty, unitCost, meta)
	})
}

func (s *inventoryService) ConsumeInventoryForBatch(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal, batchID uuid.UUID, meta MovementMeta) (*InventoryItem, error) {
	return inTx(ctx, s.pool, func(tx pgx.Tx) (*InventoryItem, error) {
		return s.ConsumeInventoryForBatchTx(ctx, tx, itemID, qty, batchID, meta)
	})
}

func (s *inventoryService) AddInvoicedQuantity(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error) {
	return inTx(ctx, s.pool, func(tx pgx.Tx) (*InventoryItem, error) {
		return s.AddInvoicedQuantityTx(ctx, tx, itemID, qty, meta)
	})
}

func (s *inventoryService) ReleaseInvoicedQuantity(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error) {
	return inTx(ctx, s.pool, func(tx pgx.Tx) (*InventoryItem, error) {
		return s.ReleaseInvoicedQuantityTx(ctx, tx, itemID, qty, meta)
	})
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *inventoryService) AddStockTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty, unitCost decimal.Decimal, meta MovementMeta) (*InventoryItem, error) {
	if !qty.IsPositive() {
		return nil, validationf("quantity", "must be positive, got %s", qty)
	}
	if unitCost.IsNegative() {
		return nil, validationf("unit_cost", "cannot be negative, got %s", unitCost)
	}

	it, err := lockItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	newCost := ApplyCostingPolicy(s.policy, it.CurrentStock, it.UnitCost, qty, unitCost)
	updated, err := scanItem(tx.QueryRow(ctx, `
		UPDATE inventory_items
		SET current_stock = current_stock + $1, unit_cost = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+itemColumns, qty, newCost, itemID))
	if err != nil {
		return nil, storeError("add stock", "inventory item", itemID.String(), err)
	}

	if meta.Notes == "" {
		meta.Notes = fmt.Sprintf("Stock in: %s %s @ %s", qty.String(), it.Unit, unitCost.String())
	}
	if err := insertMovement(ctx, tx, itemID, MovementStockIn, qty, unitCost, meta); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *inventoryService) ConsumeInventoryForBatchTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty decimal.Decimal, batchID uuid.UUID, meta MovementMeta) (*InventoryItem, error) {
	if !qty.IsPositive() {
		return nil, validationf("quantity", "must be positive, got %s", qty)
	}

	it, err := lockItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if qty.GreaterThan(it.CurrentStock) {
		return nil, &InsufficientStockError{Item: it.Name, Requested: qty, Available: it.CurrentStock}
	}

	newStock := it.CurrentStock.Sub(qty)
	newInvoiced := it.InvoicedQuantity
	clipped := decimal.Zero
	if newInvoiced.GreaterThan(newStock) {
		clipped = newInvoiced.Sub(newStock)
		newInvoiced = newStock
	}

	updated, err := scanItem(tx.QueryRow(ctx, `
		UPDATE inventory_items
		SET current_stock = $1, invoiced_quantity = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+itemColumns, newStock, newInvoiced, itemID))
	if err != nil {
		return nil, storeError("consume stock", "inventory item", itemID.String(), err)
	}

	meta.BatchID = &batchID
	notes := meta.Notes
	if notes == "" {
		notes = fmt.Sprintf("Consumed %s %s for batch", qty.String(), it.Unit)
	}
	if clipped.IsPositive() {
		notes += fmt.Sprintf(" (reservation clipped by %s)", clipped.String())
	}
	consumeMeta := meta
	consumeMeta.Notes = notes
	if err := insertMovement(ctx, tx, itemID, MovementConsumption, qty.Neg(), it.UnitCost, consumeMeta); err != nil {
		return nil, err
	}

	if clipped.IsPositive() {
		s.log.Warn("consumption drew down reserved stock, reservation clipped",
			zap.String("item_id", itemID.String()),
			zap.String("item", it.Name),
			zap.String("batch_id", batchID.String()),
			zap.String("consumed", qty.String()),
			zap.String("clipped", clipped.String()),
		)
		releaseMeta := meta
		releaseMeta.Notes = "Reservation clipped to remaining stock after consumption"
		if err := insertMovement(ctx, tx, itemID, MovementInvoiceRelease, clipped.Neg(), decimal.Zero, releaseMeta); err != nil {
			return nil, err
		}
		if _, err := s.trimExpenseReservationsTx(ctx, tx, itemID, newInvoiced); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func (s *inventoryService) RestoreConsumedStockTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error) {
	if !qty.IsPositive() {
		return nil, validationf("quantity", "must be positive, got %s", qty)
	}

	it, err := lockItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	updated, err := scanItem(tx.QueryRow(ctx, `
		UPDATE inventory_items
		SET current_stock = current_stock + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+itemColumns, qty, itemID))
	if err != nil {
		return nil, storeError("restore stock", "inventory item", itemID.String(), err)
	}

	if meta.Notes == "" {
		meta.Notes = fmt.Sprintf("Returned %s %s from batch consumption", qty.String(), it.Unit)
	}
	if err := insertMovement(ctx, tx, itemID, MovementConsumptionReversal, qty, it.UnitCost, meta); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *inventoryService) AddInvoicedQuantityTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error) {
	if !qty.IsPositive() {
		return nil, validationf("quantity", "must be positive, got %s", qty)
	}

	it, err := lockItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if qty.GreaterThan(it.AvailableForInvoice) {
		return nil, &InvoiceCapacityError{Item: it.Name, Requested: qty, Available: it.AvailableForInvoice}
	}

	updated, err := scanItem(tx.QueryRow(ctx, `
		UPDATE inventory_items
		SET invoiced_quantity = invoiced_quantity + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+itemColumns, qty, itemID))
	if err != nil {
		return nil, storeError("reserve invoiced quantity", "inventory item", itemID.String(), err)
	}

	if meta.Notes == "" {
		meta.Notes = fmt.Sprintf("Reserved %s %s for invoice", qty.String(), it.Unit)
	}
	if err := insertMovement(ctx, tx, itemID, MovementInvoiceReserve, qty, it.UnitCost, meta); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *inventoryService) ReleaseInvoicedQuantityTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty decimal.Decimal, meta MovementMeta) (*InventoryItem, error) {
	if qty.IsNegative() {
		return nil, validationf("quantity", "cannot be negative, got %s", qty)
	}

	it, err := lockItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	release := decimal.Min(qty, it.InvoicedQuantity)
	if !release.IsPositive() {
		return it, nil
	}

	updated, err := scanItem(tx.QueryRow(ctx, `
		UPDATE inventory_items
		SET invoiced_quantity = invoiced_quantity - $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+itemColumns, release, itemID))
	if err != nil {
		return nil, storeError("release invoiced quantity", "inventory item", itemID.String(), err)
	}

	if meta.Notes == "" {
		meta.Notes = fmt.Sprintf("Released %s %s from invoice", release.String(), it.Unit)
	}
	if err := insertMovement(ctx, tx, itemID, MovementInvoiceRelease, release.Neg(), it.UnitCost, meta); err != nil {
		return nil, err
	}
	// A release on behalf of one expense is settled by the expense service on
	// that row. Any other release may leave expense rows claiming too much.
	if meta.ExpenseID == nil {
		if _, err := s.trimExpenseReservationsTx(ctx, tx, itemID, updated.InvoicedQuantity); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// trimExpenseReservationsTx lowers the reservations expense rows hold on itemID,
// newest expense first, until together they fit within limit. It returns the
// total trimmed.
func (s *inventoryService) trimExpenseReservationsTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, limit decimal.Decimal) (decimal.Decimal, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, expense_number, invoiced_quantity
		FROM expenses
		WHERE inventory_item_id = $1 AND invoiced_quantity > 0
		ORDER BY created_at DESC, id DESC
		FOR UPDATE
	`, itemID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to lock expense reservations: %w", err)
	}
	type held struct {
		id     uuid.UUID
		number string
		qty    decimal.Decimal
	}
	var holders []held
	total := decimal.Zero
	for rows.Next() {
		var h held
		if err := rows.Scan(&h.id, &h.number, &h.qty); err != nil {
			rows.Close()
			return decimal.Zero, fmt.Errorf("failed to scan expense reservation: %w", err)
		}
		holders = append(holders, h)
		total = total.Add(h.qty)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating expense reservations: %w", err)
	}

	excess := total.Sub(limit)
	trimmed := decimal.Zero
	for _, h := range holders {
		if !excess.IsPositive() {
			break
		}
		take := decimal.Min(excess, h.qty)
		if _, err := tx.Exec(ctx,
			"UPDATE expenses SET invoiced_quantity = invoiced_quantity - $1, updated_at = NOW() WHERE id = $2",
			take, h.id,
		); err != nil {
			return decimal.Zero, storeError("trim expense reservation", "expense", h.id.String(), err)
		}
		s.log.Warn("expense reservation trimmed to item reservation",
			zap.String("item_id", itemID.String()),
			zap.String("expense", h.number),
			zap.String("trimmed", take.String()),
		)
		excess = excess.Sub(take)
		trimmed = trimmed.Add(take)
	}
	return trimmed, nil
}
