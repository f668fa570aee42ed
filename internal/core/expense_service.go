package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExpenseService records expenses and keeps their inventory reservations in step.
type ExpenseService interface {
	// CreateExpense inserts the expense and, when it names an inventory item and a
	// positive quantity, reserves that quantity in the same transaction.
	CreateExpense(ctx context.Context, in ExpenseInput) (*Expense, error)
	// UpdateExpense replaces the expense fields and moves the reservation to match.
	UpdateExpense(ctx context.Context, id uuid.UUID, in ExpenseInput) (*Expense, error)
	// DeleteExpense removes the expense and releases its reservation.
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	GetExpenses(ctx context.Context, filter LedgerFilter) ([]Expense, error)
	// BackfillInventoryLinks moves legacy description tokens into inventory_item_id.
	BackfillInventoryLinks(ctx context.Context) (*BackfillReport, error)
}

type expenseService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
	log       *zap.Logger
	now       func() time.Time
}

func NewExpenseService(pool *pgxpool.Pool, inventory InventoryService, log *zap.Logger) ExpenseService {
	return &expenseService{pool: pool, inventory: inventory, log: log.Named("expense"), now: time.Now}
}

const expenseSelect = `
	SELECT e.id, e.expense_number, e.description, e.vendor_name, e.amount, e.quantity, e.unit, e.expense_date,
	       e.accounting_head_id, ah.name, e.batch_id, b.batch_number, e.product_id, p.name,
	       e.inventory_item_id, ii.name, e.invoiced_quantity, e.created_at, e.updated_at
	FROM expenses e
	LEFT JOIN accounting_heads ah ON ah.id = e.accounting_head_id
	LEFT JOIN batches b           ON b.id = e.batch_id
	LEFT JOIN products p          ON p.id = e.product_id
	LEFT JOIN inventory_items ii  ON ii.id = e.inventory_item_id`

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	if err := row.Scan(&e.ID, &e.ExpenseNumber, &e.Description, &e.VendorName, &e.Amount, &e.Quantity, &e.Unit, &e.ExpenseDate,
		&e.AccountingHeadID, &e.AccountingHeadName, &e.BatchID, &e.BatchNumber, &e.ProductID, &e.ProductName,
		&e.InventoryItemID, &e.InventoryItemName, &e.InvoicedQuantity, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func fetchExpense(ctx context.Context, q pgxQuerier, id uuid.UUID) (*Expense, error) {
	e, err := scanExpense(q.QueryRow(ctx, expenseSelect+" WHERE e.id = $1", id))
	if err != nil {
		return nil, storeError("fetch expense", "expense", id.String(), err)
	}
	return e, nil
}

func validateAmounts(amount decimal.Decimal, quantity *decimal.Decimal) error {
	if amount.IsNegative() {
		return validationf("amount", "cannot be negative, got %s", amount)
	}
	if quantity != nil && quantity.IsNegative() {
		return validationf("quantity", "cannot be negative, got %s", *quantity)
	}
	return nil
}

func (s *expenseService) CreateExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	if err := validateAmounts(in.Amount, in.Quantity); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := newExpenseNumber(s.now())
		if err != nil {
			return nil, err
		}
		e, err := s.createExpenseOnce(ctx, number, in)
		if err == nil {
			return e, nil
		}
		if !isUniqueViolation(err) {
			return nil, storeError("create expense", "expense", number, err)
		}
		lastErr = err
		s.log.Warn("expense number collision, retrying", zap.String("number", number), zap.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("failed to allocate a unique expense number after %d attempts: %w", maxNumberAttempts, lastErr)
}

func (s *expenseService) createExpenseOnce(ctx context.Context, number string, in ExpenseInput) (*Expense, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, beginError(err)
	}
	defer tx.Rollback(ctx)

	reserve := in.reservation()
	date := s.now()
	if in.ExpenseDate != nil {
		date = *in.ExpenseDate
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (expense_number, description, vendor_name, amount, quantity, unit, expense_date,
		                      accounting_head_id, batch_id, product_id, inventory_item_id, invoiced_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, number, in.Description, in.VendorName, in.Amount, in.Quantity, in.Unit, date,
		in.AccountingHeadID, in.BatchID, in.ProductID, in.InventoryItemID, reserve,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	if reserve.IsPositive() {
		if _, err := s.inventory.AddInvoicedQuantityTx(ctx, tx, *in.InventoryItemID, reserve, MovementMeta{
			BatchID:   in.BatchID,
			ExpenseID: &id,
			Notes:     "Reserved by expense " + number,
		}); err != nil {
			return nil, err
		}
	}

	e, err := fetchExpense(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, commitError(err)
	}
	return e, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, id uuid.UUID, in ExpenseInput) (*Expense, error) {
	if err := validateAmounts(in.Amount, in.Quantity); err != nil {
		return nil, err
	}

	return inTx(ctx, s.pool, func(tx pgx.Tx) (*Expense, error) {
		var number string
		var oldItem *uuid.UUID
		var oldReserved decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT expense_number, inventory_item_id, invoiced_quantity FROM expenses WHERE id = $1 FOR UPDATE", id,
		).Scan(&number, &oldItem, &oldReserved)
		if err != nil {
			return nil, storeError("lock expense", "expense", id.String(), err)
		}

		newReserved := in.reservation()
		meta := MovementMeta{BatchID: in.BatchID, ExpenseID: &id, Notes: "Expense " + number + " edited"}
		if err := s.moveReservationTx(ctx, tx, oldItem, oldReserved, in.InventoryItemID, newReserved, meta); err != nil {
			return nil, err
		}

		_, err = tx.Exec(ctx, `
			UPDATE expenses SET
				description = $1, vendor_name = $2, amount = $3, quantity = $4, unit = $5,
				expense_date = COALESCE($6, expense_date),
				accounting_head_id = $7, batch_id = $8, product_id = $9, inventory_item_id = $10,
				invoiced_quantity = $11, updated_at = NOW()
			WHERE id = $12
		`, in.Description, in.VendorName, in.Amount, in.Quantity, in.Unit, in.ExpenseDate,
			in.AccountingHeadID, in.BatchID, in.ProductID, in.InventoryItemID, newReserved, id)
		if err != nil {
			return nil, storeError("update expense", "expense", id.String(), err)
		}
		return fetchExpense(ctx, tx, id)
	})
}

// moveReservationTx applies the difference between the old and new reservation.
// On the same item only the delta is reserved or released; across items the old
// reservation is released in full before the new one is taken.
func (s *expenseService) moveReservationTx(ctx context.Context, tx pgx.Tx, oldItem *uuid.UUID, oldQty decimal.Decimal, newItem *uuid.UUID, newQty decimal.Decimal, meta MovementMeta) error {
	sameItem := oldItem != nil && newItem != nil && *oldItem == *newItem
	if sameItem {
		delta := newQty.Sub(oldQty)
		switch delta.Sign() {
		case 1:
			_, err := s.inventory.AddInvoicedQuantityTx(ctx, tx, *newItem, delta, meta)
			return err
		case -1:
			_, err := s.inventory.ReleaseInvoicedQuantityTx(ctx, tx, *oldItem, delta.Neg(), meta)
			return err
		}
		return nil
	}

	if oldItem != nil && oldQty.IsPositive() {
		if _, err := s.inventory.ReleaseInvoicedQuantityTx(ctx, tx, *oldItem, oldQty, meta); err != nil {
			return err
		}
	}
	if newItem != nil && newQty.IsPositive() {
		if _, err := s.inventory.AddInvoicedQuantityTx(ctx, tx, *newItem, newQty, meta); err != nil {
			return err
		}
	}
	return nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	_, err := inTx(ctx, s.pool, func(tx pgx.Tx) (struct{}, error) {
		var number string
		var item *uuid.UUID
		var batchID *uuid.UUID
		var reserved decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT expense_number, inventory_item_id, batch_id, invoiced_quantity FROM expenses WHERE id = $1 FOR UPDATE", id,
		).Scan(&number, &item, &batchID, &reserved)
		if err != nil {
			return struct{}{}, storeError("lock expense", "expense", id.String(), err)
		}

		if item != nil && reserved.IsPositive() {
			if _, err := s.inventory.ReleaseInvoicedQuantityTx(ctx, tx, *item, reserved, MovementMeta{
				BatchID:   batchID,
				ExpenseID: &id,
				Notes:     "Expense " + number + " deleted",
			}); err != nil {
				return struct{}{}, err
			}
		}

		if _, err := tx.Exec(ctx, "DELETE FROM expenses WHERE id = $1", id); err != nil {
			return struct{}{}, storeError("delete expense", "expense", id.String(), err)
		}
		return struct{}{}, nil
	})
	return err
}

func (s *expenseService) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	return fetchExpense(ctx, s.pool, id)
}

func (s *expenseService) GetExpenses(ctx context.Context, filter LedgerFilter) ([]Expense, error) {
	var w whereBuilder
	if filter.AccountingHeadID != nil {
		w.add("e.accounting_head_id = ?", *filter.AccountingHeadID)
	}
	if filter.BatchID != nil {
		w.add("e.batch_id = ?", *filter.BatchID)
	}
	if filter.ProductID != nil {
		w.add("e.product_id = ?", *filter.ProductID)
	}
	if filter.InventoryItemID != nil {
		w.add("e.inventory_item_id = ?", *filter.InventoryItemID)
	}
	if filter.From != nil {
		w.add("e.expense_date >= ?::date", *filter.From)
	}
	if filter.To != nil {
		w.add("e.expense_date <= ?::date", *filter.To)
	}
	if filter.Search != "" {
		w.addSearch(filter.Search, "e.description", "e.vendor_name")
	}

	rows, err := s.pool.Query(ctx, expenseSelect+w.sql()+" ORDER BY e.expense_date DESC, e.created_at DESC", w.args...)
	if err != nil {
		return nil, storeError("query expenses", "expense", "", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *expenseService) BackfillInventoryLinks(ctx context.Context) (*BackfillReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, description FROM expenses
		WHERE inventory_item_id IS NULL AND description ILIKE '%inventory_item_id:%'
	`)
	if err != nil {
		return nil, storeError("scan legacy expense links", "expense", "", err)
	}
	type candidate struct {
		id          uuid.UUID
		description string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	report := &BackfillReport{Scanned: len(candidates)}
	for _, c := range candidates {
		itemID, cleaned, ok := ParseInventoryLink(c.description)
		if !ok {
			report.Skipped++
			continue
		}
		// Legacy rows already reserved their quantity on the item. Carry that
		// reservation onto the row, capped by what no other expense claims yet.
		tag, err := s.pool.Exec(ctx, `
			UPDATE expenses SET
				inventory_item_id = ii.id,
				description       = $1,
				invoiced_quantity = GREATEST(LEAST(
					COALESCE(expenses.quantity, 0),
					ii.invoiced_quantity - COALESCE((
						SELECT SUM(x.invoiced_quantity) FROM expenses x WHERE x.inventory_item_id = ii.id
					), 0)
				), 0),
				updated_at = NOW()
			FROM inventory_items ii
			WHERE expenses.id = $2 AND ii.id = $3 AND expenses.inventory_item_id IS NULL
		`, cleaned, c.id, itemID)
		if err != nil {
			return nil, storeError("backfill expense link", "expense", c.id.String(), err)
		}
		if tag.RowsAffected() == 0 {
			// The token names an item that no longer exists. Leave the description alone.
			s.log.Warn("legacy inventory link points at a missing item",
				zap.String("expense_id", c.id.String()), zap.String("inventory_item_id", itemID.String()))
			report.Skipped++
			continue
		}
		report.Linked++
	}

	s.log.Info("inventory link backfill finished",
		zap.Int("scanned", report.Scanned), zap.Int("linked", report.Linked), zap.Int("skipped", report.Skipped))
	return report, nil
}
