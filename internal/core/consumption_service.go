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

// BatchInventoryConsumption is inventory drawn into a batch. TotalCost is
// computed by the store from QuantityConsumed and UnitCost.
type BatchInventoryConsumption struct {
	ID                uuid.UUID       `json:"id"`
	BatchID           uuid.UUID       `json:"batch_id"`
	BatchNumber       string          `json:"batch_number"`
	InventoryItemID   uuid.UUID       `json:"inventory_item_id"`
	InventoryItemName string          `json:"inventory_item_name"`
	Unit              string          `json:"unit"`
	QuantityConsumed  decimal.Decimal `json:"quantity_consumed"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	ConsumptionDate   time.Time       `json:"consumption_date"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ConsumptionInput creates or edits a consumption row. UnitCost nil means the
// item's current unit cost at the time of the call.
type ConsumptionInput struct {
	BatchID          uuid.UUID
	InventoryItemID  uuid.UUID
	QuantityConsumed decimal.Decimal
	UnitCost         *decimal.Decimal
	ConsumptionDate  *time.Time
	Notes            string
}

// ConsumptionService records batch draw-downs. Each mutation adjusts item stock
// by exactly the quantity difference it introduces.
type ConsumptionService interface {
	AddBatchInventoryConsumption(ctx context.Context, in ConsumptionInput) (*BatchInventoryConsumption, error)
	// UpdateBatchInventoryConsumption consumes or restores the quantity delta.
	// The inventory item of an existing row cannot change.
	UpdateBatchInventoryConsumption(ctx context.Context, id uuid.UUID, in ConsumptionInput) (*BatchInventoryConsumption, error)
	// DeleteBatchInventoryConsumption restores the full quantity and removes the row.
	DeleteBatchInventoryConsumption(ctx context.Context, id uuid.UUID) error
	GetBatchInventoryConsumption(ctx context.Context, batchID uuid.UUID) ([]BatchInventoryConsumption, error)
	GetInventoryConsumptionRecords(ctx context.Context, itemID uuid.UUID) ([]BatchInventoryConsumption, error)
}

type consumptionService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
	log       *zap.Logger
}

func NewConsumptionService(pool *pgxpool.Pool, inventory InventoryService, log *zap.Logger) ConsumptionService {
	return &consumptionService{pool: pool, inventory: inventory, log: log.Named("consumption")}
}

const consumptionSelect = `
	SELECT c.id, c.batch_id, b.batch_number, c.inventory_item_id, ii.name, ii.unit,
	       c.quantity_consumed, c.unit_cost, c.total_cost, c.consumption_date, c.notes, c.created_at, c.updated_at
	FROM batch_inventory_consumption c
	JOIN batches b          ON b.id = c.batch_id
	JOIN inventory_items ii ON ii.id = c.inventory_item_id`

func scanConsumption(row pgx.Row) (*BatchInventoryConsumption, error) {
	var c BatchInventoryConsumption
	if err := row.Scan(&c.ID, &c.BatchID, &c.BatchNumber, &c.InventoryItemID, &c.InventoryItemName, &c.Unit,
		&c.QuantityConsumed, &c.UnitCost, &c.TotalCost, &c.ConsumptionDate, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func fetchConsumption(ctx context.Context, q pgxQuerier, id uuid.UUID) (*BatchInventoryConsumption, error) {
	c, err := scanConsumption(q.QueryRow(ctx, consumptionSelect+" WHERE c.id = $1", id))
	if err != nil {
		return nil, storeError("fetch consumption", "consumption", id.String(), err)
	}
	return c, nil
}

func validateConsumptionInput(in ConsumptionInput) error {
	if !in.QuantityConsumed.IsPositive() {
		return validationf("quantity_consumed", "must be positive, got %s", in.QuantityConsumed)
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return validationf("unit_cost", "cannot be negative, got %s", *in.UnitCost)
	}
	return nil
}

func (s *consumptionService) AddBatchInventoryConsumption(ctx context.Context, in ConsumptionInput) (*BatchInventoryConsumption, error) {
	if err := validateConsumptionInput(in); err != nil {
		return nil, err
	}

	return inTx(ctx, s.pool, func(tx pgx.Tx) (*BatchInventoryConsumption, error) {
		if err := assertBatchExistsTx(ctx, tx, in.BatchID, false); err != nil {
			return nil, err
		}

		id := uuid.New()
		item, err := s.inventory.ConsumeInventoryForBatchTx(ctx, tx, in.InventoryItemID, in.QuantityConsumed, in.BatchID, MovementMeta{
			ConsumptionID: &id,
			Notes:         in.Notes,
		})
		if err != nil {
			return nil, err
		}

		// Without an explicit cost the row snapshots what the item carried when drawn down.
		unitCost := item.UnitCost
		if in.UnitCost != nil {
			unitCost = *in.UnitCost
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO batch_inventory_consumption (id, batch_id, inventory_item_id, quantity_consumed, unit_cost, consumption_date, notes)
			VALUES ($1, $2, $3, $4, $5, COALESCE($6, CURRENT_DATE), $7)
		`, id, in.BatchID, in.InventoryItemID, in.QuantityConsumed, unitCost, in.ConsumptionDate, in.Notes)
		if err != nil {
			return nil, storeError("insert consumption", "consumption", id.String(), err)
		}
		return fetchConsumption(ctx, tx, id)
	})
}

func (s *consumptionService) UpdateBatchInventoryConsumption(ctx context.Context, id uuid.UUID, in ConsumptionInput) (*BatchInventoryConsumption, error) {
	if err := validateConsumptionInput(in); err != nil {
		return nil, err
	}

	return inTx(ctx, s.pool, func(tx pgx.Tx) (*BatchInventoryConsumption, error) {
		var batchID, itemID uuid.UUID
		var oldQty decimal.Decimal
		err := tx.QueryRow(ctx, `
			SELECT batch_id, inventory_item_id, quantity_consumed
			FROM batch_inventory_consumption WHERE id = $1 FOR UPDATE
		`, id).Scan(&batchID, &itemID, &oldQty)
		if err != nil {
			return nil, storeError("lock consumption", "consumption", id.String(), err)
		}
		if in.InventoryItemID != uuid.Nil && in.InventoryItemID != itemID {
			return nil, validationf("inventory_item_id", "cannot change the item of an existing consumption; delete and re-add instead")
		}

		meta := MovementMeta{BatchID: &batchID, ConsumptionID: &id, Notes: "Consumption edited"}
		delta := in.QuantityConsumed.Sub(oldQty)
		switch delta.Sign() {
		case 1:
			if _, err := s.inventory.ConsumeInventoryForBatchTx(ctx, tx, itemID, delta, batchID, meta); err != nil {
				return nil, err
			}
		case -1:
			if _, err := s.inventory.RestoreConsumedStockTx(ctx, tx, itemID, delta.Neg(), meta); err != nil {
				return nil, err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE batch_inventory_consumption SET
				quantity_consumed = $1,
				unit_cost         = COALESCE($2, unit_cost),
				consumption_date  = COALESCE($3, consumption_date),
				notes             = $4,
				updated_at        = NOW()
			WHERE id = $5
		`, in.QuantityConsumed, in.UnitCost, in.ConsumptionDate, in.Notes, id)
		if err != nil {
			return nil, storeError("update consumption", "consumption", id.String(), err)
		}
		return fetchConsumption(ctx, tx, id)
	})
}

func (s *consumptionService) DeleteBatchInventoryConsumption(ctx context.Context, id uuid.UUID) error {
	_, err := inTx(ctx, s.pool, func(tx pgx.Tx) (struct{}, error) {
		var batchID, itemID uuid.UUID
		var qty decimal.Decimal
		err := tx.QueryRow(ctx, `
			SELECT batch_id, inventory_item_id, quantity_consumed
			FROM batch_inventory_consumption WHERE id = $1 FOR UPDATE
		`, id).Scan(&batchID, &itemID, &qty)
		if err != nil {
			return struct{}{}, storeError("lock consumption", "consumption", id.String(), err)
		}

		if _, err := s.inventory.RestoreConsumedStockTx(ctx, tx, itemID, qty, MovementMeta{
			BatchID:       &batchID,
			ConsumptionID: &id,
			Notes:         "Consumption deleted",
		}); err != nil {
			return struct{}{}, err
		}

		if _, err := tx.Exec(ctx, "DELETE FROM batch_inventory_consumption WHERE id = $1", id); err != nil {
			return struct{}{}, storeError("delete consumption", "consumption", id.String(), err)
		}
		return struct{}{}, nil
	})
	return err
}

func (s *consumptionService) GetBatchInventoryConsumption(ctx context.Context, batchID uuid.UUID) ([]BatchInventoryConsumption, error) {
	return s.list(ctx, " WHERE c.batch_id = $1 ORDER BY c.consumption_date, c.created_at", batchID)
}

func (s *consumptionService) GetInventoryConsumptionRecords(ctx context.Context, itemID uuid.UUID) ([]BatchInventoryConsumption, error) {
	return s.list(ctx, " WHERE c.inventory_item_id = $1 ORDER BY c.consumption_date DESC, c.created_at DESC", itemID)
}

func (s *consumptionService) list(ctx context.Context, where string, arg uuid.UUID) ([]BatchInventoryConsumption, error) {
	rows, err := s.pool.Query(ctx, consumptionSelect+where, arg)
	if err != nil {
		return nil, storeError("query consumption", "consumption", arg.String(), err)
	}
	defer rows.Close()

	var out []BatchInventoryConsumption
	for rows.Next() {
		c, err := scanConsumption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consumption: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
