package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a stocked raw material or packaging item.
// Invariant: 0 <= InvoicedQuantity <= CurrentStock.
type InventoryItem struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	SKU              *string         `json:"sku,omitempty"`
	Unit             string          `json:"unit"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	InvoicedQuantity decimal.Decimal `json:"invoiced_quantity"`
	MinimumStock     decimal.Decimal `json:"minimum_stock"`
	MaximumStock     decimal.Decimal `json:"maximum_stock"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Derived on read.
	AvailableForConsumption decimal.Decimal `json:"available_for_consumption"`
	AvailableForInvoice     decimal.Decimal `json:"available_for_invoice"`
	IsBelowMinimum          bool            `json:"is_below_minimum"`
}

func (i *InventoryItem) derive() {
	i.AvailableForConsumption = i.CurrentStock
	i.AvailableForInvoice = i.CurrentStock.Sub(i.InvoicedQuantity)
	i.IsBelowMinimum = i.CurrentStock.LessThanOrEqual(i.MinimumStock)
}

// MovementType labels a row in the inventory audit trail.
type MovementType string

const (
	MovementStockIn             MovementType = "STOCK_IN"
	MovementConsumption         MovementType = "CONSUMPTION"
	MovementConsumptionReversal MovementType = "CONSUMPTION_REVERSAL"
	MovementInvoiceReserve      MovementType = "INVOICE_RESERVE"
	MovementInvoiceRelease      MovementType = "INVOICE_RELEASE"
)

// InventoryMovement is one append-only audit row. Quantity is signed: stock
// movements change current_stock, invoice movements change invoiced_quantity.
type InventoryMovement struct {
	ID              uuid.UUID       `json:"id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	MovementType    MovementType    `json:"movement_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	BatchID         *uuid.UUID      `json:"batch_id,omitempty"`
	ExpenseID       *uuid.UUID      `json:"expense_id,omitempty"`
	ConsumptionID   *uuid.UUID      `json:"consumption_id,omitempty"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MovementMeta links a stock mutation to the record that caused it.
type MovementMeta struct {
	BatchID       *uuid.UUID
	ExpenseID     *uuid.UUID
	ConsumptionID *uuid.UUID
	Notes         string
}

// ItemInput carries the descriptive fields of an item. OpeningStock and
// OpeningCost are honoured only on create.
type ItemInput struct {
	Name         string
	SKU          *string
	Unit         string
	UnitCost     decimal.Decimal
	MinimumStock decimal.Decimal
	MaximumStock decimal.Decimal
	OpeningStock decimal.Decimal
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	Search       string
	LowStockOnly bool
}
