package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a dated cost. When linked to an inventory item with a quantity,
// InvoicedQuantity holds the reservation it placed on that item.
type Expense struct {
	ID                 uuid.UUID        `json:"id"`
	ExpenseNumber      string           `json:"expense_number"`
	Description        string           `json:"description"`
	VendorName         string           `json:"vendor_name"`
	Amount             decimal.Decimal  `json:"amount"`
	Quantity           *decimal.Decimal `json:"quantity,omitempty"`
	Unit               string           `json:"unit"`
	ExpenseDate        time.Time        `json:"expense_date"`
	AccountingHeadID   *uuid.UUID       `json:"accounting_head_id,omitempty"`
	AccountingHeadName *string          `json:"accounting_head_name,omitempty"`
	BatchID            *uuid.UUID       `json:"batch_id,omitempty"`
	BatchNumber        *string          `json:"batch_number,omitempty"`
	ProductID          *uuid.UUID       `json:"product_id,omitempty"`
	ProductName        *string          `json:"product_name,omitempty"`
	InventoryItemID    *uuid.UUID       `json:"inventory_item_id,omitempty"`
	InventoryItemName  *string          `json:"inventory_item_name,omitempty"`
	InvoicedQuantity   decimal.Decimal  `json:"invoiced_quantity"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Income is a dated revenue entry.
type Income struct {
	ID                 uuid.UUID        `json:"id"`
	IncomeNumber       string           `json:"income_number"`
	Description        string           `json:"description"`
	Amount             decimal.Decimal  `json:"amount"`
	Quantity           *decimal.Decimal `json:"quantity,omitempty"`
	Unit               string           `json:"unit"`
	IncomeDate         time.Time        `json:"income_date"`
	AccountingHeadID   *uuid.UUID       `json:"accounting_head_id,omitempty"`
	AccountingHeadName *string          `json:"accounting_head_name,omitempty"`
	BatchID            *uuid.UUID       `json:"batch_id,omitempty"`
	BatchNumber        *string          `json:"batch_number,omitempty"`
	ProductID          *uuid.UUID       `json:"product_id,omitempty"`
	ProductName        *string          `json:"product_name,omitempty"`
	CustomerID         *uuid.UUID       `json:"customer_id,omitempty"`
	CustomerName       *string          `json:"customer_name,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type ExpenseInput struct {
	Description      string
	VendorName       string
	Amount           decimal.Decimal
	Quantity         *decimal.Decimal
	Unit             string
	ExpenseDate      *time.Time
	AccountingHeadID *uuid.UUID
	BatchID          *uuid.UUID
	ProductID        *uuid.UUID
	InventoryItemID  *uuid.UUID
}

// reservation is the quantity this expense holds against its inventory item.
func (in ExpenseInput) reservation() decimal.Decimal {
	if in.InventoryItemID == nil || in.Quantity == nil || !in.Quantity.IsPositive() {
		return decimal.Zero
	}
	return *in.Quantity
}

type IncomeInput struct {
	Description      string
	Amount           decimal.Decimal
	Quantity         *decimal.Decimal
	Unit             string
	IncomeDate       *time.Time
	AccountingHeadID *uuid.UUID
	BatchID          *uuid.UUID
	ProductID        *uuid.UUID
	CustomerID       *uuid.UUID
}

// LedgerFilter narrows expense and income listings. From and To are inclusive dates.
type LedgerFilter struct {
	AccountingHeadID *uuid.UUID
	BatchID          *uuid.UUID
	ProductID        *uuid.UUID
	InventoryItemID  *uuid.UUID // expenses only
	CustomerID       *uuid.UUID // income only
	From             *time.Time
	To               *time.Time
	Search           string
}

// BackfillReport summarises a BackfillInventoryLinks run.
type BackfillReport struct {
	Scanned int `json:"scanned"`
	Linked  int `json:"linked"`
	Skipped int `json:"skipped"`
}
