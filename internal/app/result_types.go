package app

import (
	"github.com/shopspring/decimal"

	"himalayan-flavours/internal/ai"
	"himalayan-flavours/internal/core"
)

// ItemListResult is returned by ListInventoryItems.
type ItemListResult struct {
	Items []core.InventoryItem `json:"items"`
}

// StockReportResult is returned by GetStockReport.
type StockReportResult struct {
	Items          []core.InventoryItem `json:"items"`
	LowStockCount  int                  `json:"low_stock_count"`
	InventoryValue decimal.Decimal      `json:"inventory_value"`
	ReservedValue  decimal.Decimal      `json:"reserved_value"`
}

// VerifyResult is returned by VerifyInvariants.
type VerifyResult struct {
	Consistent bool                      `json:"consistent"`
	Violations []core.InvariantViolation `json:"violations"`
}

// ExpenseDraftResult is returned by DraftExpense. Request is ready to submit to
// CreateExpense once the operator has reviewed it; Warnings lists names the
// model produced that did not match any stored record.
type ExpenseDraftResult struct {
	Draft    *ai.ExpenseDraft `json:"draft"`
	Request  ExpenseRequest   `json:"request"`
	Warnings []string         `json:"warnings"`
}
