package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MarginPercent returns net / base * 100 rounded to two places, or zero when base is zero.
func MarginPercent(net, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return net.Div(base).Mul(hundred).Round(2)
}

// BatchProfitLoss is the cost and revenue picture of one batch. ExpensesTotal,
// IncomeTotal and InventoryCost are always reported; TotalCost folds in
// InventoryCost only when IncludesInventoryCost is set.
type BatchProfitLoss struct {
	BatchID               uuid.UUID       `json:"batch_id"`
	BatchNumber           string          `json:"batch_number"`
	BatchName             string          `json:"batch_name"`
	Status                BatchStatus     `json:"status"`
	ProductionDate        time.Time       `json:"production_date"`
	TotalExpenses         decimal.Decimal `json:"total_expenses"`
	TotalIncome           decimal.Decimal `json:"total_income"`
	InventoryCost         decimal.Decimal `json:"inventory_cost"`
	TotalCost             decimal.Decimal `json:"total_cost"`
	NetProfit             decimal.Decimal `json:"net_profit"`
	ProfitMargin          decimal.Decimal `json:"profit_margin"`
	ExpenseCount          int             `json:"expense_count"`
	IncomeCount           int             `json:"income_count"`
	ConsumptionCount      int             `json:"consumption_count"`
	IncludesInventoryCost bool            `json:"includes_inventory_cost"`
}

// finalize derives TotalCost, NetProfit and ProfitMargin from the component sums.
func (p *BatchProfitLoss) finalize(includeInventoryCost bool) {
	p.IncludesInventoryCost = includeInventoryCost
	p.TotalCost = p.TotalExpenses
	if includeInventoryCost {
		p.TotalCost = p.TotalCost.Add(p.InventoryCost)
	}
	p.NetProfit = p.TotalIncome.Sub(p.TotalCost)
	p.ProfitMargin = MarginPercent(p.NetProfit, p.TotalCost)
}

// DateRange bounds a report. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Summary holds dashboard totals over all expense and income rows.
type Summary struct {
	From             *time.Time      `json:"from,omitempty"`
	To               *time.Time      `json:"to,omitempty"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	ProfitMargin     decimal.Decimal `json:"profit_margin"`
	ExpenseCount     int             `json:"expense_count"`
	IncomeCount      int             `json:"income_count"`
	InventoryCost    decimal.Decimal `json:"inventory_cost"`
	InventoryValue   decimal.Decimal `json:"inventory_value"`
	ActiveBatchCount int             `json:"active_batch_count"`
	LowStockCount    int             `json:"low_stock_count"`
}

func (s *Summary) finalize() {
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses)
	s.ProfitMargin = MarginPercent(s.NetProfit, s.TotalExpenses)
}

// ProductCostLine groups expenses by linked product and accounting head.
type ProductCostLine struct {
	ProductID          *uuid.UUID      `json:"product_id,omitempty"`
	ProductName        string          `json:"product_name"`
	AccountingHeadID   *uuid.UUID      `json:"accounting_head_id,omitempty"`
	AccountingHeadName string          `json:"accounting_head_name"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	TotalQuantity      decimal.Decimal `json:"total_quantity"`
	AverageUnitCost    decimal.Decimal `json:"average_unit_cost"`
	TransactionCount   int             `json:"transaction_count"`
}

func (l *ProductCostLine) finalize() {
	if l.TotalQuantity.IsZero() {
		l.AverageUnitCost = decimal.Zero
		return
	}
	l.AverageUnitCost = l.TotalCost.DivRound(l.TotalQuantity, 4)
}

// ProductCostFilter narrows GetProductCostAnalysis.
type ProductCostFilter struct {
	ProductID        *uuid.UUID
	AccountingHeadID *uuid.UUID
	DateRange
}

// ProductProfitLoss compares expenses and income linked to one product.
type ProductProfitLoss struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
}

func (p *ProductProfitLoss) finalize() {
	p.NetProfit = p.TotalIncome.Sub(p.TotalExpenses)
	p.ProfitMargin = MarginPercent(p.NetProfit, p.TotalExpenses)
}

// AccountingHeadSummary totals the ledger rows posted under one head.
type AccountingHeadSummary struct {
	AccountingHeadID uuid.UUID       `json:"accounting_head_id"`
	Name             string          `json:"name"`
	Type             HeadType        `json:"type"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
}
