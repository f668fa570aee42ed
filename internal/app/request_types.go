package app

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"himalayan-flavours/internal/core"
)

// Dates travel as YYYY-MM-DD strings and are parsed after validation.

// ItemRequest is the input for creating or editing an inventory item.
// OpeningStock is ignored on update.
type ItemRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	SKU          *string         `json:"sku" validate:"omitempty,max=64"`
	Unit         string          `json:"unit" validate:"required,max=32"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	MaximumStock decimal.Decimal `json:"maximum_stock"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
}

func (r ItemRequest) toInput() core.ItemInput {
	return core.ItemInput{
		Name:         r.Name,
		SKU:          emptyToNil(r.SKU),
		Unit:         r.Unit,
		UnitCost:     r.UnitCost,
		MinimumStock: r.MinimumStock,
		MaximumStock: r.MaximumStock,
		OpeningStock: r.OpeningStock,
	}
}

// ItemQuery narrows ListInventoryItems.
type ItemQuery struct {
	Search       string `json:"search" validate:"max=100"`
	LowStockOnly bool   `json:"low_stock_only"`
}

// AddStockRequest records a delivery of Quantity units at UnitCost each.
type AddStockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Notes    string          `json:"notes" validate:"max=500"`
}

// QuantityRequest reserves or releases invoiced quantity.
type QuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Notes    string          `json:"notes" validate:"max=500"`
}

// BatchRequest is the input for creating or editing a batch. On create an empty
// BatchNumber is generated, from the category sequence when CategoryID is set.
type BatchRequest struct {
	BatchNumber    string                `json:"batch_number" validate:"max=64"`
	BatchName      string                `json:"batch_name" validate:"max=200"`
	ProductionDate string                `json:"production_date" validate:"omitempty,datetime=2006-01-02"`
	Status         string                `json:"status" validate:"omitempty,oneof=active completed cancelled"`
	CategoryID     *uuid.UUID            `json:"category_id"`
	Notes          string                `json:"notes" validate:"max=2000"`
	Products       []BatchProductRequest `json:"products" validate:"dive"`
}

func (r BatchRequest) toInput() (core.BatchInput, error) {
	date, err := parseDate("production_date", r.ProductionDate)
	if err != nil {
		return core.BatchInput{}, err
	}
	products := make([]core.BatchProductInput, len(r.Products))
	for i, p := range r.Products {
		products[i] = p.toInput()
	}
	return core.BatchInput{
		BatchNumber:    r.BatchNumber,
		BatchName:      r.BatchName,
		ProductionDate: date,
		Status:         core.BatchStatus(r.Status),
		CategoryID:     r.CategoryID,
		Notes:          r.Notes,
		Products:       products,
	}, nil
}

// BatchProductRequest records a product a batch produced.
type BatchProductRequest struct {
	ProductID        uuid.UUID       `json:"product_id" validate:"required"`
	QuantityProduced decimal.Decimal `json:"quantity_produced"`
	Unit             string          `json:"unit" validate:"max=32"`
}

func (r BatchProductRequest) toInput() core.BatchProductInput {
	return core.BatchProductInput{ProductID: r.ProductID, QuantityProduced: r.QuantityProduced, Unit: r.Unit}
}

// BatchQuery narrows ListBatches.
type BatchQuery struct {
	Status     string     `json:"status" validate:"omitempty,oneof=active completed cancelled"`
	CategoryID *uuid.UUID `json:"category_id"`
	Search     string     `json:"search" validate:"max=100"`
}

// BatchCategoryRequest creates a numbering scope. Prefix is upper-cased.
type BatchCategoryRequest struct {
	Code   string `json:"code" validate:"required,max=32"`
	Name   string `json:"name" validate:"max=100"`
	Prefix string `json:"prefix" validate:"required,alphanum,max=8"`
}

// ConsumptionRequest draws inventory into a batch. A nil UnitCost snapshots the
// item's current cost.
type ConsumptionRequest struct {
	BatchID          uuid.UUID        `json:"batch_id" validate:"required"`
	InventoryItemID  uuid.UUID        `json:"inventory_item_id" validate:"required"`
	QuantityConsumed decimal.Decimal  `json:"quantity_consumed"`
	UnitCost         *decimal.Decimal `json:"unit_cost"`
	ConsumptionDate  string           `json:"consumption_date" validate:"omitempty,datetime=2006-01-02"`
	Notes            string           `json:"notes" validate:"max=500"`
}

func (r ConsumptionRequest) toInput() (core.ConsumptionInput, error) {
	date, err := parseDate("consumption_date", r.ConsumptionDate)
	if err != nil {
		return core.ConsumptionInput{}, err
	}
	return core.ConsumptionInput{
		BatchID:          r.BatchID,
		InventoryItemID:  r.InventoryItemID,
		QuantityConsumed: r.QuantityConsumed,
		UnitCost:         r.UnitCost,
		ConsumptionDate:  date,
		Notes:            r.Notes,
	}, nil
}

// UpdateConsumptionRequest edits a consumption row. Batch and item are fixed.
type UpdateConsumptionRequest struct {
	QuantityConsumed decimal.Decimal  `json:"quantity_consumed"`
	UnitCost         *decimal.Decimal `json:"unit_cost"`
	ConsumptionDate  string           `json:"consumption_date" validate:"omitempty,datetime=2006-01-02"`
	Notes            string           `json:"notes" validate:"max=500"`
}

func (r UpdateConsumptionRequest) toInput() (core.ConsumptionInput, error) {
	date, err := parseDate("consumption_date", r.ConsumptionDate)
	if err != nil {
		return core.ConsumptionInput{}, err
	}
	return core.ConsumptionInput{
		QuantityConsumed: r.QuantityConsumed,
		UnitCost:         r.UnitCost,
		ConsumptionDate:  date,
		Notes:            r.Notes,
	}, nil
}

// ExpenseRequest is the input for creating or editing an expense.
type ExpenseRequest struct {
	Description      string           `json:"description" validate:"required,max=500"`
	VendorName       string           `json:"vendor_name" validate:"max=200"`
	Amount           decimal.Decimal  `json:"amount"`
	Quantity         *decimal.Decimal `json:"quantity"`
	Unit             string           `json:"unit" validate:"max=32"`
	ExpenseDate      string           `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	AccountingHeadID *uuid.UUID       `json:"accounting_head_id"`
	BatchID          *uuid.UUID       `json:"batch_id"`
	ProductID        *uuid.UUID       `json:"product_id"`
	InventoryItemID  *uuid.UUID       `json:"inventory_item_id"`
}

func (r ExpenseRequest) toInput() (core.ExpenseInput, error) {
	date, err := parseDate("expense_date", r.ExpenseDate)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	return core.ExpenseInput{
		Description:      r.Description,
		VendorName:       r.VendorName,
		Amount:           r.Amount,
		Quantity:         r.Quantity,
		Unit:             r.Unit,
		ExpenseDate:      date,
		AccountingHeadID: r.AccountingHeadID,
		BatchID:          r.BatchID,
		ProductID:        r.ProductID,
		InventoryItemID:  r.InventoryItemID,
	}, nil
}

// IncomeRequest is the input for creating or editing an income entry.
type IncomeRequest struct {
	Description      string           `json:"description" validate:"required,max=500"`
	Amount           decimal.Decimal  `json:"amount"`
	Quantity         *decimal.Decimal `json:"quantity"`
	Unit             string           `json:"unit" validate:"max=32"`
	IncomeDate       string           `json:"income_date" validate:"omitempty,datetime=2006-01-02"`
	AccountingHeadID *uuid.UUID       `json:"accounting_head_id"`
	BatchID          *uuid.UUID       `json:"batch_id"`
	ProductID        *uuid.UUID       `json:"product_id"`
	CustomerID       *uuid.UUID       `json:"customer_id"`
}

func (r IncomeRequest) toInput() (core.IncomeInput, error) {
	date, err := parseDate("income_date", r.IncomeDate)
	if err != nil {
		return core.IncomeInput{}, err
	}
	return core.IncomeInput{
		Description:      r.Description,
		Amount:           r.Amount,
		Quantity:         r.Quantity,
		Unit:             r.Unit,
		IncomeDate:       date,
		AccountingHeadID: r.AccountingHeadID,
		BatchID:          r.BatchID,
		ProductID:        r.ProductID,
		CustomerID:       r.CustomerID,
	}, nil
}

// LedgerQuery narrows expense and income listings. InventoryItemID applies to
// expenses only and CustomerID to income only.
type LedgerQuery struct {
	AccountingHeadID *uuid.UUID `json:"accounting_head_id"`
	BatchID          *uuid.UUID `json:"batch_id"`
	ProductID        *uuid.UUID `json:"product_id"`
	InventoryItemID  *uuid.UUID `json:"inventory_item_id"`
	CustomerID       *uuid.UUID `json:"customer_id"`
	From             string     `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To               string     `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Search           string     `json:"search" validate:"max=100"`
}

func (q LedgerQuery) toFilter() (core.LedgerFilter, error) {
	r, err := DateRangeQuery{From: q.From, To: q.To}.toRange()
	if err != nil {
		return core.LedgerFilter{}, err
	}
	return core.LedgerFilter{
		AccountingHeadID: q.AccountingHeadID,
		BatchID:          q.BatchID,
		ProductID:        q.ProductID,
		InventoryItemID:  q.InventoryItemID,
		CustomerID:       q.CustomerID,
		From:             r.From,
		To:               r.To,
		Search:           q.Search,
	}, nil
}

// DateRangeQuery bounds a report. Empty ends are open.
type DateRangeQuery struct {
	From string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

func (q DateRangeQuery) toRange() (core.DateRange, error) {
	from, err := parseDate("from", q.From)
	if err != nil {
		return core.DateRange{}, err
	}
	to, err := parseDate("to", q.To)
	if err != nil {
		return core.DateRange{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return core.DateRange{}, &core.ValidationError{Field: "to", Message: "must not be before from"}
	}
	return core.DateRange{From: from, To: to}, nil
}

// ProductCostQuery narrows GetProductCostAnalysis.
type ProductCostQuery struct {
	ProductID        *uuid.UUID `json:"product_id"`
	AccountingHeadID *uuid.UUID `json:"accounting_head_id"`
	DateRangeQuery
}

// AccountingHeadRequest creates or renames a head. Type is fixed after creation.
type AccountingHeadRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Type        string `json:"type" validate:"omitempty,oneof=expense income"`
	Description string `json:"description" validate:"max=500"`
}

type ProductRequest struct {
	Name string  `json:"name" validate:"required,max=200"`
	SKU  *string `json:"sku" validate:"omitempty,max=64"`
	Unit string  `json:"unit" validate:"max=32"`
}

type CustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Phone string `json:"phone" validate:"max=32"`
}

// DraftExpenseRequest carries the operator's free-text purchase note.
type DraftExpenseRequest struct {
	Note string `json:"note" validate:"required,max=4000"`
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
