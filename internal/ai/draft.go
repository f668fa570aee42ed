package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseDraft is the model's reading of a purchase note. Every field is
// required by the strict schema; empty strings mean "not stated".
type ExpenseDraft struct {
	Description    string  `json:"description" jsonschema_description:"Short description of what was bought"`
	VendorName     string  `json:"vendor_name" jsonschema_description:"Supplier name, or empty if the note does not say"`
	Amount         string  `json:"amount" jsonschema_description:"Total amount paid as a decimal string, e.g. '1250.00'"`
	Quantity       string  `json:"quantity" jsonschema_description:"Quantity bought as a decimal string, or empty if not stated"`
	Unit           string  `json:"unit" jsonschema_description:"Unit of the quantity, e.g. 'kg' or 'pcs', or empty"`
	ExpenseDate    string  `json:"expense_date" jsonschema_description:"Date of the purchase in YYYY-MM-DD format"`
	AccountingHead string  `json:"accounting_head" jsonschema_description:"Exact name of the matching accounting head from the provided list, or empty"`
	InventoryItem  string  `json:"inventory_item" jsonschema_description:"Exact name of the matching inventory item from the provided list, or empty"`
	Confidence     float64 `json:"confidence" jsonschema_description:"Confidence in this reading between 0.0 and 1.0"`
	Reasoning      string  `json:"reasoning" jsonschema_description:"Brief explanation of how the note was read"`
}

// Normalize trims whitespace and clamps confidence into [0, 1].
func (d *ExpenseDraft) Normalize() {
	for _, f := range []*string{&d.Description, &d.VendorName, &d.Amount, &d.Quantity, &d.Unit,
		&d.ExpenseDate, &d.AccountingHead, &d.InventoryItem, &d.Reasoning} {
		*f = strings.TrimSpace(*f)
	}
	d.Amount = strings.ReplaceAll(d.Amount, ",", "")
	d.Quantity = strings.ReplaceAll(d.Quantity, ",", "")
	switch {
	case d.Confidence < 0:
		d.Confidence = 0
	case d.Confidence > 1:
		d.Confidence = 1
	}
}

func (d *ExpenseDraft) Validate() error {
	if d.Description == "" {
		return fmt.Errorf("description is empty")
	}
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return fmt.Errorf("amount %q is not a decimal: %w", d.Amount, err)
	}
	if amount.IsNegative() {
		return fmt.Errorf("amount %s is negative", amount)
	}
	if d.Quantity != "" {
		qty, err := decimal.NewFromString(d.Quantity)
		if err != nil {
			return fmt.Errorf("quantity %q is not a decimal: %w", d.Quantity, err)
		}
		if !qty.IsPositive() {
			return fmt.Errorf("quantity %s must be positive", qty)
		}
	}
	if d.ExpenseDate != "" {
		if _, err := time.Parse("2006-01-02", d.ExpenseDate); err != nil {
			return fmt.Errorf("expense_date %q is not YYYY-MM-DD", d.ExpenseDate)
		}
	}
	return nil
}

// AmountDecimal returns the parsed amount. Call after Validate.
func (d *ExpenseDraft) AmountDecimal() decimal.Decimal {
	return decimal.RequireFromString(d.Amount)
}

// QuantityDecimal returns the parsed quantity, or nil when none was stated.
func (d *ExpenseDraft) QuantityDecimal() *decimal.Decimal {
	if d.Quantity == "" {
		return nil
	}
	q := decimal.RequireFromString(d.Quantity)
	return &q
}
