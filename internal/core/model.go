package core

import (
	"time"

	"github.com/google/uuid"
)

// HeadType classifies an accounting head.
type HeadType string

const (
	HeadTypeExpense HeadType = "expense"
	HeadTypeIncome  HeadType = "income"
)

func (t HeadType) Valid() bool {
	return t == HeadTypeExpense || t == HeadTypeIncome
}

// AccountingHead is a named category for expenses or income.
type AccountingHead struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Type        HeadType  `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product is sellable output produced by batches.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SKU       *string   `json:"sku,omitempty"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
