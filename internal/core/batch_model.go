package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus is a label only. Any status may follow any other.
type BatchStatus string

const (
	BatchStatusActive    BatchStatus = "active"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

func (s BatchStatus) Valid() bool {
	switch s {
	case BatchStatusActive, BatchStatusCompleted, BatchStatusCancelled:
		return true
	}
	return false
}

// Batch is one production run.
type Batch struct {
	ID             uuid.UUID      `json:"id"`
	BatchNumber    string         `json:"batch_number"`
	BatchName      string         `json:"batch_name"`
	ProductionDate time.Time      `json:"production_date"`
	Status         BatchStatus    `json:"status"`
	CategoryID     *uuid.UUID     `json:"category_id,omitempty"`
	Notes          string         `json:"notes"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Products       []BatchProduct `json:"products"`
}

// BatchProduct records output of a batch.
type BatchProduct struct {
	ID               uuid.UUID       `json:"id"`
	BatchID          uuid.UUID       `json:"batch_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	QuantityProduced decimal.Decimal `json:"quantity_produced"`
	Unit             string          `json:"unit"`
	CreatedAt        time.Time       `json:"created_at"`
}

// BatchCategory scopes the sequential <PREFIX>-<NNNN> batch numbers.
type BatchCategory struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchInput creates or updates a batch. On update, empty BatchNumber, nil
// ProductionDate and empty Status keep the stored values; the other fields are
// replaced and Products is ignored.
type BatchInput struct {
	BatchNumber    string
	BatchName      string
	ProductionDate *time.Time
	Status         BatchStatus
	CategoryID     *uuid.UUID
	Notes          string
	Products       []BatchProductInput
}

type BatchProductInput struct {
	ProductID        uuid.UUID
	QuantityProduced decimal.Decimal
	Unit             string
}

type BatchFilter struct {
	Status     BatchStatus
	CategoryID *uuid.UUID
	Search     string
}
