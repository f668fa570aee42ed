package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", validationf("quantity", "must be positive"), ErrValidation},
		{"stock", &InsufficientStockError{Item: "Cardamom", Requested: decimal.NewFromInt(5), Available: decimal.NewFromInt(2)}, ErrInsufficientStock},
		{"invoice", &InvoiceCapacityError{Item: "Cardamom", Requested: decimal.NewFromInt(5), Available: decimal.NewFromInt(2)}, ErrInvoiceCapacity},
		{"not found", &NotFoundError{Entity: "batch", ID: "x"}, ErrNotFound},
		{"transport", &TransportError{Op: "commit", Err: errors.New("conn reset")}, ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			for _, other := range []error{ErrValidation, ErrInsufficientStock, ErrInvoiceCapacity, ErrNotFound, ErrTransport} {
				if other != tt.sentinel {
					assert.NotErrorIs(t, wrapped, other)
				}
			}
		})
	}
}

func TestInsufficientStockError_As(t *testing.T) {
	err := fmt.Errorf("consume: %w", &InsufficientStockError{Item: "Rice", Requested: decimal.RequireFromString("10.5"), Available: decimal.NewFromInt(3)})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Rice", stockErr.Item)
	assert.True(t, stockErr.Available.Equal(decimal.NewFromInt(3)))
	assert.Contains(t, err.Error(), "requested 10.5, available 3")
}

func TestStoreError(t *testing.T) {
	assert.Nil(t, storeError("load", "item", "1", nil))

	notFound := storeError("load", "inventory item", "abc", pgx.ErrNoRows)
	var nf *NotFoundError
	require.ErrorAs(t, notFound, &nf)
	assert.Equal(t, "inventory item", nf.Entity)
	assert.Equal(t, "abc", nf.ID)

	check := storeError("update", "item", "1", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "inventory_items_invoiced_within_stock"})
	assert.ErrorIs(t, check, ErrValidation)
	assert.Contains(t, check.Error(), "inventory_items_invoiced_within_stock")

	fk := storeError("delete", "item", "1", &pgconn.PgError{Code: pgForeignKeyViolation})
	assert.ErrorIs(t, fk, ErrValidation)

	other := storeError("query", "item", "1", errors.New("boom"))
	assert.EqualError(t, other, "failed to query: boom")

	assert.True(t, isUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: pgUniqueViolation})))
	assert.False(t, isUniqueViolation(errors.New("nope")))
}

func TestTransportError_Unwrap(t *testing.T) {
	root := errors.New("connection refused")
	err := commitError(root)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, root)
}

func TestStoreError_KeepsClassifiedErrors(t *testing.T) {
	nf := &NotFoundError{Entity: "batch category", ID: "c1"}
	assert.Same(t, nf, storeError("create batch", "batch", "", nf).(*NotFoundError))
}
