package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyCostingPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   CostingPolicy
		oldQty   string
		oldCost  string
		qty      string
		unitCost string
		want     string
	}{
		{"weighted average blends", CostingWeightedAverage, "10", "100", "10", "200", "150"},
		{"weighted average from empty", CostingWeightedAverage, "0", "0", "5", "42.5", "42.5"},
		{"weighted average uneven", CostingWeightedAverage, "3", "10", "1", "20", "12.5"},
		{"weighted average rounds to store scale", CostingWeightedAverage, "2", "1", "1", "0", "0.6667"},
		{"last cost replaces", CostingLastCost, "10", "100", "1", "80", "80"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyCostingPolicy(tt.policy, d(tt.oldQty), d(tt.oldCost), d(tt.qty), d(tt.unitCost))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseCostingPolicy(t *testing.T) {
	p, err := ParseCostingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CostingWeightedAverage, p)

	p, err = ParseCostingPolicy(" Last_Cost ")
	require.NoError(t, err)
	assert.Equal(t, CostingLastCost, p)

	_, err = ParseCostingPolicy("fifo")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInventoryItemDerive(t *testing.T) {
	item := InventoryItem{CurrentStock: d("100"), InvoicedQuantity: d("80"), MinimumStock: d("100")}
	item.derive()
	assert.True(t, item.AvailableForConsumption.Equal(d("100")))
	assert.True(t, item.AvailableForInvoice.Equal(d("20")))
	assert.True(t, item.IsBelowMinimum)

	item.CurrentStock = d("101")
	item.derive()
	assert.False(t, item.IsBelowMinimum)
}
