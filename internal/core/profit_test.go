package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMarginPercent(t *testing.T) {
	assert.True(t, MarginPercent(d("300"), d("500")).Equal(d("60")))
	assert.True(t, MarginPercent(d("-50"), d("150")).Equal(d("-33.33")))
	assert.True(t, MarginPercent(d("500"), decimal.Zero).IsZero())
}

func TestBatchProfitLoss_ExpensesAndIncomeOnly(t *testing.T) {
	p := BatchProfitLoss{TotalExpenses: d("500"), TotalIncome: d("800")}
	p.finalize(true)

	assert.True(t, p.TotalCost.Equal(d("500")))
	assert.True(t, p.NetProfit.Equal(d("300")))
	assert.True(t, p.ProfitMargin.Equal(d("60")))
}

func TestBatchProfitLoss_InventoryCostPolicy(t *testing.T) {
	loaded := BatchProfitLoss{TotalExpenses: d("500"), TotalIncome: d("800"), InventoryCost: d("100")}
	loaded.finalize(true)
	assert.True(t, loaded.TotalCost.Equal(d("600")))
	assert.True(t, loaded.NetProfit.Equal(d("200")))
	assert.True(t, loaded.ProfitMargin.Equal(d("33.33")))
	assert.True(t, loaded.IncludesInventoryCost)

	direct := BatchProfitLoss{TotalExpenses: d("500"), TotalIncome: d("800"), InventoryCost: d("100")}
	direct.finalize(false)
	assert.True(t, direct.TotalCost.Equal(d("500")))
	assert.True(t, direct.NetProfit.Equal(d("300")))
	assert.True(t, direct.InventoryCost.Equal(d("100")), "component sum stays visible")
}

func TestBatchProfitLoss_NoCostNoMargin(t *testing.T) {
	p := BatchProfitLoss{TotalIncome: d("250")}
	p.finalize(true)
	assert.True(t, p.NetProfit.Equal(d("250")))
	assert.True(t, p.ProfitMargin.IsZero())
}

func TestSummary_Margin(t *testing.T) {
	even := Summary{TotalExpenses: d("10000"), TotalIncome: d("10000")}
	even.finalize()
	assert.True(t, even.NetProfit.IsZero())
	assert.True(t, even.ProfitMargin.IsZero())

	noExpenses := Summary{TotalIncome: d("500")}
	noExpenses.finalize()
	assert.True(t, noExpenses.NetProfit.Equal(d("500")))
	assert.True(t, noExpenses.ProfitMargin.IsZero())
}

func TestProductCostLine_AverageUnitCost(t *testing.T) {
	l := ProductCostLine{TotalCost: d("90"), TotalQuantity: d("12")}
	l.finalize()
	assert.True(t, l.AverageUnitCost.Equal(d("7.5")))

	empty := ProductCostLine{TotalCost: d("90")}
	empty.finalize()
	assert.True(t, empty.AverageUnitCost.IsZero())
}

func TestProductProfitLoss(t *testing.T) {
	p := ProductProfitLoss{TotalExpenses: d("400"), TotalIncome: d("1000")}
	p.finalize()
	assert.True(t, p.NetProfit.Equal(d("600")))
	assert.True(t, p.ProfitMargin.Equal(d("150")))
}
