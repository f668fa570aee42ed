package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"himalayan-flavours/internal/app"
	"himalayan-flavours/internal/core"
)

type mockService struct {
	mock.Mock
	app.ApplicationService
}

func (m *mockService) GetStockReport(ctx context.Context) (*app.StockReportResult, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*app.StockReportResult)
	return r, args.Error(1)
}

func (m *mockService) VerifyInvariants(ctx context.Context) (*app.VerifyResult, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*app.VerifyResult)
	return r, args.Error(1)
}

func (m *mockService) GetSummary(ctx context.Context, q app.DateRangeQuery) (*core.Summary, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).(*core.Summary)
	return r, args.Error(1)
}

func (m *mockService) DraftExpense(ctx context.Context, req app.DraftExpenseRequest) (*app.ExpenseDraftResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*app.ExpenseDraftResult)
	return r, args.Error(1)
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), &mockService{}, []string{"frobnicate"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Commands:")

	err = Run(context.Background(), &mockService{}, nil, &out)
	require.Error(t, err)
}

func TestRun_StockLowFilter(t *testing.T) {
	svc := &mockService{}
	svc.On("GetStockReport", mock.Anything).Return(&app.StockReportResult{
		Items: []core.InventoryItem{
			{Name: "Chili flakes", Unit: "kg", CurrentStock: decimal.NewFromInt(2), IsBelowMinimum: true},
			{Name: "Glass jars", Unit: "pcs", CurrentStock: decimal.NewFromInt(400)},
		},
		LowStockCount:  1,
		InventoryValue: decimal.RequireFromString("1234.5"),
	}, nil)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, []string{"stock", "--low"}, &out))

	assert.Contains(t, out.String(), "Chili flakes")
	assert.NotContains(t, out.String(), "Glass jars")
	assert.Contains(t, out.String(), "1234.50")
}

func TestRun_VerifyInconsistent(t *testing.T) {
	svc := &mockService{}
	svc.On("VerifyInvariants", mock.Anything).Return(&app.VerifyResult{
		Violations: []core.InvariantViolation{{Check: "stock_nonnegative", Entity: "inventory item", ID: "abc", Detail: "Jars: current_stock=-1"}},
	}, nil)

	var out bytes.Buffer
	err := Run(context.Background(), svc, []string{"verify"}, &out)

	assert.ErrorIs(t, err, ErrInconsistent)
	assert.Contains(t, out.String(), "[stock_nonnegative] inventory item abc")
}

func TestRun_SummaryDates(t *testing.T) {
	svc := &mockService{}
	svc.On("GetSummary", mock.Anything, app.DateRangeQuery{From: "2024-01-01", To: "2024-03-31"}).
		Return(&core.Summary{TotalIncome: decimal.NewFromInt(1000), TotalExpenses: decimal.NewFromInt(400)}, nil)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, []string{"summary", "2024-01-01", "2024-03-31"}, &out))
	assert.Contains(t, out.String(), "1000.00")
	svc.AssertExpectations(t)
}

func TestRun_DraftJoinsArgs(t *testing.T) {
	svc := &mockService{}
	svc.On("DraftExpense", mock.Anything, app.DraftExpenseRequest{Note: "bought 20kg chili for 4000"}).
		Return(&app.ExpenseDraftResult{
			Request:  app.ExpenseRequest{Description: "Chili", Amount: decimal.NewFromInt(4000)},
			Warnings: []string{`accounting head "Spices" not found`},
		}, nil)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, []string{"draft", "bought", "20kg", "chili", "for", "4000"}, &out))
	assert.Contains(t, out.String(), "warning: accounting head")
	assert.Contains(t, out.String(), `"description": "Chili"`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
