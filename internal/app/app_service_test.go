package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"himalayan-flavours/internal/ai"
	"himalayan-flavours/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Embedding the interfaces leaves unlisted methods nil; tests only call what they stub.
type fakeInventory struct {
	core.InventoryService
	items []core.InventoryItem
}

func (f *fakeInventory) ListItems(context.Context, core.ItemFilter) ([]core.InventoryItem, error) {
	return f.items, nil
}

type fakeCatalog struct {
	core.CatalogService
	heads []core.AccountingHead
}

func (f *fakeCatalog) ListAccountingHeads(context.Context, core.HeadType) ([]core.AccountingHead, error) {
	return f.heads, nil
}

type mockDrafter struct{ mock.Mock }

func (m *mockDrafter) DraftExpense(ctx context.Context, note string, dc ai.DraftContext) (*ai.ExpenseDraft, error) {
	args := m.Called(ctx, note, dc)
	if v := args.Get(0); v != nil {
		return v.(*ai.ExpenseDraft), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestValidateRequest(t *testing.T) {
	err := validateRequest(ExpenseRequest{Amount: d("5")})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "description", verr.Field)
	assert.Equal(t, "is required", verr.Message)

	err = validateRequest(BatchRequest{Products: []BatchProductRequest{{QuantityProduced: d("1")}}})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "products[0].product_id", verr.Field)

	err = validateRequest(BatchRequest{Status: "archived"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)
	assert.Contains(t, verr.Message, "active completed cancelled")

	err = validateRequest(CustomerRequest{Name: "Ram", Email: "nope"})
	assert.ErrorIs(t, err, core.ErrValidation)

	err = validateRequest(LedgerQuery{From: "15/01/2024"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "from", verr.Field)

	assert.NoError(t, validateRequest(BatchCategoryRequest{Code: "pickle", Prefix: "PKL"}))
	assert.Error(t, validateRequest(BatchCategoryRequest{Code: "pickle", Prefix: "P-K"}))
}

func TestDateRangeQuery(t *testing.T) {
	r, err := DateRangeQuery{}.toRange()
	require.NoError(t, err)
	assert.Nil(t, r.From)
	assert.Nil(t, r.To)

	r, err = DateRangeQuery{From: "2024-01-01", To: "2024-01-31"}.toRange()
	require.NoError(t, err)
	assert.Equal(t, time.January, r.From.Month())
	assert.Equal(t, 31, r.To.Day())

	_, err = DateRangeQuery{From: "2024-02-01", To: "2024-01-01"}.toRange()
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestBuildStockReport(t *testing.T) {
	r := buildStockReport([]core.InventoryItem{
		{Name: "Chilli", CurrentStock: d("10"), InvoicedQuantity: d("4"), UnitCost: d("2.5"), IsBelowMinimum: true},
		{Name: "Jar", CurrentStock: d("100"), InvoicedQuantity: d("0"), UnitCost: d("0.4")},
	})
	assert.Equal(t, 1, r.LowStockCount)
	assert.True(t, d("65").Equal(r.InventoryValue))
	assert.True(t, d("10").Equal(r.ReservedValue))
}

func TestDraftExpense_Unconfigured(t *testing.T) {
	svc := NewAppService(Services{}, nil, zap.NewNop())

	_, err := svc.DraftExpense(context.Background(), DraftExpenseRequest{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.DraftExpense(context.Background(), DraftExpenseRequest{Note: "bought chilli"})
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
}

func TestDraftExpense_ResolvesNames(t *testing.T) {
	headID, itemID := uuid.New(), uuid.New()
	heads := []core.AccountingHead{{ID: headID, Name: "Raw Material", Type: core.HeadTypeExpense}}
	items := []core.InventoryItem{{ID: itemID, Name: "Chilli", Unit: "kg", AvailableForInvoice: d("5")}}

	drafter := &mockDrafter{}
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	drafter.On("DraftExpense", mock.Anything, "20kg chilli 4000", ai.DraftContext{
		AccountingHeads: []string{"Raw Material"},
		InventoryItems:  []string{"Chilli"},
		Today:           today,
	}).Return(&ai.ExpenseDraft{
		Description: "Chilli", Amount: "4000", Quantity: "20", ExpenseDate: "2024-05-01",
		AccountingHead: "raw material", InventoryItem: "Chilli", Confidence: 0.9,
	}, nil)

	svc := &appService{
		svc:     Services{Inventory: &fakeInventory{items: items}, Catalog: &fakeCatalog{heads: heads}},
		drafter: drafter,
		log:     zap.NewNop(),
		now:     func() time.Time { return today },
	}
	res, err := svc.DraftExpense(context.Background(), DraftExpenseRequest{Note: "20kg chilli 4000"})
	require.NoError(t, err)
	drafter.AssertExpectations(t)

	require.NotNil(t, res.Request.AccountingHeadID)
	assert.Equal(t, headID, *res.Request.AccountingHeadID)
	require.NotNil(t, res.Request.InventoryItemID)
	assert.Equal(t, itemID, *res.Request.InventoryItemID)
	assert.Equal(t, "kg", res.Request.Unit, "unit falls back to the item's unit")
	assert.True(t, d("4000").Equal(res.Request.Amount))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "only 5 available")
}

func TestResolveDraft_UnknownNames(t *testing.T) {
	res := resolveDraft(&ai.ExpenseDraft{
		Description: "Diesel", Amount: "900", AccountingHead: "Fuel", InventoryItem: "Diesel",
	}, nil, nil)
	assert.Nil(t, res.Request.AccountingHeadID)
	assert.Nil(t, res.Request.InventoryItemID)
	assert.Nil(t, res.Request.Quantity)
	assert.Len(t, res.Warnings, 2)
}
