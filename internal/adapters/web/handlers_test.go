package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"himalayan-flavours/internal/app"
	"himalayan-flavours/internal/core"
	"himalayan-flavours/internal/subscribers"
)

// mockService stubs the methods a test sets expectations on. Calling any
// other method panics through the nil embedded interface.
type mockService struct {
	mock.Mock
	app.ApplicationService
}

func (m *mockService) GetInventoryItem(ctx context.Context, id uuid.UUID) (*core.InventoryItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*core.InventoryItem)
	return item, args.Error(1)
}

func (m *mockService) ListInventoryItems(ctx context.Context, q app.ItemQuery) (*app.ItemListResult, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(*app.ItemListResult)
	return res, args.Error(1)
}

func (m *mockService) CreateExpense(ctx context.Context, req app.ExpenseRequest) (*core.Expense, error) {
	args := m.Called(ctx, req)
	e, _ := args.Get(0).(*core.Expense)
	return e, args.Error(1)
}

func (m *mockService) AddConsumption(ctx context.Context, req app.ConsumptionRequest) (*core.BatchInventoryConsumption, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*core.BatchInventoryConsumption)
	return c, args.Error(1)
}

func (m *mockService) ListExpenses(ctx context.Context, q app.LedgerQuery) ([]core.Expense, error) {
	args := m.Called(ctx, q)
	list, _ := args.Get(0).([]core.Expense)
	return list, args.Error(1)
}

func (m *mockService) ListBatchProfitLoss(ctx context.Context) ([]core.BatchProfitLoss, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]core.BatchProfitLoss)
	return list, args.Error(1)
}

func (m *mockService) DraftExpense(ctx context.Context, req app.DraftExpenseRequest) (*app.ExpenseDraftResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*app.ExpenseDraftResult)
	return res, args.Error(1)
}

func (m *mockService) VerifyInvariants(ctx context.Context) (*app.VerifyResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*app.VerifyResult)
	return res, args.Error(1)
}

func (m *mockService) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func newTestHandler(t *testing.T, svc app.ApplicationService, mutate ...func(*Config)) (http.Handler, *subscribers.Store) {
	t.Helper()
	cfg := Config{MaxBodySize: 1 << 10}
	for _, fn := range mutate {
		fn(&cfg)
	}
	subs := subscribers.NewStore(filepath.Join(t.TempDir(), "emails.json"))
	return NewHandler(svc, subs, cfg, zaptest.NewLogger(t)), subs
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &mockService{})
	w := do(h, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDEcho(t *testing.T) {
	h, _ := newTestHandler(t, &mockService{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "<script>")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get("X-Request-ID"))
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &core.ValidationError{Field: "amount", Message: "must be positive"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", &core.NotFoundError{Entity: "inventory item", ID: "x"}, http.StatusNotFound, "NOT_FOUND"},
		{"insufficient stock", &core.InsufficientStockError{Item: "Chili", Requested: decimal.NewFromInt(5), Available: decimal.NewFromInt(1)}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"invoice capacity", &core.InvoiceCapacityError{Item: "Jar", Requested: decimal.NewFromInt(5), Available: decimal.NewFromInt(1)}, http.StatusConflict, "INVOICE_CAPACITY_EXCEEDED"},
		{"store down", &core.TransportError{Op: "connect", Err: errors.New("refused")}, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"assistant off", app.ErrAssistantUnavailable, http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE"},
		{"wrapped", fmt.Errorf("failed to reserve: %w", core.ErrInvoiceCapacity), http.StatusConflict, "INVOICE_CAPACITY_EXCEEDED"},
		{"unknown", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			svc.On("CreateExpense", mock.Anything, mock.Anything).Return(nil, tt.err)
			h, _ := newTestHandler(t, svc)

			w := do(h, http.MethodPost, "/api/expenses", `{"description":"jars","amount":"10"}`)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error, "relation")
			}
		})
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	svc := &mockService{}
	svc.On("AddConsumption", mock.Anything, mock.Anything).
		Return(nil, &core.ValidationError{Field: "quantity_consumed", Message: "must be positive"})
	h, _ := newTestHandler(t, svc)

	w := do(h, http.MethodPost, "/api/consumption", `{"quantity_consumed":"0"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "quantity_consumed", decodeError(t, w).Field)
}

func TestCreateReturns201(t *testing.T) {
	svc := &mockService{}
	id := uuid.New()
	svc.On("CreateExpense", mock.Anything, mock.MatchedBy(func(req app.ExpenseRequest) bool {
		return req.Description == "Glass jars" && req.Amount.Equal(decimal.NewFromInt(500))
	})).Return(&core.Expense{ID: id, Description: "Glass jars", Amount: decimal.NewFromInt(500)}, nil)
	h, _ := newTestHandler(t, svc)

	w := do(h, http.MethodPost, "/api/expenses", `{"description":"Glass jars","amount":"500"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var got core.Expense
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	svc.AssertExpectations(t)
}

func TestBadInput(t *testing.T) {
	h, _ := newTestHandler(t, &mockService{})

	t.Run("malformed json", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/expenses", `{"description":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, w).Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/expenses", `{"description":"`+strings.Repeat("x", 2048)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "REQUEST_TOO_LARGE", decodeError(t, w).Code)
	})

	t.Run("bad path uuid", func(t *testing.T) {
		w := do(h, http.MethodGet, "/api/inventory/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		assert.Equal(t, "id", resp.Field)
	})

	t.Run("bad query uuid", func(t *testing.T) {
		w := do(h, http.MethodGet, "/api/expenses?batch_id=nope", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "batch_id", decodeError(t, w).Field)
	})

	t.Run("bad low_stock flag", func(t *testing.T) {
		w := do(h, http.MethodGet, "/api/inventory?low_stock=maybe", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLedgerQueryParams(t *testing.T) {
	svc := &mockService{}
	batchID := uuid.New()
	svc.On("ListExpenses", mock.Anything, mock.MatchedBy(func(q app.LedgerQuery) bool {
		return q.BatchID != nil && *q.BatchID == batchID && q.From == "2024-01-01" && q.InventoryItemID == nil
	})).Return(nil, nil)
	h, _ := newTestHandler(t, svc)

	w := do(h, http.MethodGet, "/api/expenses?batch_id="+batchID.String()+"&from=2024-01-01", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestListInventoryLowStock(t *testing.T) {
	svc := &mockService{}
	svc.On("ListInventoryItems", mock.Anything, app.ItemQuery{Search: "jar", LowStockOnly: true}).
		Return(&app.ItemListResult{Items: []core.InventoryItem{}}, nil)
	h, _ := newTestHandler(t, svc)

	w := do(h, http.MethodGet, "/api/inventory?search=jar&low_stock=true", "")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestDeleteReturns204(t *testing.T) {
	svc := &mockService{}
	id := uuid.New()
	svc.On("DeleteBatch", mock.Anything, id).Return(nil)
	h, _ := newTestHandler(t, svc)

	w := do(h, http.MethodDelete, "/api/batches/"+id.String(), "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestBatchProfitCSV(t *testing.T) {
	svc := &mockService{}
	svc.On("ListBatchProfitLoss", mock.Anything).Return([]core.BatchProfitLoss{{
		BatchNumber:    "PKL-0001",
		BatchName:      "=HYPERLINK(\"x\")",
		Status:         core.BatchStatus("active"),
		ProductionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		TotalExpenses:  decimal.NewFromInt(500),
		TotalIncome:    decimal.NewFromInt(800),
		TotalCost:      decimal.NewFromInt(500),
		NetProfit:      decimal.NewFromInt(300),
		ProfitMargin:   decimal.NewFromInt(60),
	}}, nil)
	h, _ := newTestHandler(t, svc)

	w := do(h, http.MethodGet, "/api/reports/batches?format=csv", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Batch,Name,Status"))
	assert.Contains(t, lines[1], `PKL-0001,"'=HYPERLINK(""x"")",active,2024-03-01,500.00`)
	assert.Contains(t, lines[1], "300.00,60.00")
}

func TestCSVSafe(t *testing.T) {
	assert.Equal(t, "", csvSafe(""))
	assert.Equal(t, "Chili oil", csvSafe("Chili oil"))
	for _, in := range []string{"=1+1", "+1", "-1", "@SUM(A1)", "\tx", "\rx"} {
		assert.Equal(t, "'"+in, csvSafe(in), "input %q", in)
	}
}

func TestVerifyHeader(t *testing.T) {
	svc := &mockService{}
	svc.On("VerifyInvariants", mock.Anything).Return(&app.VerifyResult{
		Consistent: false,
		Violations: []core.InvariantViolation{{Check: "stock_nonnegative", ID: "x"}},
	}, nil)
	h, _ := newTestHandler(t, svc)

	w := do(h, http.MethodGet, "/api/reports/verify", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Ledger-Violations"))
}

func TestDraftExpenseUnavailable(t *testing.T) {
	svc := &mockService{}
	svc.On("DraftExpense", mock.Anything, app.DraftExpenseRequest{Note: "bought jars"}).
		Return(nil, app.ErrAssistantUnavailable)
	h, _ := newTestHandler(t, svc)

	w := do(h, http.MethodPost, "/api/expenses/draft", `{"note":"bought jars"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "ASSISTANT_UNAVAILABLE", decodeError(t, w).Code)
}

func TestRecovererReturns500(t *testing.T) {
	// GetStockReport is not stubbed, so the nil embedded interface panics.
	h, _ := newTestHandler(t, &mockService{})

	w := do(h, http.MethodGet, "/api/inventory/report", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w).Code)
}

func TestCORS(t *testing.T) {
	h, _ := newTestHandler(t, &mockService{}, func(c *Config) {
		c.AllowedOrigins = []string{"https://shop.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribe(t *testing.T) {
	h, subs := newTestHandler(t, &mockService{})

	w := do(h, http.MethodPost, "/api/emails", `{"email":"Chef@Example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"email":"chef@example.com","created":true}`, w.Body.String())

	w = do(h, http.MethodPost, "/api/emails", `{"email":"chef@example.com "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"chef@example.com","created":false}`, w.Body.String())

	w = do(h, http.MethodPost, "/api/emails", `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decodeError(t, w).Field)

	list, err := subs.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shop</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	h, _ := newTestHandler(t, &mockService{}, func(c *Config) { c.StaticDir = dir })

	w := do(h, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "console.log")

	w = do(h, http.MethodGet, "/products/chili-oil", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shop")

	w = do(h, http.MethodGet, "/assets/missing.css", "")
	assert.Contains(t, w.Body.String(), "shop")

	w = do(h, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}
