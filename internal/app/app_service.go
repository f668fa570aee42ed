package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"himalayan-flavours/internal/ai"
	"himalayan-flavours/internal/config"
	"himalayan-flavours/internal/core"
)

// ErrAssistantUnavailable is returned by DraftExpense when no model is configured.
var ErrAssistantUnavailable = errors.New("expense drafting assistant is not configured")

// ExpenseDrafter reads purchase notes. *ai.Agent satisfies it.
type ExpenseDrafter interface {
	DraftExpense(ctx context.Context, note string, dc ai.DraftContext) (*ai.ExpenseDraft, error)
}

// Services bundles the core services the application layer orchestrates.
type Services struct {
	Pool        *pgxpool.Pool
	Inventory   core.InventoryService
	Batches     core.BatchService
	Consumption core.ConsumptionService
	Expenses    core.ExpenseService
	Income      core.IncomeService
	Catalog     core.CatalogService
	Reports     core.ReportingService
}

// NewServices wires every core service over pool with the accounting policies from cfg.
func NewServices(pool *pgxpool.Pool, cfg config.AccountingConfig, log *zap.Logger) (Services, error) {
	policy, err := core.ParseCostingPolicy(cfg.CostingPolicy)
	if err != nil {
		return Services{}, err
	}
	inventory := core.NewInventoryService(pool, policy, log)
	return Services{
		Pool:        pool,
		Inventory:   inventory,
		Batches:     core.NewBatchService(pool, inventory, log),
		Consumption: core.NewConsumptionService(pool, inventory, log),
		Expenses:    core.NewExpenseService(pool, inventory, log),
		Income:      core.NewIncomeService(pool, log),
		Catalog:     core.NewCatalogService(pool),
		Reports:     core.NewReportingService(pool, cfg.IncludeConsumptionInBatchCost),
	}, nil
}

type appService struct {
	svc     Services
	drafter ExpenseDrafter
	log     *zap.Logger
	now     func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
// drafter may be nil, in which case DraftExpense reports ErrAssistantUnavailable.
func NewAppService(svc Services, drafter ExpenseDrafter, log *zap.Logger) ApplicationService {
	return &appService{svc: svc, drafter: drafter, log: log.Named("app"), now: time.Now}
}

// ── Inventory ─────────────────────────────────────────────────────────────────

func (s *appService) ListInventoryItems(ctx context.Context, q ItemQuery) (*ItemListResult, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	items, err := s.svc.Inventory.ListItems(ctx, core.ItemFilter{Search: q.Search, LowStockOnly: q.LowStockOnly})
	if err != nil {
		return nil, err
	}
	return &ItemListResult{Items: items}, nil
}

func (s *appService) GetInventoryItem(ctx context.Context, id uuid.UUID) (*core.InventoryItem, error) {
	return s.svc.Inventory.GetItem(ctx, id)
}

func (s *appService) CreateInventoryItem(ctx context.Context, req ItemRequest) (*core.InventoryItem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Inventory.CreateItem(ctx, req.toInput())
}

func (s *appService) UpdateInventoryItem(ctx context.Context, id uuid.UUID, req ItemRequest) (*core.InventoryItem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Inventory.UpdateItem(ctx, id, req.toInput())
}

func (s *appService) DeleteInventoryItem(ctx context.Context, id uuid.UUID) error {
	return s.svc.Inventory.DeleteItem(ctx, id)
}

func (s *appService) AddStock(ctx context.Context, id uuid.UUID, req AddStockRequest) (*core.InventoryItem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Inventory.AddStock(ctx, id, req.Quantity, req.UnitCost, core.MovementMeta{Notes: req.Notes})
}

func (s *appService) ReserveStock(ctx context.Context, id uuid.UUID, req QuantityRequest) (*core.InventoryItem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Inventory.AddInvoicedQuantity(ctx, id, req.Quantity, core.MovementMeta{Notes: req.Notes})
}

func (s *appService) ReleaseStock(ctx context.Context, id uuid.UUID, req QuantityRequest) (*core.InventoryItem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Inventory.ReleaseInvoicedQuantity(ctx, id, req.Quantity, core.MovementMeta{Notes: req.Notes})
}

func (s *appService) GetInventoryMovements(ctx context.Context, id uuid.UUID) ([]core.InventoryMovement, error) {
	if _, err := s.svc.Inventory.GetItem(ctx, id); err != nil {
		return nil, err
	}
	return s.svc.Inventory.GetMovements(ctx, id)
}

func (s *appService) GetStockReport(ctx context.Context) (*StockReportResult, error) {
	items, err := s.svc.Inventory.ListItems(ctx, core.ItemFilter{})
	if err != nil {
		return nil, err
	}
	return buildStockReport(items), nil
}

func buildStockReport(items []core.InventoryItem) *StockReportResult {
	r := &StockReportResult{Items: items, InventoryValue: decimal.Zero, ReservedValue: decimal.Zero}
	for _, it := range items {
		if it.IsBelowMinimum {
			r.LowStockCount++
		}
		r.InventoryValue = r.InventoryValue.Add(it.CurrentStock.Mul(it.UnitCost))
		r.ReservedValue = r.ReservedValue.Add(it.InvoicedQuantity.Mul(it.UnitCost))
	}
	return r
}

// ── Batches ───────────────────────────────────────────────────────────────────

func (s *appService) ListBatches(ctx context.Context, q BatchQuery) ([]core.Batch, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	return s.svc.Batches.GetAllBatches(ctx, core.BatchFilter{
		Status:     core.BatchStatus(q.Status),
		CategoryID: q.CategoryID,
		Search:     q.Search,
	})
}

func (s *appService) GetBatch(ctx context.Context, id uuid.UUID) (*core.Batch, error) {
	return s.svc.Batches.GetBatchByID(ctx, id)
}

func (s *appService) CreateBatch(ctx context.Context, req BatchRequest) (*core.Batch, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Batches.CreateBatch(ctx, in)
}

func (s *appService) UpdateBatch(ctx context.Context, id uuid.UUID, req BatchRequest) (*core.Batch, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Batches.UpdateBatch(ctx, id, in)
}

func (s *appService) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	return s.svc.Batches.DeleteBatch(ctx, id)
}

func (s *appService) AddBatchProduct(ctx context.Context, batchID uuid.UUID, req BatchProductRequest) (*core.BatchProduct, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Batches.AddBatchProduct(ctx, batchID, req.toInput())
}

func (s *appService) RemoveBatchProduct(ctx context.Context, batchID, batchProductID uuid.UUID) error {
	return s.svc.Batches.RemoveBatchProduct(ctx, batchID, batchProductID)
}

func (s *appService) ListBatchCategories(ctx context.Context) ([]core.BatchCategory, error) {
	return s.svc.Batches.ListBatchCategories(ctx)
}

func (s *appService) CreateBatchCategory(ctx context.Context, req BatchCategoryRequest) (*core.BatchCategory, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Batches.CreateBatchCategory(ctx, req.Code, req.Name, req.Prefix)
}

// ── Batch inventory consumption ───────────────────────────────────────────────

func (s *appService) AddConsumption(ctx context.Context, req ConsumptionRequest) (*core.BatchInventoryConsumption, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Consumption.AddBatchInventoryConsumption(ctx, in)
}

func (s *appService) UpdateConsumption(ctx context.Context, id uuid.UUID, req UpdateConsumptionRequest) (*core.BatchInventoryConsumption, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Consumption.UpdateBatchInventoryConsumption(ctx, id, in)
}

func (s *appService) DeleteConsumption(ctx context.Context, id uuid.UUID) error {
	return s.svc.Consumption.DeleteBatchInventoryConsumption(ctx, id)
}

func (s *appService) ListBatchConsumption(ctx context.Context, batchID uuid.UUID) ([]core.BatchInventoryConsumption, error) {
	return s.svc.Consumption.GetBatchInventoryConsumption(ctx, batchID)
}

func (s *appService) ListItemConsumption(ctx context.Context, itemID uuid.UUID) ([]core.BatchInventoryConsumption, error) {
	return s.svc.Consumption.GetInventoryConsumptionRecords(ctx, itemID)
}

// ── Expenses and income ───────────────────────────────────────────────────────

func (s *appService) ListExpenses(ctx context.Context, q LedgerQuery) ([]core.Expense, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	f, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	return s.svc.Expenses.GetExpenses(ctx, f)
}

func (s *appService) GetExpense(ctx context.Context, id uuid.UUID) (*core.Expense, error) {
	return s.svc.Expenses.GetExpense(ctx, id)
}

func (s *appService) CreateExpense(ctx context.Context, req ExpenseRequest) (*core.Expense, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Expenses.CreateExpense(ctx, in)
}

func (s *appService) UpdateExpense(ctx context.Context, id uuid.UUID, req ExpenseRequest) (*core.Expense, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Expenses.UpdateExpense(ctx, id, in)
}

func (s *appService) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	return s.svc.Expenses.DeleteExpense(ctx, id)
}

func (s *appService) ListIncome(ctx context.Context, q LedgerQuery) ([]core.Income, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	f, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	return s.svc.Income.GetIncome(ctx, f)
}

func (s *appService) GetIncome(ctx context.Context, id uuid.UUID) (*core.Income, error) {
	return s.svc.Income.GetIncomeByID(ctx, id)
}

func (s *appService) CreateIncome(ctx context.Context, req IncomeRequest) (*core.Income, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Income.CreateIncome(ctx, in)
}

func (s *appService) UpdateIncome(ctx context.Context, id uuid.UUID, req IncomeRequest) (*core.Income, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Income.UpdateIncome(ctx, id, in)
}

func (s *appService) DeleteIncome(ctx context.Context, id uuid.UUID) error {
	return s.svc.Income.DeleteIncome(ctx, id)
}

func (s *appService) BackfillInventoryLinks(ctx context.Context) (*core.BackfillReport, error) {
	return s.svc.Expenses.BackfillInventoryLinks(ctx)
}

// ── Reference data ────────────────────────────────────────────────────────────

func (s *appService) ListAccountingHeads(ctx context.Context, headType string) ([]core.AccountingHead, error) {
	return s.svc.Catalog.ListAccountingHeads(ctx, core.HeadType(headType))
}

func (s *appService) CreateAccountingHead(ctx context.Context, req AccountingHeadRequest) (*core.AccountingHead, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Type == "" {
		return nil, &core.ValidationError{Field: "type", Message: "is required"}
	}
	return s.svc.Catalog.CreateAccountingHead(ctx, req.Name, core.HeadType(req.Type), req.Description)
}

func (s *appService) UpdateAccountingHead(ctx context.Context, id uuid.UUID, req AccountingHeadRequest) (*core.AccountingHead, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Catalog.UpdateAccountingHead(ctx, id, req.Name, req.Description)
}

func (s *appService) DeleteAccountingHead(ctx context.Context, id uuid.UUID) error {
	return s.svc.Catalog.DeleteAccountingHead(ctx, id)
}

func (s *appService) ListProducts(ctx context.Context) ([]core.Product, error) {
	return s.svc.Catalog.ListProducts(ctx)
}

func (s *appService) CreateProduct(ctx context.Context, req ProductRequest) (*core.Product, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Catalog.CreateProduct(ctx, req.Name, emptyToNil(req.SKU), req.Unit)
}

func (s *appService) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	return s.svc.Catalog.ListCustomers(ctx)
}

func (s *appService) CreateCustomer(ctx context.Context, req CustomerRequest) (*core.Customer, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.svc.Catalog.CreateCustomer(ctx, req.Name, req.Email, req.Phone)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) GetBatchProfitLoss(ctx context.Context, batchID uuid.UUID) (*core.BatchProfitLoss, error) {
	return s.svc.Reports.GetBatchProfitLoss(ctx, batchID)
}

func (s *appService) ListBatchProfitLoss(ctx context.Context) ([]core.BatchProfitLoss, error) {
	return s.svc.Reports.ListBatchProfitLoss(ctx)
}

func (s *appService) GetSummary(ctx context.Context, q DateRangeQuery) (*core.Summary, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	r, err := q.toRange()
	if err != nil {
		return nil, err
	}
	return s.svc.Reports.GetSummary(ctx, r)
}

func (s *appService) GetProductCostAnalysis(ctx context.Context, q ProductCostQuery) ([]core.ProductCostLine, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	r, err := q.toRange()
	if err != nil {
		return nil, err
	}
	return s.svc.Reports.GetProductCostAnalysis(ctx, core.ProductCostFilter{
		ProductID:        q.ProductID,
		AccountingHeadID: q.AccountingHeadID,
		DateRange:        r,
	})
}

func (s *appService) GetProductProfitLoss(ctx context.Context) ([]core.ProductProfitLoss, error) {
	return s.svc.Reports.GetProductProfitLoss(ctx)
}

func (s *appService) GetAccountingHeadSummary(ctx context.Context) ([]core.AccountingHeadSummary, error) {
	return s.svc.Reports.GetAccountingHeadSummary(ctx)
}

func (s *appService) VerifyInvariants(ctx context.Context) (*VerifyResult, error) {
	violations, err := core.VerifyInvariants(ctx, s.svc.Pool)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		s.log.Warn("ledger invariants violated", zap.Int("violations", len(violations)))
	}
	if violations == nil {
		violations = []core.InvariantViolation{}
	}
	return &VerifyResult{Consistent: len(violations) == 0, Violations: violations}, nil
}

// ── Drafting assistant ────────────────────────────────────────────────────────

func (s *appService) DraftExpense(ctx context.Context, req DraftExpenseRequest) (*ExpenseDraftResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if s.drafter == nil {
		return nil, ErrAssistantUnavailable
	}

	heads, err := s.svc.Catalog.ListAccountingHeads(ctx, core.HeadTypeExpense)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounting heads: %w", err)
	}
	items, err := s.svc.Inventory.ListItems(ctx, core.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory items: %w", err)
	}

	dc := ai.DraftContext{Today: s.now()}
	for _, h := range heads {
		dc.AccountingHeads = append(dc.AccountingHeads, h.Name)
	}
	for _, it := range items {
		dc.InventoryItems = append(dc.InventoryItems, it.Name)
	}

	draft, err := s.drafter.DraftExpense(ctx, req.Note, dc)
	if err != nil {
		return nil, err
	}
	return resolveDraft(draft, heads, items), nil
}

// resolveDraft maps the names in draft onto stored records. Names that match
// nothing are dropped with a warning rather than guessed.
func resolveDraft(draft *ai.ExpenseDraft, heads []core.AccountingHead, items []core.InventoryItem) *ExpenseDraftResult {
	res := &ExpenseDraftResult{
		Draft: draft,
		Request: ExpenseRequest{
			Description: draft.Description,
			VendorName:  draft.VendorName,
			Amount:      draft.AmountDecimal(),
			Quantity:    draft.QuantityDecimal(),
			Unit:        draft.Unit,
			ExpenseDate: draft.ExpenseDate,
		},
		Warnings: []string{},
	}

	if draft.AccountingHead != "" {
		for _, h := range heads {
			if strings.EqualFold(h.Name, draft.AccountingHead) {
				id := h.ID
				res.Request.AccountingHeadID = &id
				break
			}
		}
		if res.Request.AccountingHeadID == nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("accounting head %q not found", draft.AccountingHead))
		}
	}

	if draft.InventoryItem != "" {
		for _, it := range items {
			if strings.EqualFold(it.Name, draft.InventoryItem) {
				id := it.ID
				res.Request.InventoryItemID = &id
				if res.Request.Unit == "" {
					res.Request.Unit = it.Unit
				}
				if it.AvailableForInvoice.LessThan(decimalOrZero(res.Request.Quantity)) {
					res.Warnings = append(res.Warnings, fmt.Sprintf(
						"%s has only %s available to invoice", it.Name, it.AvailableForInvoice))
				}
				break
			}
		}
		if res.Request.InventoryItemID == nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("inventory item %q not found", draft.InventoryItem))
		}
	}
	return res
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
