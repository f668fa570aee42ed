package app

import (
	"context"

	"github.com/google/uuid"

	"himalayan-flavours/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ── Inventory ────────────────────────────────────────────────────────────

	ListInventoryItems(ctx context.Context, q ItemQuery) (*ItemListResult, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (*core.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, req ItemRequest) (*core.InventoryItem, error)
	// UpdateInventoryItem changes descriptive fields only. Stock moves through AddStock.
	UpdateInventoryItem(ctx context.Context, id uuid.UUID, req ItemRequest) (*core.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id uuid.UUID) error
	// AddStock records a receipt and re-costs the item under the configured policy.
	AddStock(ctx context.Context, id uuid.UUID, req AddStockRequest) (*core.InventoryItem, error)
	// ReserveStock and ReleaseStock adjust the invoiced quantity directly.
	ReserveStock(ctx context.Context, id uuid.UUID, req QuantityRequest) (*core.InventoryItem, error)
	ReleaseStock(ctx context.Context, id uuid.UUID, req QuantityRequest) (*core.InventoryItem, error)
	GetInventoryMovements(ctx context.Context, id uuid.UUID) ([]core.InventoryMovement, error)
	// GetStockReport returns every item with low-stock and valuation totals.
	GetStockReport(ctx context.Context) (*StockReportResult, error)

	// ── Batches ──────────────────────────────────────────────────────────────

	ListBatches(ctx context.Context, q BatchQuery) ([]core.Batch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*core.Batch, error)
	CreateBatch(ctx context.Context, req BatchRequest) (*core.Batch, error)
	UpdateBatch(ctx context.Context, id uuid.UUID, req BatchRequest) (*core.Batch, error)
	// DeleteBatch returns every consumed quantity to stock, then removes the batch.
	DeleteBatch(ctx context.Context, id uuid.UUID) error
	AddBatchProduct(ctx context.Context, batchID uuid.UUID, req BatchProductRequest) (*core.BatchProduct, error)
	RemoveBatchProduct(ctx context.Context, batchID, batchProductID uuid.UUID) error
	ListBatchCategories(ctx context.Context) ([]core.BatchCategory, error)
	CreateBatchCategory(ctx context.Context, req BatchCategoryRequest) (*core.BatchCategory, error)

	// ── Batch inventory consumption ──────────────────────────────────────────

	AddConsumption(ctx context.Context, req ConsumptionRequest) (*core.BatchInventoryConsumption, error)
	UpdateConsumption(ctx context.Context, id uuid.UUID, req UpdateConsumptionRequest) (*core.BatchInventoryConsumption, error)
	DeleteConsumption(ctx context.Context, id uuid.UUID) error
	ListBatchConsumption(ctx context.Context, batchID uuid.UUID) ([]core.BatchInventoryConsumption, error)
	ListItemConsumption(ctx context.Context, itemID uuid.UUID) ([]core.BatchInventoryConsumption, error)

	// ── Expenses and income ──────────────────────────────────────────────────

	ListExpenses(ctx context.Context, q LedgerQuery) ([]core.Expense, error)
	GetExpense(ctx context.Context, id uuid.UUID) (*core.Expense, error)
	// CreateExpense records the expense and, when it names an inventory item and a
	// quantity, reserves that quantity in the same transaction.
	CreateExpense(ctx context.Context, req ExpenseRequest) (*core.Expense, error)
	UpdateExpense(ctx context.Context, id uuid.UUID, req ExpenseRequest) (*core.Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	ListIncome(ctx context.Context, q LedgerQuery) ([]core.Income, error)
	GetIncome(ctx context.Context, id uuid.UUID) (*core.Income, error)
	CreateIncome(ctx context.Context, req IncomeRequest) (*core.Income, error)
	UpdateIncome(ctx context.Context, id uuid.UUID, req IncomeRequest) (*core.Income, error)
	DeleteIncome(ctx context.Context, id uuid.UUID) error
	// BackfillInventoryLinks converts legacy description tokens into item links.
	BackfillInventoryLinks(ctx context.Context) (*core.BackfillReport, error)

	// ── Reference data ───────────────────────────────────────────────────────

	ListAccountingHeads(ctx context.Context, headType string) ([]core.AccountingHead, error)
	CreateAccountingHead(ctx context.Context, req AccountingHeadRequest) (*core.AccountingHead, error)
	UpdateAccountingHead(ctx context.Context, id uuid.UUID, req AccountingHeadRequest) (*core.AccountingHead, error)
	DeleteAccountingHead(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context) ([]core.Product, error)
	CreateProduct(ctx context.Context, req ProductRequest) (*core.Product, error)
	ListCustomers(ctx context.Context) ([]core.Customer, error)
	CreateCustomer(ctx context.Context, req CustomerRequest) (*core.Customer, error)

	// ── Reports ──────────────────────────────────────────────────────────────

	GetBatchProfitLoss(ctx context.Context, batchID uuid.UUID) (*core.BatchProfitLoss, error)
	ListBatchProfitLoss(ctx context.Context) ([]core.BatchProfitLoss, error)
	GetSummary(ctx context.Context, q DateRangeQuery) (*core.Summary, error)
	GetProductCostAnalysis(ctx context.Context, q ProductCostQuery) ([]core.ProductCostLine, error)
	GetProductProfitLoss(ctx context.Context) ([]core.ProductProfitLoss, error)
	GetAccountingHeadSummary(ctx context.Context) ([]core.AccountingHeadSummary, error)
	// VerifyInvariants runs the ledger consistency checks.
	VerifyInvariants(ctx context.Context) (*VerifyResult, error)

	// ── Drafting assistant ───────────────────────────────────────────────────

	// DraftExpense reads a free-text purchase note into a prefilled expense request.
	// Nothing is written; the caller submits the request to CreateExpense after review.
	DraftExpense(ctx context.Context, req DraftExpenseRequest) (*ExpenseDraftResult, error)
}
