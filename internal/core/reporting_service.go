package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportingService derives profit and cost figures from the ledgers. It never writes.
type ReportingService interface {
	GetBatchProfitLoss(ctx context.Context, batchID uuid.UUID) (*BatchProfitLoss, error)
	ListBatchProfitLoss(ctx context.Context) ([]BatchProfitLoss, error)
	GetSummary(ctx context.Context, r DateRange) (*Summary, error)
	GetProductCostAnalysis(ctx context.Context, filter ProductCostFilter) ([]ProductCostLine, error)
	GetProductProfitLoss(ctx context.Context) ([]ProductProfitLoss, error)
	GetAccountingHeadSummary(ctx context.Context) ([]AccountingHeadSummary, error)
}

type reportingService struct {
	pool                 *pgxpool.Pool
	includeInventoryCost bool
}

// NewReportingService builds the aggregator. includeInventoryCost decides whether
// batch consumption cost is part of a batch's total cost.
func NewReportingService(pool *pgxpool.Pool, includeInventoryCost bool) ReportingService {
	return &reportingService{pool: pool, includeInventoryCost: includeInventoryCost}
}

// batchProfitSelect aggregates each ledger in its own subquery so the joins do not multiply rows.
const batchProfitSelect = `
	SELECT b.id, b.batch_number, b.batch_name, b.status, b.production_date,
	       COALESCE(ex.total, 0), COALESCE(ex.cnt, 0),
	       COALESCE(inc.total, 0), COALESCE(inc.cnt, 0),
	       COALESCE(con.total, 0), COALESCE(con.cnt, 0)
	FROM batches b
	LEFT JOIN (SELECT batch_id, SUM(amount) AS total, COUNT(*) AS cnt FROM expenses GROUP BY batch_id) ex
	       ON ex.batch_id = b.id
	LEFT JOIN (SELECT batch_id, SUM(amount) AS total, COUNT(*) AS cnt FROM income GROUP BY batch_id) inc
	       ON inc.batch_id = b.id
	LEFT JOIN (SELECT batch_id, SUM(total_cost) AS total, COUNT(*) AS cnt FROM batch_inventory_consumption GROUP BY batch_id) con
	       ON con.batch_id = b.id`

func (s *reportingService) scanBatchProfit(row pgx.Row) (*BatchProfitLoss, error) {
	var p BatchProfitLoss
	if err := row.Scan(&p.BatchID, &p.BatchNumber, &p.BatchName, &p.Status, &p.ProductionDate,
		&p.TotalExpenses, &p.ExpenseCount,
		&p.TotalIncome, &p.IncomeCount,
		&p.InventoryCost, &p.ConsumptionCount); err != nil {
		return nil, err
	}
	p.finalize(s.includeInventoryCost)
	return &p, nil
}

func (s *reportingService) GetBatchProfitLoss(ctx context.Context, batchID uuid.UUID) (*BatchProfitLoss, error) {
	p, err := s.scanBatchProfit(s.pool.QueryRow(ctx, batchProfitSelect+" WHERE b.id = $1", batchID))
	if err != nil {
		return nil, storeError("compute batch profit", "batch", batchID.String(), err)
	}
	return p, nil
}

func (s *reportingService) ListBatchProfitLoss(ctx context.Context) ([]BatchProfitLoss, error) {
	rows, err := s.pool.Query(ctx, batchProfitSelect+" ORDER BY b.production_date DESC, b.created_at DESC")
	if err != nil {
		return nil, storeError("query batch cost summary", "batch", "", err)
	}
	defer rows.Close()

	var out []BatchProfitLoss
	for rows.Next() {
		p, err := s.scanBatchProfit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch profit: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *reportingService) GetSummary(ctx context.Context, r DateRange) (*Summary, error) {
	sum := &Summary{From: r.From, To: r.To}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM expenses
			  WHERE ($1::date IS NULL OR expense_date >= $1::date) AND ($2::date IS NULL OR expense_date <= $2::date)),
			(SELECT COUNT(*) FROM expenses
			  WHERE ($1::date IS NULL OR expense_date >= $1::date) AND ($2::date IS NULL OR expense_date <= $2::date)),
			(SELECT COALESCE(SUM(amount), 0) FROM income
			  WHERE ($1::date IS NULL OR income_date >= $1::date) AND ($2::date IS NULL OR income_date <= $2::date)),
			(SELECT COUNT(*) FROM income
			  WHERE ($1::date IS NULL OR income_date >= $1::date) AND ($2::date IS NULL OR income_date <= $2::date)),
			(SELECT COALESCE(SUM(total_cost), 0) FROM batch_inventory_consumption
			  WHERE ($1::date IS NULL OR consumption_date >= $1::date) AND ($2::date IS NULL OR consumption_date <= $2::date)),
			(SELECT COALESCE(SUM(current_stock * unit_cost), 0) FROM inventory_items),
			(SELECT COUNT(*) FROM batches WHERE status = 'active'),
			(SELECT COUNT(*) FROM inventory_items WHERE current_stock <= minimum_stock)
	`, r.From, r.To).Scan(
		&sum.TotalExpenses, &sum.ExpenseCount,
		&sum.TotalIncome, &sum.IncomeCount,
		&sum.InventoryCost, &sum.InventoryValue,
		&sum.ActiveBatchCount, &sum.LowStockCount,
	)
	if err != nil {
		return nil, storeError("compute summary", "summary", "", err)
	}
	sum.finalize()
	return sum, nil
}

func (s *reportingService) GetProductCostAnalysis(ctx context.Context, filter ProductCostFilter) ([]ProductCostLine, error) {
	w := whereBuilder{clauses: []string{"e.product_id IS NOT NULL"}}
	if filter.ProductID != nil {
		w.add("e.product_id = ?", *filter.ProductID)
	}
	if filter.AccountingHeadID != nil {
		w.add("e.accounting_head_id = ?", *filter.AccountingHeadID)
	}
	if filter.From != nil {
		w.add("e.expense_date >= ?::date", *filter.From)
	}
	if filter.To != nil {
		w.add("e.expense_date <= ?::date", *filter.To)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT e.product_id, p.name, e.accounting_head_id, COALESCE(ah.name, ''),
		       SUM(e.amount), COALESCE(SUM(e.quantity), 0), COUNT(*)
		FROM expenses e
		JOIN products p               ON p.id = e.product_id
		LEFT JOIN accounting_heads ah ON ah.id = e.accounting_head_id`+w.sql()+`
		GROUP BY e.product_id, p.name, e.accounting_head_id, ah.name
		ORDER BY p.name, ah.name NULLS LAST
	`, w.args...)
	if err != nil {
		return nil, storeError("query product cost analysis", "product", "", err)
	}
	defer rows.Close()

	var out []ProductCostLine
	for rows.Next() {
		var l ProductCostLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.AccountingHeadID, &l.AccountingHeadName,
			&l.TotalCost, &l.TotalQuantity, &l.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan product cost line: %w", err)
		}
		l.finalize()
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *reportingService) GetProductProfitLoss(ctx context.Context) ([]ProductProfitLoss, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, COALESCE(ex.total, 0), COALESCE(inc.total, 0)
		FROM products p
		LEFT JOIN (SELECT product_id, SUM(amount) AS total FROM expenses GROUP BY product_id) ex ON ex.product_id = p.id
		LEFT JOIN (SELECT product_id, SUM(amount) AS total FROM income GROUP BY product_id) inc ON inc.product_id = p.id
		ORDER BY p.name
	`)
	if err != nil {
		return nil, storeError("query product profit", "product", "", err)
	}
	defer rows.Close()

	var out []ProductProfitLoss
	for rows.Next() {
		var p ProductProfitLoss
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.TotalExpenses, &p.TotalIncome); err != nil {
			return nil, fmt.Errorf("failed to scan product profit: %w", err)
		}
		p.finalize()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *reportingService) GetAccountingHeadSummary(ctx context.Context) ([]AccountingHeadSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ah.id, ah.name, ah.type,
		       COALESCE(CASE ah.type WHEN 'expense' THEN ex.total ELSE inc.total END, 0),
		       COALESCE(CASE ah.type WHEN 'expense' THEN ex.cnt ELSE inc.cnt END, 0)
		FROM accounting_heads ah
		LEFT JOIN (SELECT accounting_head_id, SUM(amount) AS total, COUNT(*) AS cnt FROM expenses GROUP BY accounting_head_id) ex
		       ON ex.accounting_head_id = ah.id
		LEFT JOIN (SELECT accounting_head_id, SUM(amount) AS total, COUNT(*) AS cnt FROM income GROUP BY accounting_head_id) inc
		       ON inc.accounting_head_id = ah.id
		ORDER BY ah.type, ah.name
	`)
	if err != nil {
		return nil, storeError("query accounting head summary", "accounting head", "", err)
	}
	defer rows.Close()

	var out []AccountingHeadSummary
	for rows.Next() {
		var h AccountingHeadSummary
		if err := rows.Scan(&h.AccountingHeadID, &h.Name, &h.Type, &h.TotalAmount, &h.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan accounting head summary: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
