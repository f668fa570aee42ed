package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// IncomeService records revenue entries. It has no inventory side effects.
type IncomeService interface {
	CreateIncome(ctx context.Context, in IncomeInput) (*Income, error)
	UpdateIncome(ctx context.Context, id uuid.UUID, in IncomeInput) (*Income, error)
	DeleteIncome(ctx context.Context, id uuid.UUID) error
	GetIncomeByID(ctx context.Context, id uuid.UUID) (*Income, error)
	GetIncome(ctx context.Context, filter LedgerFilter) ([]Income, error)
}

type incomeService struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	now  func() time.Time
}

func NewIncomeService(pool *pgxpool.Pool, log *zap.Logger) IncomeService {
	return &incomeService{pool: pool, log: log.Named("income"), now: time.Now}
}

const incomeSelect = `
	SELECT i.id, i.income_number, i.description, i.amount, i.quantity, i.unit, i.income_date,
	       i.accounting_head_id, ah.name, i.batch_id, b.batch_number, i.product_id, p.name,
	       i.customer_id, c.name, i.created_at, i.updated_at
	FROM income i
	LEFT JOIN accounting_heads ah ON ah.id = i.accounting_head_id
	LEFT JOIN batches b           ON b.id = i.batch_id
	LEFT JOIN products p          ON p.id = i.product_id
	LEFT JOIN customers c         ON c.id = i.customer_id`

func scanIncome(row pgx.Row) (*Income, error) {
	var in Income
	if err := row.Scan(&in.ID, &in.IncomeNumber, &in.Description, &in.Amount, &in.Quantity, &in.Unit, &in.IncomeDate,
		&in.AccountingHeadID, &in.AccountingHeadName, &in.BatchID, &in.BatchNumber, &in.ProductID, &in.ProductName,
		&in.CustomerID, &in.CustomerName, &in.CreatedAt, &in.UpdatedAt); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *incomeService) CreateIncome(ctx context.Context, in IncomeInput) (*Income, error) {
	if err := validateAmounts(in.Amount, in.Quantity); err != nil {
		return nil, err
	}
	date := s.now()
	if in.IncomeDate != nil {
		date = *in.IncomeDate
	}

	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := newIncomeNumber(s.now())
		if err != nil {
			return nil, err
		}
		var id uuid.UUID
		err = s.pool.QueryRow(ctx, `
			INSERT INTO income (income_number, description, amount, quantity, unit, income_date,
			                    accounting_head_id, batch_id, product_id, customer_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`, number, in.Description, in.Amount, in.Quantity, in.Unit, date,
			in.AccountingHeadID, in.BatchID, in.ProductID, in.CustomerID,
		).Scan(&id)
		if err == nil {
			return s.GetIncomeByID(ctx, id)
		}
		if !isUniqueViolation(err) {
			return nil, storeError("create income", "income", number, err)
		}
		lastErr = err
		s.log.Warn("income number collision, retrying", zap.String("number", number), zap.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("failed to allocate a unique income number after %d attempts: %w", maxNumberAttempts, lastErr)
}

func (s *incomeService) UpdateIncome(ctx context.Context, id uuid.UUID, in IncomeInput) (*Income, error) {
	if err := validateAmounts(in.Amount, in.Quantity); err != nil {
		return nil, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE income SET
			description = $1, amount = $2, quantity = $3, unit = $4,
			income_date = COALESCE($5, income_date),
			accounting_head_id = $6, batch_id = $7, product_id = $8, customer_id = $9,
			updated_at = NOW()
		WHERE id = $10
	`, in.Description, in.Amount, in.Quantity, in.Unit, in.IncomeDate,
		in.AccountingHeadID, in.BatchID, in.ProductID, in.CustomerID, id)
	if err != nil {
		return nil, storeError("update income", "income", id.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Entity: "income", ID: id.String()}
	}
	return s.GetIncomeByID(ctx, id)
}

func (s *incomeService) DeleteIncome(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM income WHERE id = $1", id)
	if err != nil {
		return storeError("delete income", "income", id.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "income", ID: id.String()}
	}
	return nil
}

func (s *incomeService) GetIncomeByID(ctx context.Context, id uuid.UUID) (*Income, error) {
	in, err := scanIncome(s.pool.QueryRow(ctx, incomeSelect+" WHERE i.id = $1", id))
	if err != nil {
		return nil, storeError("fetch income", "income", id.String(), err)
	}
	return in, nil
}

func (s *incomeService) GetIncome(ctx context.Context, filter LedgerFilter) ([]Income, error) {
	var w whereBuilder
	if filter.AccountingHeadID != nil {
		w.add("i.accounting_head_id = ?", *filter.AccountingHeadID)
	}
	if filter.BatchID != nil {
		w.add("i.batch_id = ?", *filter.BatchID)
	}
	if filter.ProductID != nil {
		w.add("i.product_id = ?", *filter.ProductID)
	}
	if filter.CustomerID != nil {
		w.add("i.customer_id = ?", *filter.CustomerID)
	}
	if filter.From != nil {
		w.add("i.income_date >= ?::date", *filter.From)
	}
	if filter.To != nil {
		w.add("i.income_date <= ?::date", *filter.To)
	}
	if filter.Search != "" {
		w.addSearch(filter.Search, "i.description", "COALESCE(c.name, '')")
	}

	rows, err := s.pool.Query(ctx, incomeSelect+w.sql()+" ORDER BY i.income_date DESC, i.created_at DESC", w.args...)
	if err != nil {
		return nil, storeError("query income", "income", "", err)
	}
	defer rows.Close()

	var out []Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan income: %w", err)
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}
