package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService manages reference data: accounting heads, products and customers.
type CatalogService interface {
	CreateAccountingHead(ctx context.Context, name string, headType HeadType, description string) (*AccountingHead, error)
	// ListAccountingHeads returns all heads, or those of one type when headType is set.
	ListAccountingHeads(ctx context.Context, headType HeadType) ([]AccountingHead, error)
	UpdateAccountingHead(ctx context.Context, id uuid.UUID, name, description string) (*AccountingHead, error)
	// DeleteAccountingHead removes the head. Ledger rows keep their data and lose the link.
	DeleteAccountingHead(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, name string, sku *string, unit string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	CreateCustomer(ctx context.Context, name, email, phone string) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

// ── Accounting heads ──────────────────────────────────────────────────────────

func (s *catalogService) CreateAccountingHead(ctx context.Context, name string, headType HeadType, description string) (*AccountingHead, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name", "is required")
	}
	if !headType.Valid() {
		return nil, validationf("type", "must be expense or income, got %q", headType)
	}

	var h AccountingHead
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounting_heads (name, type, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, type, description, created_at
	`, name, string(headType), description).Scan(&h.ID, &h.Name, &h.Type, &h.Description, &h.CreatedAt)
	if err != nil {
		return nil, storeError("create accounting head", "accounting head", name, err)
	}
	return &h, nil
}

func (s *catalogService) ListAccountingHeads(ctx context.Context, headType HeadType) ([]AccountingHead, error) {
	if headType != "" && !headType.Valid() {
		return nil, validationf("type", "must be expense or income, got %q", headType)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, description, created_at
		FROM accounting_heads
		WHERE $1 = '' OR type = $1
		ORDER BY type, name
	`, string(headType))
	if err != nil {
		return nil, storeError("query accounting heads", "accounting head", "", err)
	}
	defer rows.Close()

	var heads []AccountingHead
	for rows.Next() {
		var h AccountingHead
		if err := rows.Scan(&h.ID, &h.Name, &h.Type, &h.Description, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan accounting head: %w", err)
		}
		heads = append(heads, h)
	}
	return heads, rows.Err()
}

func (s *catalogService) UpdateAccountingHead(ctx context.Context, id uuid.UUID, name, description string) (*AccountingHead, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name", "is required")
	}
	var h AccountingHead
	err := s.pool.QueryRow(ctx, `
		UPDATE accounting_heads SET name = $1, description = $2
		WHERE id = $3
		RETURNING id, name, type, description, created_at
	`, name, description, id).Scan(&h.ID, &h.Name, &h.Type, &h.Description, &h.CreatedAt)
	if err != nil {
		return nil, storeError("update accounting head", "accounting head", id.String(), err)
	}
	return &h, nil
}

func (s *catalogService) DeleteAccountingHead(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM accounting_heads WHERE id = $1", id)
	if err != nil {
		return storeError("delete accounting head", "accounting head", id.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "accounting head", ID: id.String()}
	}
	return nil
}

// ── Products and customers ────────────────────────────────────────────────────

func (s *catalogService) CreateProduct(ctx context.Context, name string, sku *string, unit string) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name", "is required")
	}
	var p Product
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, sku, unit) VALUES ($1, $2, $3)
		RETURNING id, name, sku, unit, created_at
	`, name, sku, unit).Scan(&p.ID, &p.Name, &p.SKU, &p.Unit, &p.CreatedAt)
	if err != nil {
		return nil, storeError("create product", "product", name, err)
	}
	return &p, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, sku, unit, created_at FROM products ORDER BY name")
	if err != nil {
		return nil, storeError("query products", "product", "", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Unit, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *catalogService) CreateCustomer(ctx context.Context, name, email, phone string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name", "is required")
	}
	var c Customer
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone) VALUES ($1, $2, $3)
		RETURNING id, name, email, phone, created_at
	`, name, strings.TrimSpace(email), strings.TrimSpace(phone)).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		return nil, storeError("create customer", "customer", name, err)
	}
	return &c, nil
}

func (s *catalogService) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, email, phone, created_at FROM customers ORDER BY name")
	if err != nil {
		return nil, storeError("query customers", "customer", "", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}
