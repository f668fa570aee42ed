package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Error kinds. Typed errors below match one of these through errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvoiceCapacity   = errors.New("invoice capacity exceeded")
	ErrNotFound          = errors.New("not found")
	ErrTransport         = errors.New("store unavailable")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError is returned when a consumption exceeds current stock.
type InsufficientStockError struct {
	Item      string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %s, available %s",
		e.Item, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// InvoiceCapacityError is returned when a reservation exceeds stock not yet invoiced.
type InvoiceCapacityError struct {
	Item      string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InvoiceCapacityError) Error() string {
	return fmt.Sprintf("cannot invoice %s of %s: only %s available for invoice",
		e.Requested.String(), e.Item, e.Available.String())
}

func (e *InvoiceCapacityError) Is(target error) bool { return target == ErrInvoiceCapacity }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransportError wraps a failure to reach or commit to the store.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// Postgres SQLSTATE codes the services react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// storeError classifies a pgx error. Constraint failures become validation
// errors, missing rows become NotFoundError, connection-level failures become
// TransportError, and everything else is wrapped with op.
func storeError(op, entity, id string, err error) error {
	if err == nil || isClassified(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return &ValidationError{Field: pgErr.ConstraintName, Message: "references a missing or still-referenced record"}
		case pgCheckViolation:
			return &ValidationError{Field: pgErr.ConstraintName, Message: "violates a stock or value constraint"}
		case pgUniqueViolation:
			return &ValidationError{Field: pgErr.ConstraintName, Message: "already exists"}
		case pgInvalidText:
			return &ValidationError{Message: pgErr.Message}
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || isConnError(err) {
		return &TransportError{Op: op, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isClassified(err error) bool {
	for _, kind := range []error{ErrValidation, ErrInsufficientStock, ErrInvoiceCapacity, ErrNotFound, ErrTransport} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func isConnError(err error) bool {
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr) || errors.Is(err, pgx.ErrTxClosed)
}

// beginError and commitError mark transaction boundary failures as transport errors.
func beginError(err error) error {
	return &TransportError{Op: "begin transaction", Err: err}
}

func commitError(err error) error {
	return &TransportError{Op: "commit transaction", Err: err}
}
