package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// whereBuilder accumulates positional filter clauses for list queries.
type whereBuilder struct {
	clauses []string
	args    []any
}

// add appends a clause whose single placeholder is written as ?.
func (w *whereBuilder) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", placeholder(len(w.args))))
}

// addSearch appends an ILIKE over every column, sharing one argument.
func (w *whereBuilder) addSearch(term string, columns ...string) {
	w.args = append(w.args, "%"+term+"%")
	p := placeholder(len(w.args))
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + " ILIKE " + p
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
