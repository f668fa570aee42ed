package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	assert.Equal(t, "", w.sql())

	w.add("e.batch_id = ?", "b1")
	w.add("e.expense_date >= ?", "2026-01-01")
	w.addSearch("rice", "e.description", "e.vendor_name")

	assert.Equal(t, " WHERE e.batch_id = $1 AND e.expense_date >= $2 AND (e.description ILIKE $3 OR e.vendor_name ILIKE $3)", w.sql())
	assert.Equal(t, []any{"b1", "2026-01-01", "%rice%"}, w.args)
}
