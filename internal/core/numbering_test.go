package core

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedNumbers(t *testing.T) {
	now := time.UnixMilli(1760400000123)

	exp, err := newExpenseNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^EXP-1760400000123-[0-9A-Z]{6}$`), exp)

	inc, err := newIncomeNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INC-1760400000123-[0-9A-Z]{6}$`), inc)

	batch, err := newBatchNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^BATCH-1760400000123-[0-9A-Z]{4}$`), batch)
}

func TestRandomBase36_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s, err := randomBase36(6)
		require.NoError(t, err)
		assert.Len(t, s, 6)
		seen[s] = true
	}
	// 36^6 possibilities; 200 draws colliding more than once would point at a broken source.
	assert.GreaterOrEqual(t, len(seen), 199)
}

func TestFormatCategoryNumber(t *testing.T) {
	assert.Equal(t, "PKL-0001", formatCategoryNumber("pkl", 1))
	assert.Equal(t, "SPC-0042", formatCategoryNumber("SPC", 42))
	assert.Equal(t, "SPC-12345", formatCategoryNumber("SPC", 12345))
}
