package core

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randomBase36 returns n uppercase base36 characters from crypto/rand.
func randomBase36(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b.WriteByte(base36Alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// timestampNumber builds <prefix>-<unix_ms>-<suffixLen random base36>.
func timestampNumber(prefix string, now time.Time, suffixLen int) (string, error) {
	suffix, err := randomBase36(suffixLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix), nil
}

func newExpenseNumber(now time.Time) (string, error) { return timestampNumber("EXP", now, 6) }
func newIncomeNumber(now time.Time) (string, error)  { return timestampNumber("INC", now, 6) }
func newBatchNumber(now time.Time) (string, error)   { return timestampNumber("BATCH", now, 4) }

// formatCategoryNumber renders the nth batch of a category as <PREFIX>-<NNNN>.
func formatCategoryNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%04d", strings.ToUpper(prefix), n)
}

// nextCategoryNumberTx increments the category's gapless counter inside tx.
// The counter row stays locked until tx ends, so a rolled back batch insert
// does not consume a number.
func nextCategoryNumberTx(ctx context.Context, tx pgx.Tx, categoryID uuid.UUID) (string, error) {
	var prefix string
	if err := tx.QueryRow(ctx, "SELECT prefix FROM batch_categories WHERE id = $1", categoryID).Scan(&prefix); err != nil {
		return "", storeError("resolve batch category", "batch category", categoryID.String(), err)
	}

	var n int64
	err := tx.QueryRow(ctx, `
		INSERT INTO batch_sequences (category_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (category_id) DO UPDATE SET last_number = batch_sequences.last_number + 1
		RETURNING last_number
	`, categoryID).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("failed to increment batch sequence: %w", err)
	}
	return formatCategoryNumber(prefix, n), nil
}

// maxNumberAttempts bounds retries when a generated number collides.
const maxNumberAttempts = 3
