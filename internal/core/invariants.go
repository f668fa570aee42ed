package core

import (
	"context"
	"fmt"
)

// InvariantViolation is one row that breaks a ledger rule.
type InvariantViolation struct {
	Check  string `json:"check"`
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Detail string `json:"detail"`
}

var invariantChecks = []struct {
	name   string
	entity string
	sql    string
}{
	{
		name:   "stock_nonnegative",
		entity: "inventory item",
		sql:    `SELECT id::text, name || ': current_stock=' || current_stock FROM inventory_items WHERE current_stock < 0`,
	},
	{
		name:   "invoiced_within_stock",
		entity: "inventory item",
		sql: `SELECT id::text, name || ': invoiced_quantity=' || invoiced_quantity || ' current_stock=' || current_stock
		      FROM inventory_items WHERE invoiced_quantity < 0 OR invoiced_quantity > current_stock`,
	},
	{
		name:   "consumption_total_cost",
		entity: "consumption",
		sql: `SELECT id::text, 'total_cost=' || total_cost || ' expected=' || (quantity_consumed * unit_cost)
		      FROM batch_inventory_consumption WHERE total_cost <> quantity_consumed * unit_cost`,
	},
	{
		name:   "expense_reservations_within_item",
		entity: "inventory item",
		sql: `SELECT ii.id::text, ii.name || ': invoiced_quantity=' || ii.invoiced_quantity || ' held by expenses=' || r.held
		      FROM inventory_items ii
		      JOIN (
		          SELECT inventory_item_id, SUM(invoiced_quantity) AS held
		          FROM expenses
		          WHERE inventory_item_id IS NOT NULL
		          GROUP BY inventory_item_id
		      ) r ON r.inventory_item_id = ii.id
		      WHERE r.held > ii.invoiced_quantity`,
	},
	{
		name:   "stock_matches_movements",
		entity: "inventory item",
		sql: `SELECT ii.id::text, ii.name || ': current_stock=' || ii.current_stock || ' movements=' || COALESCE(m.net, 0)
		      FROM inventory_items ii
		      LEFT JOIN (
		          SELECT inventory_item_id, SUM(quantity) AS net
		          FROM inventory_movements
		          WHERE movement_type IN ('STOCK_IN', 'CONSUMPTION', 'CONSUMPTION_REVERSAL')
		          GROUP BY inventory_item_id
		      ) m ON m.inventory_item_id = ii.id
		      WHERE ii.current_stock <> COALESCE(m.net, 0)`,
	},
}

// VerifyInvariants runs every ledger consistency check and returns the rows that fail.
// An empty result means the store is consistent.
func VerifyInvariants(ctx context.Context, q pgxQuerier) ([]InvariantViolation, error) {
	var out []InvariantViolation
	for _, check := range invariantChecks {
		rows, err := q.Query(ctx, check.sql)
		if err != nil {
			return nil, storeError("run check "+check.name, check.entity, "", err)
		}
		for rows.Next() {
			v := InvariantViolation{Check: check.name, Entity: check.entity}
			if err := rows.Scan(&v.ID, &v.Detail); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s violation: %w", check.name, err)
			}
			out = append(out, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating %s violations: %w", check.name, err)
		}
	}
	return out, nil
}
