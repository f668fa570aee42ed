package cli

import (
	"fmt"
	"io"
	"strings"

	"himalayan-flavours/internal/app"
	"himalayan-flavours/internal/core"
)

func rule(w io.Writer, ch string, n int) {
	fmt.Fprintln(w, strings.Repeat(ch, n))
}

func printStockReport(w io.Writer, r *app.StockReportResult, lowOnly bool) {
	fmt.Fprintln(w)
	rule(w, "=", 96)
	fmt.Fprintf(w, "  %-92s\n", "INVENTORY")
	rule(w, "=", 96)
	fmt.Fprintf(w, "  %-28s %-6s %12s %12s %12s %10s %8s\n",
		"ITEM", "UNIT", "IN STOCK", "INVOICED", "AVAILABLE", "UNIT COST", "")
	rule(w, "-", 96)
	shown := 0
	for _, it := range r.Items {
		if lowOnly && !it.IsBelowMinimum {
			continue
		}
		flag := ""
		if it.IsBelowMinimum {
			flag = "LOW"
		}
		fmt.Fprintf(w, "  %-28s %-6s %12s %12s %12s %10s %8s\n",
			truncate(it.Name, 28), it.Unit,
			it.CurrentStock.String(), it.InvoicedQuantity.String(), it.AvailableForInvoice.String(),
			it.UnitCost.StringFixed(2), flag)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "  No items.")
	}
	rule(w, "-", 96)
	fmt.Fprintf(w, "  Items below minimum : %d\n", r.LowStockCount)
	fmt.Fprintf(w, "  Inventory value     : %s\n", r.InventoryValue.StringFixed(2))
	fmt.Fprintf(w, "  Reserved value      : %s\n", r.ReservedValue.StringFixed(2))
	rule(w, "=", 96)
}

func printBatchProfitTable(w io.Writer, rows []core.BatchProfitLoss) {
	fmt.Fprintln(w)
	rule(w, "=", 90)
	fmt.Fprintf(w, "  %-86s\n", "BATCH PROFIT AND LOSS")
	rule(w, "=", 90)
	if len(rows) == 0 {
		fmt.Fprintln(w, "  No batches found.")
		rule(w, "=", 90)
		return
	}
	fmt.Fprintf(w, "  %-14s %-24s %-10s %12s %12s %12s %8s\n",
		"BATCH", "NAME", "STATUS", "COST", "INCOME", "PROFIT", "MARGIN")
	rule(w, "-", 90)
	for _, p := range rows {
		fmt.Fprintf(w, "  %-14s %-24s %-10s %12s %12s %12s %7s%%\n",
			p.BatchNumber, truncate(p.BatchName, 24), p.Status,
			p.TotalCost.StringFixed(2), p.TotalIncome.StringFixed(2),
			p.NetProfit.StringFixed(2), p.ProfitMargin.StringFixed(2))
	}
	rule(w, "=", 90)
}

func printBatchProfit(w io.Writer, p *core.BatchProfitLoss) {
	fmt.Fprintf(w, "\nBATCH:      %s  %s (%s)\n", p.BatchNumber, p.BatchName, p.Status)
	fmt.Fprintf(w, "PRODUCED:   %s\n", p.ProductionDate.Format("2006-01-02"))
	fmt.Fprintf(w, "EXPENSES:   %s  (%d entries)\n", p.TotalExpenses.StringFixed(2), p.ExpenseCount)
	costNote := "excluded"
	if p.IncludesInventoryCost {
		costNote = "included"
	}
	fmt.Fprintf(w, "INVENTORY:  %s  (%d draws, %s)\n", p.InventoryCost.StringFixed(2), p.ConsumptionCount, costNote)
	fmt.Fprintf(w, "TOTAL COST: %s\n", p.TotalCost.StringFixed(2))
	fmt.Fprintf(w, "INCOME:     %s  (%d entries)\n", p.TotalIncome.StringFixed(2), p.IncomeCount)
	fmt.Fprintf(w, "PROFIT:     %s  (%s%%)\n", p.NetProfit.StringFixed(2), p.ProfitMargin.StringFixed(2))
}

func printSummary(w io.Writer, s *core.Summary) {
	period := "all time"
	switch {
	case s.From != nil && s.To != nil:
		period = s.From.Format("2006-01-02") + " to " + s.To.Format("2006-01-02")
	case s.From != nil:
		period = "from " + s.From.Format("2006-01-02")
	case s.To != nil:
		period = "up to " + s.To.Format("2006-01-02")
	}
	fmt.Fprintln(w)
	rule(w, "=", 50)
	fmt.Fprintf(w, "  SUMMARY  %s\n", period)
	rule(w, "=", 50)
	fmt.Fprintf(w, "  %-22s %24s\n", "Income", fmt.Sprintf("%s (%d)", s.TotalIncome.StringFixed(2), s.IncomeCount))
	fmt.Fprintf(w, "  %-22s %24s\n", "Expenses", fmt.Sprintf("%s (%d)", s.TotalExpenses.StringFixed(2), s.ExpenseCount))
	fmt.Fprintf(w, "  %-22s %24s\n", "Net profit", s.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "  %-22s %23s%%\n", "Margin", s.ProfitMargin.StringFixed(2))
	rule(w, "-", 50)
	fmt.Fprintf(w, "  %-22s %24s\n", "Inventory consumed", s.InventoryCost.StringFixed(2))
	fmt.Fprintf(w, "  %-22s %24s\n", "Inventory on hand", s.InventoryValue.StringFixed(2))
	fmt.Fprintf(w, "  %-22s %24d\n", "Active batches", s.ActiveBatchCount)
	fmt.Fprintf(w, "  %-22s %24d\n", "Items below minimum", s.LowStockCount)
	rule(w, "=", 50)
}

func printViolations(w io.Writer, r *app.VerifyResult) {
	if r.Consistent {
		fmt.Fprintln(w, "All ledger checks passed.")
		return
	}
	fmt.Fprintf(w, "%d violation(s):\n", len(r.Violations))
	for _, v := range r.Violations {
		fmt.Fprintf(w, "  [%s] %s %s: %s\n", v.Check, v.Entity, v.ID, v.Detail)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
