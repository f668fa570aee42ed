package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"himalayan-flavours/internal/app"
)

// ErrInconsistent is returned by the verify command when any check fails.
var ErrInconsistent = errors.New("ledger is inconsistent")

// Usage lists the one-shot commands.
const Usage = `Usage: app <command> [args]

Commands:
  stock [--low]            inventory levels, reservations and valuation
  pnl [batch-id]           batch profit and loss, all batches or one
  summary [from] [to]      business summary, dates as YYYY-MM-DD
  backfill-links           link legacy expenses to inventory items
  verify                   run the ledger consistency checks
  draft "<note>"           draft an expense from a free-text purchase note`

// Run executes a one-shot CLI command, writing its report to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", Usage)
	}

	switch args[0] {
	case "stock", "inv":
		result, err := svc.GetStockReport(ctx)
		if err != nil {
			return fmt.Errorf("failed to load stock report: %w", err)
		}
		lowOnly := len(args) > 1 && args[1] == "--low"
		printStockReport(out, result, lowOnly)

	case "pnl":
		if len(args) > 1 {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid batch id %q: %w", args[1], err)
			}
			pl, err := svc.GetBatchProfitLoss(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to compute batch profit: %w", err)
			}
			printBatchProfit(out, pl)
			return nil
		}
		rows, err := svc.ListBatchProfitLoss(ctx)
		if err != nil {
			return fmt.Errorf("failed to compute batch profits: %w", err)
		}
		printBatchProfitTable(out, rows)

	case "summary", "sum":
		var q app.DateRangeQuery
		if len(args) > 1 {
			q.From = args[1]
		}
		if len(args) > 2 {
			q.To = args[2]
		}
		sum, err := svc.GetSummary(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to compute summary: %w", err)
		}
		printSummary(out, sum)

	case "backfill-links":
		report, err := svc.BackfillInventoryLinks(ctx)
		if err != nil {
			return fmt.Errorf("backfill failed: %w", err)
		}
		fmt.Fprintf(out, "Scanned %d expenses: %d linked, %d skipped.\n", report.Scanned, report.Linked, report.Skipped)

	case "verify":
		result, err := svc.VerifyInvariants(ctx)
		if err != nil {
			return fmt.Errorf("verification failed to run: %w", err)
		}
		printViolations(out, result)
		if !result.Consistent {
			return ErrInconsistent
		}

	case "draft":
		if len(args) < 2 {
			return errors.New(`usage: app draft "<purchase note>"`)
		}
		result, err := svc.DraftExpense(ctx, app.DraftExpenseRequest{Note: strings.Join(args[1:], " ")})
		if err != nil {
			return fmt.Errorf("draft failed: %w", err)
		}
		for _, w := range result.Warnings {
			fmt.Fprintln(out, "warning:", w)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Request)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], Usage)
	}
	return nil
}
