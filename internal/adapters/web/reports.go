package web

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"himalayan-flavours/internal/app"
	"himalayan-flavours/internal/core"
)

func dateRangeQuery(r *http.Request) app.DateRangeQuery {
	return app.DateRangeQuery{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
}

// apiSummary handles GET /api/reports/summary?from=&to=.
func (h *Handler) apiSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.GetSummary(r.Context(), dateRangeQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, sum)
}

// apiBatchProfitReport handles GET /api/reports/batches. format=csv downloads
// the same rows as a spreadsheet.
func (h *Handler) apiBatchProfitReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.ListBatchProfitLoss(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		writeBatchProfitCSV(w, rows)
		return
	}
	writeJSON(w, listOf(rows))
}

func writeBatchProfitCSV(w http.ResponseWriter, rows []core.BatchProfitLoss) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="batch-profit.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Batch", "Name", "Status", "Production Date",
		"Expenses", "Inventory Cost", "Total Cost", "Income", "Net Profit", "Margin %"})
	for _, p := range rows {
		_ = cw.Write([]string{
			csvSafe(p.BatchNumber),
			csvSafe(p.BatchName),
			string(p.Status),
			p.ProductionDate.Format("2006-01-02"),
			p.TotalExpenses.StringFixed(2),
			p.InventoryCost.StringFixed(2),
			p.TotalCost.StringFixed(2),
			p.TotalIncome.StringFixed(2),
			p.NetProfit.StringFixed(2),
			p.ProfitMargin.StringFixed(2),
		})
	}
	cw.Flush()
}

// csvSafe prevents CSV formula injection by prefixing cells that begin with a
// formula-triggering character with a single quote.
func csvSafe(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// apiProductProfitReport handles GET /api/reports/products.
func (h *Handler) apiProductProfitReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.GetProductProfitLoss(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(rows))
}

// apiProductCostReport handles GET /api/reports/product-costs?product_id=&accounting_head_id=&from=&to=.
func (h *Handler) apiProductCostReport(w http.ResponseWriter, r *http.Request) {
	productID, ok := queryUUID(w, r, "product_id")
	if !ok {
		return
	}
	headID, ok := queryUUID(w, r, "accounting_head_id")
	if !ok {
		return
	}
	rows, err := h.svc.GetProductCostAnalysis(r.Context(), app.ProductCostQuery{
		ProductID:        productID,
		AccountingHeadID: headID,
		DateRangeQuery:   dateRangeQuery(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(rows))
}

// apiAccountingHeadReport handles GET /api/reports/accounting-heads.
func (h *Handler) apiAccountingHeadReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.GetAccountingHeadSummary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(rows))
}

// apiVerify handles GET /api/reports/verify. An inconsistent store answers 200
// with the violations; X-Ledger-Violations carries their count.
func (h *Handler) apiVerify(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.VerifyInvariants(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("X-Ledger-Violations", strconv.Itoa(len(result.Violations)))
	writeJSON(w, result)
}
