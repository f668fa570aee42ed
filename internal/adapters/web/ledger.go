package web

import (
	"net/http"

	"github.com/google/uuid"

	"himalayan-flavours/internal/app"
)

// ledgerQuery reads the shared expense/income filters from the query string.
func ledgerQuery(w http.ResponseWriter, r *http.Request) (app.LedgerQuery, bool) {
	q := app.LedgerQuery{
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
		Search: r.URL.Query().Get("search"),
	}
	for name, dst := range map[string]**uuid.UUID{
		"accounting_head_id": &q.AccountingHeadID,
		"batch_id":           &q.BatchID,
		"product_id":         &q.ProductID,
		"inventory_item_id":  &q.InventoryItemID,
		"customer_id":        &q.CustomerID,
	} {
		id, ok := queryUUID(w, r, name)
		if !ok {
			return q, false
		}
		*dst = id
	}
	return q, true
}

// ── Expenses ─────────────────────────────────────────────────────────────────

// apiListExpenses handles GET /api/expenses.
func (h *Handler) apiListExpenses(w http.ResponseWriter, r *http.Request) {
	q, ok := ledgerQuery(w, r)
	if !ok {
		return
	}
	expenses, err := h.svc.ListExpenses(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(expenses))
}

// apiCreateExpense handles POST /api/expenses.
func (h *Handler) apiCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req app.ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.CreateExpense(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, e)
}

// apiGetExpense handles GET /api/expenses/{id}.
func (h *Handler) apiGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	e, err := h.svc.GetExpense(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, e)
}

// apiUpdateExpense handles PUT /api/expenses/{id}.
func (h *Handler) apiUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.UpdateExpense(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, e)
}

// apiDeleteExpense handles DELETE /api/expenses/{id}.
func (h *Handler) apiDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteExpense(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiBackfillLinks handles POST /api/expenses/backfill-links.
func (h *Handler) apiBackfillLinks(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.BackfillInventoryLinks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, report)
}

// apiDraftExpense handles POST /api/expenses/draft.
func (h *Handler) apiDraftExpense(w http.ResponseWriter, r *http.Request) {
	var req app.DraftExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.DraftExpense(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result)
}

// ── Income ───────────────────────────────────────────────────────────────────

// apiListIncome handles GET /api/income.
func (h *Handler) apiListIncome(w http.ResponseWriter, r *http.Request) {
	q, ok := ledgerQuery(w, r)
	if !ok {
		return
	}
	income, err := h.svc.ListIncome(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(income))
}

// apiCreateIncome handles POST /api/income.
func (h *Handler) apiCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req app.IncomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := h.svc.CreateIncome(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, in)
}

// apiGetIncome handles GET /api/income/{id}.
func (h *Handler) apiGetIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	in, err := h.svc.GetIncome(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, in)
}

// apiUpdateIncome handles PUT /api/income/{id}.
func (h *Handler) apiUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.IncomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := h.svc.UpdateIncome(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, in)
}

// apiDeleteIncome handles DELETE /api/income/{id}.
func (h *Handler) apiDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteIncome(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
