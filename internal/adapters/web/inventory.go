package web

import (
	"net/http"
	"strconv"

	"himalayan-flavours/internal/app"
)

// apiListInventory handles GET /api/inventory?search=&low_stock=true.
func (h *Handler) apiListInventory(w http.ResponseWriter, r *http.Request) {
	q := app.ItemQuery{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("low_stock"); raw != "" {
		low, err := strconv.ParseBool(raw)
		if err != nil {
			writeErrorBody(w, r, errorResponse{Error: "low_stock must be true or false", Code: "VALIDATION_ERROR", Field: "low_stock"}, http.StatusBadRequest)
			return
		}
		q.LowStockOnly = low
	}
	result, err := h.svc.ListInventoryItems(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateInventoryItem handles POST /api/inventory.
func (h *Handler) apiCreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req app.ItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.CreateInventoryItem(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, item)
}

// apiGetInventoryItem handles GET /api/inventory/{id}.
func (h *Handler) apiGetInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetInventoryItem(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiUpdateInventoryItem handles PUT /api/inventory/{id}.
func (h *Handler) apiUpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.ItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdateInventoryItem(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiDeleteInventoryItem handles DELETE /api/inventory/{id}.
func (h *Handler) apiDeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteInventoryItem(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiAddStock handles POST /api/inventory/{id}/stock.
func (h *Handler) apiAddStock(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.AddStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.AddStock(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiReserveStock handles POST /api/inventory/{id}/reserve.
func (h *Handler) apiReserveStock(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.QuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.ReserveStock(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiReleaseStock handles POST /api/inventory/{id}/release.
func (h *Handler) apiReleaseStock(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.QuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.ReleaseStock(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiInventoryMovements handles GET /api/inventory/{id}/movements.
func (h *Handler) apiInventoryMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	movements, err := h.svc.GetInventoryMovements(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(movements))
}

// apiItemConsumption handles GET /api/inventory/{id}/consumption.
func (h *Handler) apiItemConsumption(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.svc.ListItemConsumption(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(rows))
}

// apiStockReport handles GET /api/inventory/report.
func (h *Handler) apiStockReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetStockReport(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, report)
}

// listOf keeps empty results serialising as [] rather than null.
func listOf[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
