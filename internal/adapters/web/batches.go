package web

import (
	"net/http"

	"himalayan-flavours/internal/app"
)

// apiListBatches handles GET /api/batches?status=&category_id=&search=.
func (h *Handler) apiListBatches(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryUUID(w, r, "category_id")
	if !ok {
		return
	}
	batches, err := h.svc.ListBatches(r.Context(), app.BatchQuery{
		Status:     r.URL.Query().Get("status"),
		CategoryID: categoryID,
		Search:     r.URL.Query().Get("search"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(batches))
}

// apiCreateBatch handles POST /api/batches.
func (h *Handler) apiCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req app.BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	batch, err := h.svc.CreateBatch(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, batch)
}

// apiGetBatch handles GET /api/batches/{id}.
func (h *Handler) apiGetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	batch, err := h.svc.GetBatch(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, batch)
}

// apiUpdateBatch handles PUT /api/batches/{id}.
func (h *Handler) apiUpdateBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	batch, err := h.svc.UpdateBatch(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, batch)
}

// apiDeleteBatch handles DELETE /api/batches/{id}. Consumed stock is returned first.
func (h *Handler) apiDeleteBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteBatch(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiAddBatchProduct handles POST /api/batches/{id}/products.
func (h *Handler) apiAddBatchProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.BatchProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bp, err := h.svc.AddBatchProduct(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, bp)
}

// apiRemoveBatchProduct handles DELETE /api/batches/{id}/products/{productID}.
func (h *Handler) apiRemoveBatchProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	if err := h.svc.RemoveBatchProduct(r.Context(), id, productID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiBatchConsumption handles GET /api/batches/{id}/consumption.
func (h *Handler) apiBatchConsumption(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.svc.ListBatchConsumption(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(rows))
}

// apiBatchProfit handles GET /api/batches/{id}/profit.
func (h *Handler) apiBatchProfit(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	pl, err := h.svc.GetBatchProfitLoss(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, pl)
}

// apiListBatchCategories handles GET /api/batch-categories.
func (h *Handler) apiListBatchCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListBatchCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(cats))
}

// apiCreateBatchCategory handles POST /api/batch-categories.
func (h *Handler) apiCreateBatchCategory(w http.ResponseWriter, r *http.Request) {
	var req app.BatchCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, err := h.svc.CreateBatchCategory(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, cat)
}

// apiAddConsumption handles POST /api/consumption.
func (h *Handler) apiAddConsumption(w http.ResponseWriter, r *http.Request) {
	var req app.ConsumptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.AddConsumption(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, c)
}

// apiUpdateConsumption handles PUT /api/consumption/{id}.
func (h *Handler) apiUpdateConsumption(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateConsumptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateConsumption(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, c)
}

// apiDeleteConsumption handles DELETE /api/consumption/{id}.
func (h *Handler) apiDeleteConsumption(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteConsumption(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
