package web

import (
	"net/http"

	"himalayan-flavours/internal/app"
)

// apiListAccountingHeads handles GET /api/accounting-heads?type=expense|income.
func (h *Handler) apiListAccountingHeads(w http.ResponseWriter, r *http.Request) {
	heads, err := h.svc.ListAccountingHeads(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(heads))
}

// apiCreateAccountingHead handles POST /api/accounting-heads.
func (h *Handler) apiCreateAccountingHead(w http.ResponseWriter, r *http.Request) {
	var req app.AccountingHeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	head, err := h.svc.CreateAccountingHead(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, head)
}

// apiUpdateAccountingHead handles PUT /api/accounting-heads/{id}.
func (h *Handler) apiUpdateAccountingHead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req app.AccountingHeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	head, err := h.svc.UpdateAccountingHead(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, head)
}

// apiDeleteAccountingHead handles DELETE /api/accounting-heads/{id}.
func (h *Handler) apiDeleteAccountingHead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteAccountingHead(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiListProducts handles GET /api/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(products))
}

// apiCreateProduct handles POST /api/products.
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req app.ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, p)
}

// apiListCustomers handles GET /api/customers.
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.ListCustomers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, listOf(customers))
}

// apiCreateCustomer handles POST /api/customers.
func (h *Handler) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.CustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, c)
}
