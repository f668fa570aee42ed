package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"himalayan-flavours/internal/app"
	"himalayan-flavours/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorBody(w, r, errorResponse{Error: message, Code: code}, status)
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, resp errorResponse, status int) {
	resp.RequestID = requestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

// classifyError maps a service error onto an HTTP status and a stable code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, core.ErrInsufficientStock):
		return http.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, core.ErrInvoiceCapacity):
		return http.StatusConflict, "INVOICE_CAPACITY_EXCEEDED"
	case errors.Is(err, core.ErrTransport):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	case errors.Is(err, app.ErrAssistantUnavailable):
		return http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// fail writes err as a JSON error. Unclassified errors are logged and their
// text is withheld from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	resp := errorResponse{Error: err.Error(), Code: code}

	var verr *core.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}

	switch {
	case status == http.StatusInternalServerError:
		h.log.Error("request failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		resp.Error = "internal server error"
	case status == http.StatusServiceUnavailable:
		h.log.Warn("dependency unavailable",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err))
	}
	writeErrorBody(w, r, resp, status)
}
