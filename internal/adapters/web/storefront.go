package web

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"himalayan-flavours/internal/subscribers"
)

type subscribeRequest struct {
	Email string `json:"email"`
}

type subscribeResponse struct {
	Email   string `json:"email"`
	Created bool   `json:"created"`
}

// subscribe handles POST /api/emails. Repeat sign-ups answer 200 instead of 201.
func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	if h.subs == nil {
		writeError(w, r, "sign-ups are not enabled", "NOT_FOUND", http.StatusNotFound)
		return
	}
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, added, err := h.subs.Add(req.Email)
	if err != nil {
		if errors.Is(err, subscribers.ErrInvalidEmail) {
			writeErrorBody(w, r, errorResponse{Error: err.Error(), Code: "VALIDATION_ERROR", Field: "email"}, http.StatusBadRequest)
			return
		}
		h.log.Error("subscriber store write failed", zap.Error(err))
		writeError(w, r, "could not save email", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	resp := subscribeResponse{Email: sub.Email, Created: added}
	if added {
		writeCreated(w, resp)
		return
	}
	writeJSON(w, resp)
}

// listSubscribers handles GET /api/emails.
func (h *Handler) listSubscribers(w http.ResponseWriter, r *http.Request) {
	if h.subs == nil {
		writeJSON(w, []subscribers.Subscriber{})
		return
	}
	list, err := h.subs.List()
	if err != nil {
		h.log.Error("subscriber store read failed", zap.Error(err))
		writeError(w, r, "could not read subscribers", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, listOf(list))
}
