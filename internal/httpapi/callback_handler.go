package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hazyhaar/dms-submission/internal/store"
)

type sdesCallbackRequest struct {
	CorrelationID string `json:"correlationId"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

// sdesCallback handles POST /sdes-callback, the inbound status-update
// notification SDES sends once it has processed (or failed to process) a
// submission. Per spec.md §6 this applies
// update(correlationId, status, failureReason) and maps the repository's
// outcome directly onto the HTTP response.
func (h *handlers) sdesCallback(w http.ResponseWriter, r *http.Request) {
	var req sdesCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	newStatus := store.Status(req.Status)
	if newStatus != store.StatusProcessed && newStatus != store.StatusFailed {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be Processed or Failed"})
		return
	}

	var failureReason *string
	if req.FailureReason != "" {
		failureReason = &req.FailureReason
	}

	item, err := h.store.UpdateByCorrelationID(r.Context(), req.CorrelationID, newStatus, failureReason)
	if err != nil {
		h.writeCallbackError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     item.ID,
		"status": item.Status,
	})
}

func (h *handlers) writeCallbackError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *store.ErrNothingToUpdate
	if errors.As(err, &notFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound.Error()})
		return
	}

	var illegal *store.ErrIllegalTransition
	if errors.As(err, &illegal) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": illegal.Error()})
		return
	}

	h.logger.ErrorContext(r.Context(), "sdes-callback: unexpected failure", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
