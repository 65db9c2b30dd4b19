package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/dms-submission/internal/auth"
	"github.com/hazyhaar/dms-submission/internal/store"
	"github.com/hazyhaar/dms-submission/internal/submit"
)

type handlers struct {
	pipeline *submit.Pipeline
	store    *store.Store
	logger   *slog.Logger
	maxBody  int64
}

const formFieldSubmissionReference = "submissionReference"
const formFieldCallbackURL = "callbackUrl"
const formFieldStore = "metadata.store"
const formFieldSource = "metadata.source"
const formFieldTimeOfReceipt = "metadata.timeOfReceipt"
const formFieldFormID = "metadata.formId"
const formFieldCustomerID = "metadata.customerId"
const formFieldSubmissionMark = "metadata.submissionMark"
const formFieldCASKey = "metadata.casKey"
const formFieldClassificationType = "metadata.classificationType"
const formFieldBusinessArea = "metadata.businessArea"
const formFieldPDF = "form"

// submit handles POST /dms-submission/submit: multipart decode, then
// delegate to submit.Pipeline. It is a thin pass-through per spec.md §6 —
// all validation and packaging logic lives in internal/submit.
func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(h.maxBody); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []submit.ValidationError{{Field: "form", Code: "invalid-multipart"}},
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(formFieldPDF)
	var pdf []byte
	if err == nil {
		defer file.Close()
		pdf, err = io.ReadAll(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"errors": []submit.ValidationError{{Field: "form", Code: "unreadable"}},
			})
			return
		}
	}

	req := submit.Request{
		SubmissionReference:        r.FormValue(formFieldSubmissionReference),
		CallbackURL:                r.FormValue(formFieldCallbackURL),
		PDF:                        pdf,
		MetadataStore:              r.FormValue(formFieldStore),
		MetadataSource:             r.FormValue(formFieldSource),
		MetadataTimeOfReceipt:      r.FormValue(formFieldTimeOfReceipt),
		MetadataFormID:             r.FormValue(formFieldFormID),
		MetadataCustomerID:         r.FormValue(formFieldCustomerID),
		MetadataSubmissionMark:     r.FormValue(formFieldSubmissionMark),
		MetadataCASKey:             r.FormValue(formFieldCASKey),
		MetadataClassificationType: r.FormValue(formFieldClassificationType),
		MetadataBusinessArea:       r.FormValue(formFieldBusinessArea),
	}

	owner := auth.Owner(r.Context())
	result, err := h.pipeline.Submit(r.Context(), owner, req)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     result.ID,
		"status": result.Status,
	})
}

func (h *handlers) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var valErrs submit.ValidationErrors
	if errors.As(err, &valErrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": valErrs})
		return
	}

	var dup *store.ErrDuplicate
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": dup.Error()})
		return
	}

	var transient *submit.TransientError
	if errors.As(err, &transient) {
		h.logger.ErrorContext(r.Context(), "submit: upstream collaborator failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
		return
	}

	h.logger.ErrorContext(r.Context(), "submit: unexpected failure", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
