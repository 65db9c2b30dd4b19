package submit

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ValidationError reports one field-level validation failure.
type ValidationError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("submit: field %q: %s", e.Field, e.Code)
}

// ValidationErrors collects every field-level failure found for a single
// request, so the 400 response can report all of them at once rather than
// only the first.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

// Request is the parsed, not-yet-validated submit payload. PDF holds the
// raw bytes of the uploaded "form" file part.
type Request struct {
	SubmissionReference string
	CallbackURL         string
	PDF                 []byte

	MetadataStore              string
	MetadataSource             string
	MetadataTimeOfReceipt      string
	MetadataFormID             string
	MetadataCustomerID         string
	MetadataSubmissionMark     string
	MetadataCASKey             string
	MetadataClassificationType string
	MetadataBusinessArea       string
}

// ValidationConfig carries the one configuration flag validation needs:
// whether localhost callback URLs are permitted in addition to .mdtp hosts.
type ValidationConfig struct {
	AllowLocalhostCallbacks bool
}

// Validate checks every field in req, accumulating every violation rather
// than stopping at the first, so the caller can report them all in one 400
// response. A non-empty ValidationErrors is always returned as the error
// value (never a bare nil interface wrapping a non-nil-looking empty slice).
func Validate(req Request, cfg ValidationConfig) ValidationErrors {
	var errs ValidationErrors

	if err := validateCallbackURL(req.CallbackURL, cfg); err != nil {
		errs = append(errs, ValidationError{Field: "callbackUrl", Code: err.Error()})
	}

	if _, err := strconv.ParseBool(req.MetadataStore); err != nil {
		errs = append(errs, ValidationError{Field: "metadata.store", Code: "must_be_boolean"})
	}

	if _, err := parseTimeOfReceipt(req.MetadataTimeOfReceipt); err != nil {
		errs = append(errs, ValidationError{Field: "metadata.timeOfReceipt", Code: "must_be_iso8601"})
	}

	nonEmpty := map[string]string{
		"metadata.source":             req.MetadataSource,
		"metadata.formId":             req.MetadataFormID,
		"metadata.customerId":         req.MetadataCustomerID,
		"metadata.submissionMark":     req.MetadataSubmissionMark,
		"metadata.casKey":             req.MetadataCASKey,
		"metadata.classificationType": req.MetadataClassificationType,
		"metadata.businessArea":       req.MetadataBusinessArea,
	}
	// Map iteration order is random; sort the field names so a given
	// invalid request always reports its errors in the same order.
	for _, field := range sortedKeys(nonEmpty) {
		if strings.TrimSpace(nonEmpty[field]) == "" {
			errs = append(errs, ValidationError{Field: field, Code: "must_not_be_empty"})
		}
	}

	if len(req.PDF) == 0 {
		errs = append(errs, ValidationError{Field: "form", Code: "must_not_be_empty"})
	}

	return errs
}

func validateCallbackURL(raw string, cfg ValidationConfig) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("callbackUrl.invalid")
	}
	host := u.Hostname()
	if strings.HasSuffix(host, ".mdtp") {
		return nil
	}
	if cfg.AllowLocalhostCallbacks && host == "localhost" {
		return nil
	}
	return fmt.Errorf("callbackUrl.invalidHost")
}

// parseTimeOfReceipt accepts RFC3339 with either second or nanosecond
// precision, per spec's "ISO-8601 date-time (nanosecond precision
// accepted)".
func parseTimeOfReceipt(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("submit: invalid timeOfReceipt %q", raw)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
