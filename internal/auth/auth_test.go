package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newProtectedHandler() http.Handler {
	var capturedOwner string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedOwner = Owner(r.Context())
		w.Write([]byte(capturedOwner))
	})
	return Middleware("s3cr3t-token", "dms-submission-client")(inner)
}

func TestMiddlewareAcceptsMatchingToken(t *testing.T) {
	h := newProtectedHandler()
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set("Authorization", "Bearer s3cr3t-token")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if rec.Body.String() != "dms-submission-client" {
		t.Fatalf("body: got %q, want owner injected into context", rec.Body.String())
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	h := newProtectedHandler()
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestMiddlewareRejectsWrongToken(t *testing.T) {
	h := newProtectedHandler()
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}
}
