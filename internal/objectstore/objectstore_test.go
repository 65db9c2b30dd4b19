package objectstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazyhaar/dms-submission/internal/objectstore"
)

func TestMemoryUploadAndGet(t *testing.T) {
	m := objectstore.NewMemory()
	summary, err := m.Upload(context.Background(), "a/b.zip", []byte("hello"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if summary.Location != "a/b.zip" || summary.ContentLength != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	data, ok := m.Get("a/b.zip")
	if !ok || string(data) != "hello" {
		t.Fatalf("Get: got %q, %v", data, ok)
	}
}

func TestMemoryUploadRespectsCancelledContext(t *testing.T) {
	m := objectstore.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Upload(ctx, "a.zip", []byte("x")); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestHTTPStoreUploadSuccess(t *testing.T) {
	var gotBody []byte
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := objectstore.NewHTTPStore(srv.URL, 5*time.Second)
	summary, err := s.Upload(context.Background(), "corr-1.zip", []byte("payload"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("method: got %s, want PUT", gotMethod)
	}
	if gotPath != "/corr-1.zip" {
		t.Fatalf("path: got %s", gotPath)
	}
	if string(gotBody) != "payload" {
		t.Fatalf("body: got %q", gotBody)
	}
	if summary.ContentLength != int64(len("payload")) {
		t.Fatalf("ContentLength: got %d", summary.ContentLength)
	}
	if summary.ContentMD5 == "" {
		t.Fatal("expected a computed ContentMD5 fallback")
	}
}

func TestHTTPStoreUploadNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := objectstore.NewHTTPStore(srv.URL, 5*time.Second)
	if _, err := s.Upload(context.Background(), "corr-1.zip", []byte("payload")); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
