// Package submit implements the synchronous submission pipeline: validate
// the incoming request, package the PDF and its metadata into a zip, upload
// it to the object store, and record a new SubmissionItem — all on a
// task-private scratch directory that is guaranteed to be cleaned up on
// every exit path, mirroring the teacher's sas_ingester.ReceiveFile
// discipline of an os.RemoveAll guard ahead of every early return.
package submit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazyhaar/dms-submission/internal/idgen"
	"github.com/hazyhaar/dms-submission/internal/objectstore"
	"github.com/hazyhaar/dms-submission/internal/store"
)

// Result is the outcome of a successful Submit call.
type Result struct {
	ID     string
	Status store.Status
}

// Pipeline wires the collaborators the submit operation needs: the
// repository, the object store, id generation, and validation config.
type Pipeline struct {
	Store       *store.Store
	ObjectStore objectstore.Store
	IDGen       idgen.Generator
	ScratchDir  string
	ValidateCfg ValidationConfig
	Logger      *slog.Logger
}

// Submit validates req, packages it, uploads it, and inserts the resulting
// SubmissionItem as the given owner. A non-nil ValidationErrors return means
// the request never reached the side-effecting steps at all.
func (p *Pipeline) Submit(ctx context.Context, owner string, req Request) (Result, error) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	if errs := Validate(req, p.ValidateCfg); len(errs) > 0 {
		return Result{}, errs
	}

	gen := p.IDGen
	if gen == nil {
		gen = idgen.Default
	}

	workDir, err := os.MkdirTemp(p.ScratchDir, "dms-submission-")
	if err != nil {
		return Result{}, fmt.Errorf("submit: create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warn("submit: scratch dir cleanup failed", "dir", workDir, "error", rmErr)
		}
	}()

	sdesCorrelationID := gen()
	submissionReference := req.SubmissionReference
	if submissionReference == "" {
		submissionReference = gen()
	}

	metadataXML, err := buildMetadataXML(req, submissionReference, sdesCorrelationID)
	if err != nil {
		return Result{}, fmt.Errorf("submit: build metadata: %w", err)
	}
	metadataPath := filepath.Join(workDir, "metadata.xml")
	if err := os.WriteFile(metadataPath, metadataXML, 0o600); err != nil {
		return Result{}, fmt.Errorf("submit: write metadata: %w", err)
	}
	metadataOnDisk, err := os.ReadFile(metadataPath)
	if err != nil {
		return Result{}, fmt.Errorf("submit: read metadata: %w", err)
	}

	zipBytes, err := buildZip(req.PDF, metadataOnDisk)
	if err != nil {
		return Result{}, fmt.Errorf("submit: build zip: %w", err)
	}

	objectPath := sdesCorrelationID + ".zip"
	objectSummary, err := p.ObjectStore.Upload(ctx, objectPath, zipBytes)
	if err != nil {
		return Result{}, &TransientError{Op: "object store upload", Cause: err}
	}

	item := store.SubmissionItem{
		Owner:             owner,
		ID:                submissionReference,
		SDESCorrelationID: sdesCorrelationID,
		CallbackURL:       req.CallbackURL,
		Status:            store.StatusSubmitted,
		ObjectSummary:     &objectSummary,
	}
	if _, err := p.Store.Insert(ctx, item); err != nil {
		// The uploaded object is now orphaned; the service does not
		// attempt to delete it back out. Operators reconcile by listing
		// objects with no matching repository row.
		return Result{}, err
	}

	return Result{ID: submissionReference, Status: store.StatusSubmitted}, nil
}

// TransientError wraps a failure in an out-of-scope external collaborator
// (object store, SDES, callback) that the caller should surface as a 502
// rather than a validation or conflict error.
type TransientError struct {
	Op    string
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("submit: %s: %v", e.Op, e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}
