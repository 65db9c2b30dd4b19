// Package failure implements the worker that promotes callback-exhausted
// items to the terminal CallbackFailed state.
package failure

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/dms-submission/internal/store"
)

// Worker promotes Processed/Failed items whose failureCount has reached
// MaxFailures to CallbackFailed, freeing the work slot an unreachable
// client callback would otherwise hold forever.
type Worker struct {
	Store         *store.Store
	MaxFailures   int
	LockTTLMillis int64
	Logger        *slog.Logger
}

// Tick lists every callback-exhausted item and promotes each through the
// same lease discipline as the other workers, so a concurrent failure-worker
// instance can't double-promote the same row.
func (w *Worker) Tick(ctx context.Context) {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	items, err := w.Store.ListCallbackExhausted(ctx, w.MaxFailures)
	if err != nil {
		log.Warn("failure: list callback exhausted failed", "error", err)
		return
	}

	for _, item := range items {
		result, err := w.Store.LockAndReplaceItem(ctx, item.Owner, item.ID, w.LockTTLMillis,
			func(ctx context.Context, item store.SubmissionItem) (store.SubmissionItem, error) {
				out := item.Clone()
				out.Status = store.StatusCallbackFailed
				return out, nil
			})
		if err != nil {
			log.Warn("failure: promote failed", "owner", item.Owner, "id", item.ID, "error", err)
			continue
		}
		if result == store.Found {
			log.Info("failure: promoted to CallbackFailed", "owner", item.Owner, "id", item.ID, "failure_count", item.FailureCount)
		}
	}
}
