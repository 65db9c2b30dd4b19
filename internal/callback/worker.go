package callback

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/dms-submission/internal/store"
)

// Worker drains the Processed and Failed queues independently each tick,
// POSTing the callback and transitioning each item to Completed on success
// or bumping failureCount (status unchanged) on failure.
type Worker struct {
	Store         *store.Store
	Client        Client
	LockTTLMillis int64
	Logger        *slog.Logger
}

// Tick drains both terminal-from-SDES queues, each until it reports NotFound
// or a lease or notify attempt fails.
func (w *Worker) Tick(ctx context.Context) {
	w.drain(ctx, store.StatusProcessed)
	w.drain(ctx, store.StatusFailed)
}

func (w *Worker) drain(ctx context.Context, status store.Status) {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	for {
		var notifyErr error

		result, err := w.Store.LockAndReplaceOldestItemByStatus(ctx, status, w.LockTTLMillis,
			func(ctx context.Context, item store.SubmissionItem) (store.SubmissionItem, error) {
				notifyErr = w.Client.Notify(ctx, item.CallbackURL, Notification{
					ID:            item.ID,
					Status:        item.Status,
					ObjectSummary: item.ObjectSummary,
					FailureReason: item.FailureReason,
				})

				out := item.Clone()
				if notifyErr != nil {
					// Status unchanged; only failureCount advances. The
					// lock-and-replace commit path treats same-status
					// replacement as legal (no DAG edge needed).
					out.FailureCount++
					return out, nil
				}

				out.Status = store.StatusCompleted
				return out, nil
			})
		if err != nil {
			log.Warn("callback: lease handling failed", "status", status, "error", err)
			return
		}
		if result == store.NotFound {
			return
		}
		if notifyErr != nil {
			// The failed item is lock-free again and still in this status;
			// stop here so it gets one attempt per tick, not a tight retry loop.
			log.Warn("callback: notify failed, failureCount incremented", "status", status, "error", notifyErr)
			return
		}
		// loop to drain the next item in this status
	}
}
