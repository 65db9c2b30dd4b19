package sdes

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/dms-submission/internal/store"
)

// Worker drains Submitted items, notifies SDES, and advances them to
// Forwarded. A notify failure leaves the item in Submitted (lock released)
// for retry on the next tick.
type Worker struct {
	Store             *store.Store
	Client            Client
	LockTTLMillis     int64
	InformationType   string
	RecipientOrSender string
	Logger            *slog.Logger
}

// Tick drains eligible Submitted items, one lease at a time, until the
// repository reports NotFound or an error occurs; on an error the tick stops
// and the remaining items wait for the next tick. It never returns an error:
// all failures are logged so the scheduler's schedule is never disrupted.
func (w *Worker) Tick(ctx context.Context) {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	for {
		result, err := w.Store.LockAndReplaceOldestItemByStatus(ctx, store.StatusSubmitted, w.LockTTLMillis,
			func(ctx context.Context, item store.SubmissionItem) (store.SubmissionItem, error) {
				location := item.SDESCorrelationID + ".zip"
				if item.ObjectSummary != nil && item.ObjectSummary.Location != "" {
					location = item.ObjectSummary.Location
				}

				if err := w.Client.Notify(ctx, NotifyRequest{
					CorrelationID:       item.SDESCorrelationID,
					InformationType:     w.InformationType,
					RecipientOrSender:   w.RecipientOrSender,
					ObjectStoreLocation: location,
				}); err != nil {
					return store.SubmissionItem{}, err
				}

				out := item.Clone()
				out.Status = store.StatusForwarded
				return out, nil
			})
		if err != nil {
			log.Warn("sdes: tick stopped on error, will retry next tick", "error", err)
			return
		}
		if result == store.NotFound {
			return
		}
		// result == Found && err == nil: loop to drain the next item.
	}
}
