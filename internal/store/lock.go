package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/dms-submission/internal/dbopen"
)

// LeaseResult reports whether LockAndReplaceOldestItemByStatus found and
// leased an item, independent of whether the caller's function succeeded.
type LeaseResult int

const (
	// NotFound means no item with the given status was eligible for lease
	// (none exists, or every candidate is currently locked within its TTL).
	NotFound LeaseResult = iota
	// Found means an item was leased; the caller's function ran (and may
	// itself have failed — that is reported via the returned error, not
	// via LeaseResult).
	Found
)

// ReplaceFunc is invoked with the leased item and returns the item that
// should replace it in the repository. Returning an error aborts the
// replacement: the lease is released (lockedAt cleared) but status and
// lastUpdated are left untouched, and the error is propagated to the
// caller of LockAndReplaceOldestItemByStatus.
type ReplaceFunc func(ctx context.Context, item SubmissionItem) (SubmissionItem, error)

// LockAndReplaceOldestItemByStatus selects the oldest (by lastUpdated) item
// in the given status whose lock is free (lockedAt is null, or now minus
// lockedAt exceeds lockTTL), leases it with a compare-and-swap that also
// re-checks lastUpdated (so a concurrent leaser never double-claims the same
// row), invokes fn, and on success commits fn's replacement item with
// lockedAt cleared and lastUpdated restamped. On fn's failure, the lease is
// released but the row is otherwise untouched.
//
// This mirrors a visibility-timeout queue's claim/ack/nack cycle, generalized
// so the "ack" payload is an arbitrary replacement item rather than a simple
// delete, and the visibility flag is a per-status lease rather than a single
// binary visible/hidden bit.
func (s *Store) LockAndReplaceOldestItemByStatus(ctx context.Context, status Status, lockTTL int64, fn ReplaceFunc) (LeaseResult, error) {
	selectCandidate := func(tx *sql.Tx, cutoff int64) (SubmissionItem, error) {
		row := tx.QueryRowContext(ctx, `
			SELECT `+selectColumns+`
			FROM submission_items
			WHERE status = ? AND (locked_at IS NULL OR locked_at <= ?)
			ORDER BY last_updated ASC
			LIMIT 1`, status, cutoff)
		return scanItem(row)
	}
	return s.leaseAndRun(ctx, selectCandidate, lockTTL, fn)
}

// LockAndReplaceItem leases a single known item by (owner, id), applying the
// same TTL/compare-and-swap discipline as
// LockAndReplaceOldestItemByStatus. Used by the failure worker, which
// already knows which row it wants to promote (from ListCallbackExhausted)
// and must not let the generic oldest-by-status selection hand it a
// different, not-yet-exhausted row that happens to share that status.
func (s *Store) LockAndReplaceItem(ctx context.Context, owner, id string, lockTTL int64, fn ReplaceFunc) (LeaseResult, error) {
	selectCandidate := func(tx *sql.Tx, cutoff int64) (SubmissionItem, error) {
		row := tx.QueryRowContext(ctx, `
			SELECT `+selectColumns+`
			FROM submission_items
			WHERE owner = ? AND id = ? AND (locked_at IS NULL OR locked_at <= ?)`,
			owner, id, cutoff)
		return scanItem(row)
	}
	return s.leaseAndRun(ctx, selectCandidate, lockTTL, fn)
}

func (s *Store) leaseAndRun(ctx context.Context, selectCandidate func(tx *sql.Tx, cutoff int64) (SubmissionItem, error), lockTTL int64, fn ReplaceFunc) (LeaseResult, error) {
	var leased SubmissionItem
	var leasedLastUpdated int64

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		now := s.clock.Now()
		nowMs := now.UnixMilli()
		// locked_at <= cutoff  <=>  now - locked_at > lockTTL (whole ms).
		cutoff := nowMs - lockTTL - 1

		item, err := selectCandidate(tx, cutoff)
		if errors.Is(err, sql.ErrNoRows) {
			return errNoCandidate
		}
		if err != nil {
			return fmt.Errorf("store: lease select: %w", err)
		}
		leasedLastUpdated = item.LastUpdated.UnixMilli()

		// Compare-and-swap: only claim if last_updated has not changed
		// since we read it, so a concurrent leaser racing on the same row
		// can't both win.
		res, err := tx.ExecContext(ctx, `
			UPDATE submission_items SET locked_at = ?
			WHERE owner = ? AND id = ? AND last_updated = ? AND (locked_at IS NULL OR locked_at <= ?)`,
			nowMs, item.Owner, item.ID, leasedLastUpdated, cutoff,
		)
		if err != nil {
			return fmt.Errorf("store: lease cas: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("store: lease cas rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race to a concurrent leaser.
			return errNoCandidate
		}

		item.LockedAt = &now
		leased = item
		return nil
	})

	if errors.Is(err, errNoCandidate) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}

	replacement, fnErr := fn(ctx, leased)
	if fnErr != nil {
		// Release the lease, leave status/lastUpdated untouched.
		if _, relErr := s.db.ExecContext(ctx,
			`UPDATE submission_items SET locked_at = NULL WHERE owner = ? AND id = ? AND last_updated = ?`,
			leased.Owner, leased.ID, leasedLastUpdated,
		); relErr != nil {
			return Found, fmt.Errorf("store: release lease after handler error: %w (handler error: %v)", relErr, fnErr)
		}
		return Found, fnErr
	}

	if err := s.commitReplacement(ctx, leased, replacement); err != nil {
		return Found, err
	}
	return Found, nil
}

var errNoCandidate = errors.New("store: no lease candidate")

func (s *Store) commitReplacement(ctx context.Context, leased, replacement SubmissionItem) error {
	if !CanTransition(leased.Status, replacement.Status) {
		return &ErrIllegalTransition{From: leased.Status, To: replacement.Status}
	}

	now := s.clock.Now()

	var objLocation, objMD5 any
	var objLength, objLastModified any
	if replacement.ObjectSummary != nil {
		objLocation = replacement.ObjectSummary.Location
		objLength = replacement.ObjectSummary.ContentLength
		objMD5 = replacement.ObjectSummary.ContentMD5
		objLastModified = replacement.ObjectSummary.LastModified.UnixMilli()
	}
	var failureReason any
	if replacement.FailureReason != nil {
		failureReason = *replacement.FailureReason
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE submission_items SET
			status = ?, callback_url = ?,
			object_location = ?, object_content_length = ?, object_content_md5 = ?, object_last_modified = ?,
			failure_reason = ?, last_updated = ?, locked_at = NULL, failure_count = ?
		WHERE owner = ? AND id = ?`,
		replacement.Status, replacement.CallbackURL,
		objLocation, objLength, objMD5, objLastModified,
		failureReason, now.UnixMilli(), replacement.FailureCount,
		leased.Owner, leased.ID,
	)
	if err != nil {
		return fmt.Errorf("store: commit replacement: %w", err)
	}
	return nil
}

// ListCallbackExhausted returns Processed/Failed items whose failureCount
// has reached maxFailures, for the failure worker to promote to
// CallbackFailed.
func (s *Store) ListCallbackExhausted(ctx context.Context, maxFailures int) ([]SubmissionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM submission_items
		WHERE status IN (?, ?) AND failure_count >= ?
		ORDER BY last_updated ASC`,
		StatusProcessed, StatusFailed, maxFailures,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list callback exhausted: %w", err)
	}
	defer rows.Close()

	var items []SubmissionItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list callback exhausted scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
