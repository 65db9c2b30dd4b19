package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/dms-submission/internal/clock"
	"github.com/hazyhaar/dms-submission/internal/dbopen"
)

// Store is the SQLite-backed submission repository.
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

// Open opens (or creates) the submission database at path and applies the
// schema. Pass dbopen options through for test/production tuning.
func Open(path string, clk clock.Clock, opts ...dbopen.Option) (*Store, error) {
	if clk == nil {
		clk = clock.Real()
	}
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, clock: clk}, nil
}

// New wraps an already-open *sql.DB (the schema must already be applied).
// Used by tests that want dbopen.OpenMemory's automatic cleanup.
func New(db *sql.DB, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{db: db, clock: clk}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `owner, id, sdes_correlation_id, callback_url, status,
	object_location, object_content_length, object_content_md5, object_last_modified,
	failure_reason, last_updated, locked_at, failure_count`

func scanItem(row interface{ Scan(...any) error }) (SubmissionItem, error) {
	var it SubmissionItem
	var objLocation, objMD5, failureReason sql.NullString
	var objLength, objLastModified, lockedAt sql.NullInt64
	var lastUpdated int64

	err := row.Scan(
		&it.Owner, &it.ID, &it.SDESCorrelationID, &it.CallbackURL, &it.Status,
		&objLocation, &objLength, &objMD5, &objLastModified,
		&failureReason, &lastUpdated, &lockedAt, &it.FailureCount,
	)
	if err != nil {
		return SubmissionItem{}, err
	}

	it.LastUpdated = msToTime(lastUpdated)
	if lockedAt.Valid {
		t := msToTime(lockedAt.Int64)
		it.LockedAt = &t
	}
	if failureReason.Valid {
		reason := failureReason.String
		it.FailureReason = &reason
	}
	if objLocation.Valid {
		it.ObjectSummary = &ObjectSummary{
			Location:      objLocation.String,
			ContentLength: objLength.Int64,
			ContentMD5:    objMD5.String,
			LastModified:  msToTime(objLastModified.Int64),
		}
	}
	return it, nil
}

func msToTime(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Insert creates a new SubmissionItem. It fails with *ErrDuplicate if the
// (owner, id) pair or the sdesCorrelationId already exists. lastUpdated is
// stamped by the store, never taken from the caller.
func (s *Store) Insert(ctx context.Context, item SubmissionItem) (SubmissionItem, error) {
	now := s.clock.Now()
	item.LastUpdated = now
	item.LockedAt = nil

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM submission_items WHERE owner = ? AND id = ?`,
			item.Owner, item.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("store: check owner/id: %w", err)
		}
		if exists > 0 {
			return &ErrDuplicate{Owner: item.Owner, ID: item.ID, Field: "owner_id"}
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM submission_items WHERE sdes_correlation_id = ?`,
			item.SDESCorrelationID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("store: check correlation id: %w", err)
		}
		if exists > 0 {
			return &ErrDuplicate{CorrelationID: item.SDESCorrelationID, Field: "correlation_id"}
		}

		var objLocation, objMD5 any
		var objLength, objLastModified any
		if item.ObjectSummary != nil {
			objLocation = item.ObjectSummary.Location
			objLength = item.ObjectSummary.ContentLength
			objMD5 = item.ObjectSummary.ContentMD5
			objLastModified = item.ObjectSummary.LastModified.UnixMilli()
		}
		var failureReason any
		if item.FailureReason != nil {
			failureReason = *item.FailureReason
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO submission_items (
				owner, id, sdes_correlation_id, callback_url, status,
				object_location, object_content_length, object_content_md5, object_last_modified,
				failure_reason, last_updated, locked_at, failure_count
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			item.Owner, item.ID, item.SDESCorrelationID, item.CallbackURL, item.Status,
			objLocation, objLength, objMD5, objLastModified,
			failureReason, now.UnixMilli(), nil, item.FailureCount,
		)
		if err != nil {
			return fmt.Errorf("store: insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return SubmissionItem{}, err
	}
	return item, nil
}

// Get retrieves an item by (owner, id).
func (s *Store) Get(ctx context.Context, owner, id string) (SubmissionItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM submission_items WHERE owner = ? AND id = ?`, owner, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return SubmissionItem{}, &ErrNotFound{Owner: owner, ID: id}
	}
	if err != nil {
		return SubmissionItem{}, fmt.Errorf("store: get: %w", err)
	}
	return item, nil
}

// GetByCorrelationID retrieves an item by its SDES correlation id.
func (s *Store) GetByCorrelationID(ctx context.Context, correlationID string) (SubmissionItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM submission_items WHERE sdes_correlation_id = ?`, correlationID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return SubmissionItem{}, &ErrNotFound{CorrelationID: correlationID}
	}
	if err != nil {
		return SubmissionItem{}, fmt.Errorf("store: get by correlation id: %w", err)
	}
	return item, nil
}

// ListOptions filters List.
type ListOptions struct {
	Owner         string
	Status        Status // empty means any
	CreatedBefore sql.NullTime
	Limit         int
}

// List returns items for an owner, optionally filtered by status and
// created-before, oldest-first. Used by admin/inspection tooling; not on
// the hot path of any worker.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]SubmissionItem, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + selectColumns + ` FROM submission_items WHERE owner = ?`
	args := []any{opts.Owner}
	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, opts.Status)
	}
	if opts.CreatedBefore.Valid {
		query += ` AND last_updated < ?`
		args = append(args, opts.CreatedBefore.Time.UnixMilli())
	}
	query += ` ORDER BY last_updated ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var items []SubmissionItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Remove deletes an item by (owner, id). Idempotent: succeeds if absent.
func (s *Store) Remove(ctx context.Context, owner, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM submission_items WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("store: remove: %w", err)
	}
	return nil
}

// updateFields applies a status/failureReason change to the row matched by
// whereClause/whereArgs, returning the updated item. A nil failureReason
// clears any existing reason (set=true, value=nil); a non-nil value
// replaces it. Passing set=false leaves the existing reason untouched.
func (s *Store) updateFields(ctx context.Context, whereClause string, whereArgs []any, newStatus Status, setReason bool, failureReason *string) (SubmissionItem, error) {
	now := s.clock.Now()

	var updated SubmissionItem
	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM submission_items WHERE `+whereClause, whereArgs...)
		current, err := scanItem(row)
		if err == sql.ErrNoRows {
			return &ErrNothingToUpdate{}
		}
		if err != nil {
			return fmt.Errorf("store: update select: %w", err)
		}

		if !CanTransition(current.Status, newStatus) {
			return &ErrIllegalTransition{From: current.Status, To: newStatus}
		}

		setClauses := `status = ?, last_updated = ?`
		args := []any{newStatus, now.UnixMilli()}
		if setReason {
			var reasonArg any
			if failureReason != nil {
				reasonArg = *failureReason
			}
			setClauses += `, failure_reason = ?`
			args = append(args, reasonArg)
		}
		execQuery := `UPDATE submission_items SET ` + setClauses + ` WHERE ` + whereClause
		args = append(args, whereArgs...)
		if _, err := tx.ExecContext(ctx, execQuery, args...); err != nil {
			return fmt.Errorf("store: update exec: %w", err)
		}

		row = tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM submission_items WHERE `+whereClause, whereArgs...)
		updated, err = scanItem(row)
		if err != nil {
			return fmt.Errorf("store: update reselect: %w", err)
		}
		return nil
	})
	if err != nil {
		if e, ok := err.(*ErrNothingToUpdate); ok {
			*e = fillNothingToUpdate(*e, whereClause, whereArgs)
			return SubmissionItem{}, e
		}
		return SubmissionItem{}, err
	}
	return updated, nil
}

func fillNothingToUpdate(e ErrNothingToUpdate, whereClause string, whereArgs []any) ErrNothingToUpdate {
	if whereClause == "owner = ? AND id = ?" && len(whereArgs) == 2 {
		e.Owner, _ = whereArgs[0].(string)
		e.ID, _ = whereArgs[1].(string)
	} else if whereClause == "sdes_correlation_id = ?" && len(whereArgs) == 1 {
		e.CorrelationID, _ = whereArgs[0].(string)
	}
	return e
}

// Update transitions the item identified by (owner, id) to newStatus. A nil
// failureReason removes any existing reason.
func (s *Store) Update(ctx context.Context, owner, id string, newStatus Status, failureReason *string) (SubmissionItem, error) {
	return s.updateFields(ctx, "owner = ? AND id = ?", []any{owner, id}, newStatus, true, failureReason)
}

// UpdateByCorrelationID transitions the item identified by its SDES
// correlation id to newStatus. Used by the inbound SDES status-update
// endpoint.
func (s *Store) UpdateByCorrelationID(ctx context.Context, correlationID string, newStatus Status, failureReason *string) (SubmissionItem, error) {
	return s.updateFields(ctx, "sdes_correlation_id = ?", []any{correlationID}, newStatus, true, failureReason)
}
