package store

// Schema creates the submission_items table and the four indexes required
// by the repository: unique (owner, id), unique sdes_correlation_id,
// (status, last_updated) for oldest-first worker selection, and a partial
// index on the two callback-pending statuses for the callback worker's
// drain queries.
const Schema = `
CREATE TABLE IF NOT EXISTS submission_items (
	owner                  TEXT NOT NULL,
	id                     TEXT NOT NULL,
	sdes_correlation_id    TEXT NOT NULL,
	callback_url           TEXT NOT NULL,
	status                 TEXT NOT NULL,
	object_location        TEXT,
	object_content_length  INTEGER,
	object_content_md5     TEXT,
	object_last_modified   INTEGER,
	failure_reason         TEXT,
	last_updated           INTEGER NOT NULL,
	locked_at              INTEGER,
	failure_count          INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (owner, id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_submission_items_correlation
	ON submission_items (sdes_correlation_id);
CREATE INDEX IF NOT EXISTS idx_submission_items_status_updated
	ON submission_items (status, last_updated);
CREATE INDEX IF NOT EXISTS idx_submission_items_callback_pending
	ON submission_items (status)
	WHERE status IN ('Processed', 'Failed');
`
