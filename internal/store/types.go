// Package store is the durable repository for SubmissionItem: insert,
// lookup, status transitions, and the lock-and-replace primitives that give
// the workers exclusive, lease-based access to one item at a time: the
// oldest item in a given status, or one known (owner, id).
package store

import "time"

// Status is a SubmissionItem lifecycle state. Transitions form the DAG
// Submitted -> Forwarded -> {Processed, Failed} -> Completed, with
// {Processed, Failed} additionally able to move to CallbackFailed. No
// transition returns to an earlier state.
type Status string

const (
	StatusSubmitted      Status = "Submitted"
	StatusForwarded      Status = "Forwarded"
	StatusProcessed      Status = "Processed"
	StatusFailed         Status = "Failed"
	StatusCompleted      Status = "Completed"
	StatusCallbackFailed Status = "CallbackFailed"
)

// validNextStatus enumerates the DAG edges of the lifecycle.
var validNextStatus = map[Status]map[Status]bool{
	StatusSubmitted: {StatusForwarded: true},
	StatusForwarded: {StatusProcessed: true, StatusFailed: true},
	StatusProcessed: {StatusCompleted: true, StatusCallbackFailed: true},
	StatusFailed:    {StatusCompleted: true, StatusCallbackFailed: true},
}

// CanTransition reports whether moving from "from" to "to" is a legal edge
// in the lifecycle DAG. Setting a status to itself is always legal (used by
// workers that replace an item without advancing its status, e.g. a failed
// callback attempt that only bumps failureCount).
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return validNextStatus[from][to]
}

// ObjectSummary describes the uploaded zip as reported by the object store.
type ObjectSummary struct {
	Location      string    `json:"location"`
	ContentLength int64     `json:"contentLength"`
	ContentMD5    string    `json:"contentMd5"`
	LastModified  time.Time `json:"lastModified"`
}

// SubmissionItem is the single durable entity tracked by this service.
type SubmissionItem struct {
	Owner             string         `json:"owner"`
	ID                string         `json:"id"`
	SDESCorrelationID string         `json:"sdesCorrelationId"`
	CallbackURL       string         `json:"callbackUrl"`
	Status            Status         `json:"status"`
	ObjectSummary     *ObjectSummary `json:"objectSummary,omitempty"`
	FailureReason     *string        `json:"failureReason,omitempty"`
	LastUpdated       time.Time      `json:"lastUpdated"`
	LockedAt          *time.Time     `json:"lockedAt,omitempty"`
	FailureCount      int            `json:"failureCount"`
}

// Clone returns a deep-enough copy safe for a worker to mutate and hand
// back as the replacement item in LockAndReplaceOldestItemByStatus.
func (s SubmissionItem) Clone() SubmissionItem {
	clone := s
	if s.ObjectSummary != nil {
		os := *s.ObjectSummary
		clone.ObjectSummary = &os
	}
	if s.FailureReason != nil {
		reason := *s.FailureReason
		clone.FailureReason = &reason
	}
	if s.LockedAt != nil {
		t := *s.LockedAt
		clone.LockedAt = &t
	}
	return clone
}
