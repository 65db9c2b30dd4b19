package store_test

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/dms-submission/internal/clock"
	"github.com/hazyhaar/dms-submission/internal/dbopen"
	"github.com/hazyhaar/dms-submission/internal/store"
)

func newStore(t *testing.T, clk clock.Clock) *store.Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	return store.New(db, clk)
}

func sampleItem(owner, id, correlationID string) store.SubmissionItem {
	return store.SubmissionItem{
		Owner:             owner,
		ID:                id,
		SDESCorrelationID: correlationID,
		CallbackURL:       "http://client.mdtp/callback",
		Status:            store.StatusSubmitted,
	}
}

func TestInsertUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, clock.NewFake(time.Unix(0, 0)))

	if _, err := s.Insert(ctx, sampleItem("alice", "ref-1", "corr-1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	if _, err := s.Insert(ctx, sampleItem("alice", "ref-1", "corr-2")); err == nil {
		t.Fatal("expected duplicate (owner,id) error")
	} else if _, ok := err.(*store.ErrDuplicate); !ok {
		t.Fatalf("got %T, want *store.ErrDuplicate", err)
	}

	if _, err := s.Insert(ctx, sampleItem("bob", "ref-2", "corr-1")); err == nil {
		t.Fatal("expected duplicate correlation id error")
	} else if _, ok := err.(*store.ErrDuplicate); !ok {
		t.Fatalf("got %T, want *store.ErrDuplicate", err)
	}
}

func TestUpdateStampsTime(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFake(time.Unix(1000, 0))
	s := newStore(t, fake)

	if _, err := s.Insert(ctx, sampleItem("alice", "ref-1", "corr-1")); err != nil {
		t.Fatal(err)
	}

	fake.Advance(5 * time.Second)
	updated, err := s.Update(ctx, "alice", "ref-1", store.StatusForwarded, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.LastUpdated.Equal(fake.Now()) {
		t.Fatalf("lastUpdated = %v, want %v", updated.LastUpdated, fake.Now())
	}
}

func TestFailureReasonErasure(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, clock.NewFake(time.Unix(0, 0)))

	item := sampleItem("alice", "ref-1", "corr-1")
	if _, err := s.Insert(ctx, item); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update(ctx, "alice", "ref-1", store.StatusForwarded, nil); err != nil {
		t.Fatal(err)
	}

	reason := "sdes rejected file"
	withReason, err := s.Update(ctx, "alice", "ref-1", store.StatusFailed, &reason)
	if err != nil {
		t.Fatal(err)
	}
	if withReason.FailureReason == nil || *withReason.FailureReason != reason {
		t.Fatalf("expected failure reason %q, got %v", reason, withReason.FailureReason)
	}

	cleared, err := s.Update(ctx, "alice", "ref-1", store.StatusFailed, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cleared.FailureReason != nil {
		t.Fatalf("expected failure reason cleared, got %v", *cleared.FailureReason)
	}
}

func TestUpdateNothingToUpdate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, clock.NewFake(time.Unix(0, 0)))

	if _, err := s.Update(ctx, "alice", "missing", store.StatusForwarded, nil); err == nil {
		t.Fatal("expected error")
	} else if _, ok := err.(*store.ErrNothingToUpdate); !ok {
		t.Fatalf("got %T, want *store.ErrNothingToUpdate", err)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, clock.NewFake(time.Unix(0, 0)))

	if err := s.Remove(ctx, "alice", "nope"); err != nil {
		t.Fatalf("remove absent should succeed: %v", err)
	}

	if _, err := s.Insert(ctx, sampleItem("alice", "ref-1", "corr-1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, "alice", "ref-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "alice", "ref-1"); err == nil {
		t.Fatal("expected not found after remove")
	}
}

func TestGetByCorrelationID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, clock.NewFake(time.Unix(0, 0)))

	if _, err := s.Insert(ctx, sampleItem("alice", "ref-1", "corr-1")); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByCorrelationID(ctx, "corr-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Owner != "alice" || got.ID != "ref-1" {
		t.Fatalf("got %+v", got)
	}

	if _, err := s.GetByCorrelationID(ctx, "nope"); err == nil {
		t.Fatal("expected not found")
	}
}
