package sdes_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/dms-submission/internal/clock"
	"github.com/hazyhaar/dms-submission/internal/dbopen"
	"github.com/hazyhaar/dms-submission/internal/sdes"
	"github.com/hazyhaar/dms-submission/internal/store"

	_ "modernc.org/sqlite"
)

const testLockTTL = int64(30_000)

type fakeClient struct {
	calls []sdes.NotifyRequest
	err   error
}

func (f *fakeClient) Notify(_ context.Context, req sdes.NotifyRequest) error {
	f.calls = append(f.calls, req)
	return f.err
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	return store.New(db, clock.NewFake(time.Unix(1000, 0)))
}

func TestWorkerTickForwardsSubmittedItem(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	if _, err := st.Insert(ctx, store.SubmissionItem{
		Owner: "alice", ID: "ref-1", SDESCorrelationID: "corr-1",
		CallbackURL: "https://client.mdtp/cb", Status: store.StatusSubmitted,
		ObjectSummary: &store.ObjectSummary{Location: "corr-1.zip"},
	}); err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{}
	w := &sdes.Worker{
		Store:             st,
		Client:            client,
		LockTTLMillis:     testLockTTL,
		InformationType:   "SA100",
		RecipientOrSender: "hmrc-sa",
	}
	w.Tick(ctx)

	item, err := st.Get(ctx, "alice", "ref-1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != store.StatusForwarded {
		t.Fatalf("status: got %s, want Forwarded", item.Status)
	}
	if len(client.calls) != 1 || client.calls[0].CorrelationID != "corr-1" {
		t.Fatalf("unexpected notify calls: %v", client.calls)
	}
}

func TestWorkerTickLeavesItemSubmittedOnNotifyFailure(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	if _, err := st.Insert(ctx, store.SubmissionItem{
		Owner: "alice", ID: "ref-1", SDESCorrelationID: "corr-1",
		CallbackURL: "https://client.mdtp/cb", Status: store.StatusSubmitted,
	}); err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{err: errors.New("sdes unavailable")}
	w := &sdes.Worker{Store: st, Client: client, LockTTLMillis: testLockTTL}
	w.Tick(ctx)

	item, err := st.Get(ctx, "alice", "ref-1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != store.StatusSubmitted {
		t.Fatalf("status: got %s, want unchanged Submitted", item.Status)
	}
}

func TestWorkerTickDrainsMultipleItems(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	for _, id := range []string{"ref-1", "ref-2", "ref-3"} {
		if _, err := st.Insert(ctx, store.SubmissionItem{
			Owner: "alice", ID: id, SDESCorrelationID: id + "-corr",
			CallbackURL: "https://client.mdtp/cb", Status: store.StatusSubmitted,
		}); err != nil {
			t.Fatal(err)
		}
	}

	client := &fakeClient{}
	w := &sdes.Worker{Store: st, Client: client, LockTTLMillis: testLockTTL}
	w.Tick(ctx)

	if len(client.calls) != 3 {
		t.Fatalf("notify calls: got %d, want 3", len(client.calls))
	}
	for _, id := range []string{"ref-1", "ref-2", "ref-3"} {
		item, err := st.Get(ctx, "alice", id)
		if err != nil {
			t.Fatal(err)
		}
		if item.Status != store.StatusForwarded {
			t.Fatalf("%s status: got %s, want Forwarded", id, item.Status)
		}
	}
}
