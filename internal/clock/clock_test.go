package clock_test

import (
	"testing"
	"time"

	"github.com/hazyhaar/dms-submission/internal/clock"
)

func TestRealReportsCurrentTime(t *testing.T) {
	before := time.Now()
	got := clock.Real().Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Fatalf("Real().Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestFakeSetAndAdvance(t *testing.T) {
	start := time.Unix(1000, 0)
	f := clock.NewFake(start)
	if got := f.Now(); !got.Equal(start) {
		t.Fatalf("Now: got %v, want %v", got, start)
	}

	f.Advance(5 * time.Second)
	if want := start.Add(5 * time.Second); !f.Now().Equal(want) {
		t.Fatalf("after Advance: got %v, want %v", f.Now(), want)
	}

	other := time.Unix(2000, 0)
	f.Set(other)
	if got := f.Now(); !got.Equal(other) {
		t.Fatalf("after Set: got %v, want %v", got, other)
	}
}
