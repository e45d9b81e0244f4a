package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func testBundle(id string) schedule.Bundle {
	bundle := schedule.NewBundle()
	bundle[schedule.CategoryBasketball] = []schedule.Event{{ID: id, Name: "Lakers vs Warriors", Category: schedule.CategoryBasketball}}
	return bundle
}

func TestGate_ReadWrite(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1759716000, 0)}
	gate := NewGate(NewMemoryStore(), DefaultTTL, clock.Now)

	entry, err := gate.Read(ctx, "schedule_pptv", "fp")
	if err != nil || entry != nil {
		t.Fatalf("Expected empty read, got %v (%v)", entry, err)
	}

	if _, err := gate.Write(ctx, "schedule_pptv", testBundle("a"), "fp"); err != nil {
		t.Fatal(err)
	}

	entry, err = gate.Read(ctx, "schedule_pptv", "fp")
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil {
		t.Fatal("Expected cache hit")
	}
	if entry.Timestamp != clock.now.UnixMilli() {
		t.Errorf("Expected timestamp %d, got %d", clock.now.UnixMilli(), entry.Timestamp)
	}
	if got := entry.Data[schedule.CategoryBasketball]; len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Expected cached event 'a', got %v", got)
	}
}

func TestGate_Read_FingerprintMismatchWithinTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1759716000, 0)}
	gate := NewGate(NewMemoryStore(), DefaultTTL, clock.Now)

	written := `{"allowAllStreams":false}`
	queried := `{"allowAllStreams":true}`

	if _, err := gate.Write(ctx, "schedule_streamed", testBundle("a"), written); err != nil {
		t.Fatal(err)
	}
	clock.now = clock.now.Add(time.Second)

	entry, err := gate.Read(ctx, "schedule_streamed", queried)
	if err != nil {
		t.Fatal(err)
	}
	if entry != nil {
		t.Error("Expected fingerprint mismatch to force a refetch")
	}

	stale, err := gate.ReadStale(ctx, "schedule_streamed", queried)
	if err != nil {
		t.Fatal(err)
	}
	if stale != nil {
		t.Error("Expected stale read to honor the fingerprint too")
	}
}

func TestGate_Read_Expired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1759716000, 0)}
	gate := NewGate(NewMemoryStore(), time.Hour, clock.Now)

	if _, err := gate.Write(ctx, "k", testBundle("a"), "fp"); err != nil {
		t.Fatal(err)
	}

	clock.now = clock.now.Add(time.Hour)
	if entry, _ := gate.Read(ctx, "k", "fp"); entry == nil {
		t.Error("Expected entry exactly at the TTL to be served")
	}

	clock.now = clock.now.Add(time.Second)
	if entry, _ := gate.Read(ctx, "k", "fp"); entry != nil {
		t.Error("Expected expired entry to be rejected")
	}

	stale, err := gate.ReadStale(ctx, "k", "fp")
	if err != nil {
		t.Fatal(err)
	}
	if stale == nil {
		t.Error("Expected expired entry to remain available as a stale fallback")
	}
}

func TestGate_Invalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gate := NewGate(store, 0, nil)

	for _, key := range []string{"a", "b"} {
		if _, err := gate.Write(ctx, key, testBundle(key), "fp"); err != nil {
			t.Fatal(err)
		}
	}

	if err := gate.Invalidate(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if entry, _ := gate.ReadStale(ctx, "a", "fp"); entry != nil {
		t.Error("Expected 'a' to be purged")
	}
	if entry, _ := gate.Read(ctx, "b", "fp"); entry == nil {
		t.Error("Expected 'b' to survive single invalidation")
	}

	if err := gate.InvalidateAll(ctx); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d keys", store.Len())
	}
}

func TestGate_Read_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Set(ctx, "k", []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	entry, err := NewGate(store, 0, nil).Read(ctx, "k", "fp")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if entry != nil {
		t.Error("Expected corrupt entry to read as a miss")
	}
}

type failingStore struct {
	MemoryStore
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("backend down")
}

func TestGate_Read_StoreError(t *testing.T) {
	gate := NewGate(&failingStore{}, 0, nil)

	if _, err := gate.Read(context.Background(), "k", "fp"); err == nil {
		t.Error("Expected backend error to surface")
	}
}
