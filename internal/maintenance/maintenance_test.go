package maintenance

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ziadkadry99/meshtrust/internal/db"
	"github.com/ziadkadry99/meshtrust/internal/verification"
)

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) Cleanup(context.Context) (verification.CleanupResult, error) {
	c.calls.Add(1)
	return verification.CleanupResult{}, nil
}

func TestTickEvictsOverCap(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	store := verification.NewStore(ctx, database.Namespace("verification"), verification.WithClock(clock))

	for i := 0; i < verification.RetentionCap+1; i++ {
		if _, err := store.Add(ctx, fmt.Sprintf("msg-%04d", i), "v1", true, ""); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	var logs bytes.Buffer
	r := NewRunner(store, time.Minute, slog.New(slog.NewTextHandler(&logs, nil)))
	res := r.Tick(ctx)

	if res.RemovedRecords != verification.RetentionCap+1-verification.RetentionTarget {
		t.Errorf("RemovedRecords = %d", res.RemovedRecords)
	}
	if store.Count() != verification.RetentionTarget {
		t.Errorf("Count = %d, want %d", store.Count(), verification.RetentionTarget)
	}
	if len(res.EvictedMessages) == 0 || res.EvictedMessages[0] != "msg-0000" {
		t.Errorf("evicted = %v, want oldest message first", res.EvictedMessages)
	}
	if !bytes.Contains(logs.Bytes(), []byte("verifications evicted")) {
		t.Errorf("expected eviction log line, got %q", logs.String())
	}

	// A second pass under the cap is a no-op.
	if res := r.Tick(ctx); res.RemovedRecords != 0 {
		t.Errorf("second tick removed %d records", res.RemovedRecords)
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	c := &countingCleaner{}
	r := NewRunner(c, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for c.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("runner did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunDisabled(t *testing.T) {
	c := &countingCleaner{}
	r := NewRunner(c, 0, nil)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero interval should return immediately")
	}
	if c.calls.Load() != 0 {
		t.Errorf("disabled runner called Cleanup %d times", c.calls.Load())
	}
}
