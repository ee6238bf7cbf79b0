package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/meshtrust/internal/audit"
	"github.com/ziadkadry99/meshtrust/internal/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// fakeClock returns whatever time was last set.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) SetMillis(ms int64) {
	c.mu.Lock()
	c.cur = time.UnixMilli(ms)
	c.mu.Unlock()
}

func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return NewStore(context.Background(), openTestDB(t).Namespace("verifications"), opts...)
}

type memBlobs struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	failPut bool
}

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("storage offline")
	}
	return m.data[key], nil
}

func (m *memBlobs) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("storage full")
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func mustAdd(t *testing.T, s *Store, messageID, verifierID string, confirmed bool) {
	t.Helper()
	out, err := s.Add(context.Background(), messageID, verifierID, confirmed, "")
	if err != nil {
		t.Fatalf("Add(%s, %s): %v", messageID, verifierID, err)
	}
	if out != Accepted {
		t.Fatalf("Add(%s, %s) = %v, want accepted", messageID, verifierID, out)
	}
}

func TestAddAndDuplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	out, err := store.Add(ctx, "msg-1", "alice", true, "saw it too")
	if err != nil || out != Accepted {
		t.Fatalf("first Add = %v, %v; want accepted", out, err)
	}
	out, err = store.Add(ctx, "msg-1", "alice", false, "changed my mind")
	if err != nil || out != Duplicate {
		t.Fatalf("second Add = %v, %v; want duplicate", out, err)
	}

	recs := store.ForMessage("msg-1")
	if len(recs) != 1 {
		t.Fatalf("ForMessage = %d records, want 1", len(recs))
	}
	if !recs[0].Confirmed || recs[0].Comment != "saw it too" {
		t.Errorf("stored record was mutated by duplicate: %+v", recs[0])
	}
	if !store.HasVerified("msg-1", "alice") {
		t.Error("HasVerified(msg-1, alice) = false")
	}
	if store.HasVerified("msg-1", "bob") || store.HasVerified("msg-2", "alice") {
		t.Error("HasVerified reports votes that do not exist")
	}
}

func TestConcurrentDuplicateAdds(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := store.Add(ctx, "msg", "alice", true, "")
			if err != nil {
				t.Errorf("Add: %v", err)
				return
			}
			if out == Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Errorf("accepted = %d, want exactly 1", accepted)
	}
	if n := store.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestForMessageEmptyAndCopy(t *testing.T) {
	store := setupTestStore(t)
	if got := store.ForMessage("none"); got == nil || len(got) != 0 {
		t.Errorf("ForMessage(none) = %#v, want empty non-nil slice", got)
	}

	mustAdd(t, store, "m", "a", true)
	recs := store.ForMessage("m")
	recs[0].Confirmed = false
	if !store.ForMessage("m")[0].Confirmed {
		t.Error("mutating returned slice changed stored record")
	}
}

func TestByVerifier(t *testing.T) {
	clock := &fakeClock{}
	store := setupTestStore(t, WithClock(clock.Now))

	clock.SetMillis(300)
	mustAdd(t, store, "m3", "alice", true)
	clock.SetMillis(100)
	mustAdd(t, store, "m1", "alice", false)
	mustAdd(t, store, "m1", "bob", true)
	clock.SetMillis(200)
	mustAdd(t, store, "m2", "alice", true)

	got := store.ByVerifier("alice")
	if len(got) != 3 {
		t.Fatalf("ByVerifier = %d records, want 3", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].MessageID != want || got[i].VerifierID != "alice" {
			t.Errorf("ByVerifier[%d] = %s/%s, want %s/alice", i, got[i].MessageID, got[i].VerifierID, want)
		}
	}
	if got := store.ByVerifier("nobody"); len(got) != 0 {
		t.Errorf("ByVerifier(nobody) = %+v", got)
	}
}

func TestStats(t *testing.T) {
	store := setupTestStore(t)
	mustAdd(t, store, "m", "a", true)
	mustAdd(t, store, "m", "b", true)
	mustAdd(t, store, "m", "c", false)

	st := store.Stats("m")
	if st.TotalVerifications != 3 || st.Confirmations != 2 || st.Rejections != 1 {
		t.Errorf("Stats = %+v", st)
	}
	if st.NetScore() != 1 || !st.HasPositiveConsensus() {
		t.Errorf("NetScore = %d, consensus = %v", st.NetScore(), st.HasPositiveConsensus())
	}

	empty := store.Stats("other")
	if empty != (Stats{}) || empty.HasPositiveConsensus() {
		t.Errorf("Stats(other) = %+v, want zeros", empty)
	}
}

func TestRemoveMessageUpdatesBothIndices(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	mustAdd(t, store, "m1", "alice", true)
	mustAdd(t, store, "m1", "bob", false)
	mustAdd(t, store, "m2", "alice", true)

	removed, err := store.RemoveMessage(ctx, "m1")
	if err != nil || !removed {
		t.Fatalf("RemoveMessage = %v, %v", removed, err)
	}
	if store.HasVerified("m1", "alice") || store.HasVerified("m1", "bob") {
		t.Error("verifier index still references removed message")
	}
	if !store.HasVerified("m2", "alice") {
		t.Error("unrelated vote removed")
	}
	if got := store.ByVerifier("bob"); len(got) != 0 {
		t.Errorf("ByVerifier(bob) = %+v, want empty", got)
	}
	if n := store.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	// A fresh vote on the removed message is accepted again.
	mustAdd(t, store, "m1", "alice", false)

	removed, err = store.RemoveMessage(ctx, "never")
	if err != nil || removed {
		t.Errorf("RemoveMessage(never) = %v, %v; want false, nil", removed, err)
	}
}

func TestClear(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	store := NewStore(ctx, database.Namespace("v"))
	mustAdd(t, store, "m", "a", true)

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if store.Count() != 0 || store.HasVerified("m", "a") {
		t.Error("store not empty after Clear")
	}
	if reloaded := NewStore(ctx, database.Namespace("v")); reloaded.Count() != 0 {
		t.Error("Clear was not persisted")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	clock := &fakeClock{}
	clock.SetMillis(1_700_000_000_123)

	store := NewStore(ctx, database.Namespace("v"), WithClock(clock.Now))
	if _, err := store.Add(ctx, "m", "alice", true, "confirmed on channel 4"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	mustAdd(t, store, "m", "bob", false)

	reloaded := NewStore(ctx, database.Namespace("v"))
	recs := reloaded.ForMessage("m")
	if len(recs) != 2 {
		t.Fatalf("reloaded %d records, want 2", len(recs))
	}
	if recs[0].Comment != "confirmed on channel 4" || !recs[0].Timestamp.Equal(clock.Now()) {
		t.Errorf("reloaded record = %+v", recs[0])
	}
	if out, _ := reloaded.Add(ctx, "m", "bob", true, ""); out != Duplicate {
		t.Error("verifier index not rebuilt on load")
	}
}

func TestPersistedLayout(t *testing.T) {
	blobs := newMemBlobs()
	clock := &fakeClock{}
	clock.SetMillis(42)
	store := NewStore(context.Background(), blobs, WithClock(clock.Now))
	mustAdd(t, store, "m", "alice", true)

	var got []map[string]any
	if err := json.Unmarshal(blobs.data[storageKey], &got); err != nil {
		t.Fatalf("stored blob is not a JSON array: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("stored %d entries, want 1", len(got))
	}
	want := map[string]any{"messageId": "m", "verifierId": "alice", "isConfirmed": true, "timestamp": float64(42), "comment": ""}
	for k, v := range want {
		if got[0][k] != v {
			t.Errorf("stored %s = %v, want %v", k, got[0][k], v)
		}
	}
}

func TestCorruptStorageLoadsEmpty(t *testing.T) {
	for name, blobs := range map[string]*memBlobs{
		"malformed":  {data: map[string][]byte{storageKey: []byte("[{")}},
		"unreadable": {data: map[string][]byte{}, failGet: true},
		"missing":    newMemBlobs(),
	} {
		t.Run(name, func(t *testing.T) {
			store := NewStore(context.Background(), blobs)
			if store.Count() != 0 {
				t.Errorf("Count = %d, want 0", store.Count())
			}
		})
	}
}

func TestLoadDropsDuplicates(t *testing.T) {
	blobs := &memBlobs{data: map[string][]byte{storageKey: []byte(`[
		{"messageId":"m","verifierId":"a","isConfirmed":true,"timestamp":1,"comment":""},
		{"messageId":"m","verifierId":"a","isConfirmed":false,"timestamp":2,"comment":""},
		{"messageId":"","verifierId":"b","isConfirmed":true,"timestamp":3,"comment":""}
	]`)}}
	store := NewStore(context.Background(), blobs)
	recs := store.ForMessage("m")
	if len(recs) != 1 || !recs[0].Confirmed {
		t.Errorf("ForMessage = %+v, want single confirmed vote", recs)
	}
	if store.Count() != 1 {
		t.Errorf("Count = %d, want 1", store.Count())
	}
}

func TestWriteFailureSurfacesAndKeepsMemory(t *testing.T) {
	blobs := newMemBlobs()
	store := NewStore(context.Background(), blobs)
	blobs.failPut = true

	out, err := store.Add(context.Background(), "m", "a", true, "")
	if err == nil {
		t.Fatal("Add should surface the persistence error")
	}
	if out != Accepted {
		t.Errorf("outcome = %v, want accepted", out)
	}
	if !store.HasVerified("m", "a") {
		t.Error("in-memory state should keep the vote")
	}
}

func TestAddRejectsEmptyIDs(t *testing.T) {
	blobs := newMemBlobs()
	ctx := context.Background()
	store := NewStore(ctx, blobs)

	for _, ids := range [][2]string{{"", "alice"}, {"m", ""}, {"", ""}} {
		if _, err := store.Add(ctx, ids[0], ids[1], true, ""); !errors.Is(err, ErrEmptyID) {
			t.Errorf("Add(%q, %q) error = %v, want ErrEmptyID", ids[0], ids[1], err)
		}
	}
	mustAdd(t, store, "m", "alice", true)

	reloaded := NewStore(ctx, blobs)
	if reloaded.Count() != store.Count() || reloaded.Count() != 1 {
		t.Errorf("Count before/after reload = %d/%d, want 1/1", store.Count(), reloaded.Count())
	}
}

func TestFailedWritesAreNotAudited(t *testing.T) {
	blobs := newMemBlobs()
	auditStore := audit.NewStore(openTestDB(t))
	ctx := context.Background()
	store := NewStore(ctx, blobs, WithAuditor(auditStore))

	mustAdd(t, store, "m", "alice", true)
	blobs.failPut = true

	if _, err := store.Add(ctx, "m", "bob", false, ""); err == nil {
		t.Error("Add should surface the persistence error")
	}
	if _, err := store.RemoveMessage(ctx, "m"); err == nil {
		t.Error("RemoveMessage should surface the persistence error")
	}
	if err := store.Clear(ctx); err == nil {
		t.Error("Clear should surface the persistence error")
	}

	entries, err := auditStore.Query(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].ActorID != "alice" {
		t.Errorf("audit entries = %+v, want only the successful add", entries)
	}
}

func TestCleanupBelowCapIsNoop(t *testing.T) {
	store := setupTestStore(t)
	for i := 0; i < RetentionCap; i++ {
		mustAdd(t, store, fmt.Sprintf("m%04d", i), "v", true)
	}
	res, err := store.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if len(res.EvictedMessages) != 0 || res.RemovedRecords != 0 || res.Remaining != RetentionCap {
		t.Errorf("Cleanup at cap = %+v, want no-op", res)
	}
	if store.Count() != RetentionCap {
		t.Errorf("Count = %d, want %d", store.Count(), RetentionCap)
	}
}

func TestCleanupEvictsOldestMessagesFirst(t *testing.T) {
	clock := &fakeClock{}
	store := setupTestStore(t, WithClock(clock.Now))

	// m-old: one vote long ago, nine recent ones.
	clock.SetMillis(0)
	mustAdd(t, store, "m-old", "v0", true)
	// m-single: one vote slightly newer than m-old's first.
	clock.SetMillis(10)
	mustAdd(t, store, "m-single", "v0", true)
	// 110 messages with 10 votes each, all sharing one timestamp.
	clock.SetMillis(100)
	for i := 0; i < 110; i++ {
		for v := 0; v < 10; v++ {
			mustAdd(t, store, fmt.Sprintf("bulk-%03d", i), fmt.Sprintf("v%d", v), true)
		}
	}
	clock.SetMillis(5000)
	for v := 1; v <= 9; v++ {
		mustAdd(t, store, "m-old", fmt.Sprintf("v%d", v), false)
	}
	if n := store.Count(); n != 1111 {
		t.Fatalf("Count before cleanup = %d, want 1111", n)
	}

	res, err := store.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	want := []string{"m-old", "m-single"}
	for i := 0; i < 30; i++ {
		want = append(want, fmt.Sprintf("bulk-%03d", i))
	}
	if len(res.EvictedMessages) != len(want) {
		t.Fatalf("evicted %d messages, want %d: %v", len(res.EvictedMessages), len(want), res.EvictedMessages)
	}
	for i := range want {
		if res.EvictedMessages[i] != want[i] {
			t.Errorf("evicted[%d] = %s, want %s", i, res.EvictedMessages[i], want[i])
		}
	}
	if res.RemovedRecords != 311 || res.Remaining != 800 {
		t.Errorf("removed %d, remaining %d; want 311, 800", res.RemovedRecords, res.Remaining)
	}
	if store.Count() > RetentionTarget {
		t.Errorf("Count after cleanup = %d, want <= %d", store.Count(), RetentionTarget)
	}
	if store.HasVerified("m-old", "v5") || store.HasVerified("bulk-029", "v0") {
		t.Error("evicted messages still indexed")
	}
	if !store.HasVerified("bulk-030", "v0") {
		t.Error("bulk-030 should survive")
	}
}

func TestAuditTrail(t *testing.T) {
	database := openTestDB(t)
	auditStore := audit.NewStore(database)
	ctx := context.Background()
	store := NewStore(ctx, database.Namespace("v"), WithAuditor(auditStore))

	mustAdd(t, store, "m", "alice", true)
	if out, _ := store.Add(ctx, "m", "alice", true, ""); out != Duplicate {
		t.Fatal("expected duplicate")
	}
	if _, err := store.RemoveMessage(ctx, "m"); err != nil {
		t.Fatalf("RemoveMessage: %v", err)
	}

	added, _ := auditStore.Query(ctx, audit.QueryFilter{Action: audit.ActionVerificationAdded})
	if len(added) != 1 || added[0].ActorID != "alice" || added[0].NewValue != "confirmed" {
		t.Errorf("verification_added entries = %+v", added)
	}
	purged, _ := auditStore.Query(ctx, audit.QueryFilter{Action: audit.ActionVerificationsPurged})
	if len(purged) != 1 || purged[0].SubjectID != "m" {
		t.Errorf("verifications_purged entries = %+v", purged)
	}
}

func TestRoutes(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		req := httptest.NewRequest(method, path, &buf)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	vote := map[string]any{"verifier_id": "alice", "confirmed": true}
	if w := do("POST", "/api/messages/m1/verifications", vote); w.Code != http.StatusCreated {
		t.Fatalf("POST status = %d: %s", w.Code, w.Body.String())
	}
	if w := do("POST", "/api/messages/m1/verifications", vote); w.Code != http.StatusConflict {
		t.Errorf("duplicate POST status = %d, want 409", w.Code)
	}
	if w := do("POST", "/api/messages/m1/verifications", map[string]any{"confirmed": true}); w.Code != http.StatusBadRequest {
		t.Errorf("POST without verifier status = %d, want 400", w.Code)
	}
	do("POST", "/api/messages/m1/verifications", map[string]any{"verifier_id": "bob", "confirmed": false})

	w := do("GET", "/api/messages/m1/verifications", nil)
	var recs []Record
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("GET = %d records, want 2", len(recs))
	}

	w = do("GET", "/api/messages/m1/verifications/stats", nil)
	var st statsResponse
	json.Unmarshal(w.Body.Bytes(), &st)
	if st.TotalVerifications != 2 || st.NetScore != 0 || st.PositiveConsensus {
		t.Errorf("stats = %+v", st)
	}

	w = do("GET", "/api/verifiers/alice/verifications", nil)
	json.Unmarshal(w.Body.Bytes(), &recs)
	if len(recs) != 1 {
		t.Errorf("by verifier = %d records, want 1", len(recs))
	}

	w = do("GET", "/api/verifications/count", nil)
	var count map[string]int
	json.Unmarshal(w.Body.Bytes(), &count)
	if count["total"] != 2 {
		t.Errorf("count = %d, want 2", count["total"])
	}

	w = do("POST", "/api/verifications/cleanup", nil)
	var res CleanupResult
	json.Unmarshal(w.Body.Bytes(), &res)
	if w.Code != http.StatusOK || res.Remaining != 2 {
		t.Errorf("cleanup = %d %+v", w.Code, res)
	}

	if w := do("DELETE", "/api/messages/m1/verifications", nil); w.Code != http.StatusOK {
		t.Errorf("DELETE status = %d", w.Code)
	}
	if w := do("DELETE", "/api/messages/m1/verifications", nil); w.Code != http.StatusNotFound {
		t.Errorf("DELETE again status = %d, want 404", w.Code)
	}
	if w := do("DELETE", "/api/verifications", nil); w.Code != http.StatusOK {
		t.Errorf("clear status = %d", w.Code)
	}
}
