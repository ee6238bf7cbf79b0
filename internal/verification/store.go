package verification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ziadkadry99/meshtrust/internal/audit"
)

// Blobs is the scoped key-value storage the store persists through.
// *db.Namespace satisfies it.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Auditor records successful mutations. *audit.Store satisfies it.
type Auditor interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for degraded loads and audit failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithAuditor records every successful mutation to a.
func WithAuditor(a Auditor) Option {
	return func(s *Store) { s.auditor = a }
}

// Store holds votes per message. byMessage and byVerifier are only ever
// changed together under mu.
type Store struct {
	mu         sync.RWMutex
	byMessage  map[string][]Record
	byVerifier map[string]map[string]struct{}
	total      int

	blobs   Blobs
	now     func() time.Time
	logger  *slog.Logger
	auditor Auditor
}

// NewStore loads persisted votes from blobs. A missing, unreadable or
// malformed blob yields an empty store.
func NewStore(ctx context.Context, blobs Blobs, opts ...Option) *Store {
	s := &Store{
		byMessage:  make(map[string][]Record),
		byVerifier: make(map[string]map[string]struct{}),
		blobs:      blobs,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	data, err := s.blobs.Get(ctx, storageKey)
	switch {
	case err != nil:
		s.logger.Warn("verification store unreadable, starting empty", "error", err)
		return
	case len(data) == 0:
		return
	}

	records, err := decodeRecords(data)
	if err != nil {
		s.logger.Warn("verification store corrupt, starting empty", "error", err)
		return
	}

	skipped := 0
	for _, r := range records {
		if r.MessageID == "" || r.VerifierID == "" || s.hasLocked(r.MessageID, r.VerifierID) {
			skipped++
			continue
		}
		s.insertLocked(r)
	}
	if skipped > 0 {
		s.logger.Warn("dropped invalid or duplicate verifications", "count", skipped)
	}
	s.logger.Debug("verification store loaded", "messages", len(s.byMessage), "records", s.total)
}

func (s *Store) hasLocked(messageID, verifierID string) bool {
	_, ok := s.byVerifier[verifierID][messageID]
	return ok
}

func (s *Store) insertLocked(r Record) {
	s.byMessage[r.MessageID] = append(s.byMessage[r.MessageID], r)
	set, ok := s.byVerifier[r.VerifierID]
	if !ok {
		set = make(map[string]struct{})
		s.byVerifier[r.VerifierID] = set
	}
	set[r.MessageID] = struct{}{}
	s.total++
}

// removeMessageLocked drops every record for messageID from both indices
// and returns how many were removed.
func (s *Store) removeMessageLocked(messageID string) int {
	recs, ok := s.byMessage[messageID]
	if !ok {
		return 0
	}
	for _, r := range recs {
		if set, ok := s.byVerifier[r.VerifierID]; ok {
			delete(set, messageID)
			if len(set) == 0 {
				delete(s.byVerifier, r.VerifierID)
			}
		}
	}
	delete(s.byMessage, messageID)
	s.total -= len(recs)
	return len(recs)
}

// persist must be called with s.mu held for writing.
func (s *Store) persist(ctx context.Context) error {
	data, err := encodeRecords(s.byMessage)
	if err != nil {
		return fmt.Errorf("encoding verifications: %w", err)
	}
	if err := s.blobs.Put(ctx, storageKey, data); err != nil {
		return fmt.Errorf("persisting verifications: %w", err)
	}
	return nil
}

func (s *Store) record(ctx context.Context, entry audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Log(ctx, entry); err != nil {
		s.logger.Warn("audit log failed", "action", entry.Action, "error", err)
	}
}

// Add stores a vote by verifierID on messageID. If the verifier already voted
// on the message it returns Duplicate and changes nothing. Empty ids return
// ErrEmptyID.
func (s *Store) Add(ctx context.Context, messageID, verifierID string, confirmed bool, comment string) (Outcome, error) {
	if messageID == "" || verifierID == "" {
		return 0, ErrEmptyID
	}
	s.mu.Lock()
	if s.hasLocked(messageID, verifierID) {
		s.mu.Unlock()
		return Duplicate, nil
	}
	s.insertLocked(Record{
		MessageID:  messageID,
		VerifierID: verifierID,
		Confirmed:  confirmed,
		Timestamp:  s.now(),
		Comment:    comment,
	})
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return Accepted, err
	}

	vote := "rejected"
	if confirmed {
		vote = "confirmed"
	}
	s.record(ctx, audit.Entry{
		ActorType: audit.ActorUser,
		ActorID:   verifierID,
		Action:    audit.ActionVerificationAdded,
		SubjectID: messageID,
		Summary:   comment,
		NewValue:  vote,
	})
	return Accepted, nil
}

// ForMessage returns a copy of the votes on messageID in insertion order.
func (s *Store) ForMessage(messageID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.byMessage[messageID]
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

// ByVerifier returns every vote cast by verifierID, oldest first.
func (s *Store) ByVerifier(verifierID string) []Record {
	s.mu.RLock()
	out := []Record{}
	for messageID := range s.byVerifier[verifierID] {
		for _, r := range s.byMessage[messageID] {
			if r.VerifierID == verifierID {
				out = append(out, r)
			}
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].MessageID < out[j].MessageID
	})
	return out
}

// HasVerified reports whether verifierID has voted on messageID.
func (s *Store) HasVerified(messageID, verifierID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasLocked(messageID, verifierID)
}

// Stats tallies the votes on messageID.
func (s *Store) Stats(messageID string) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Tally(s.byMessage[messageID])
}

// Count returns the number of stored votes across all messages.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// RemoveMessage deletes every vote on messageID and reports whether any existed.
func (s *Store) RemoveMessage(ctx context.Context, messageID string) (bool, error) {
	s.mu.Lock()
	n := s.removeMessageLocked(messageID)
	if n == 0 {
		s.mu.Unlock()
		return false, nil
	}
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return true, err
	}

	s.record(ctx, audit.Entry{
		ActorType:     audit.ActorSystem,
		ActorID:       "retention",
		Action:        audit.ActionVerificationsPurged,
		SubjectID:     messageID,
		PreviousValue: strconv.Itoa(n),
	})
	return true, nil
}

// Clear deletes every vote.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	n := s.total
	s.byMessage = make(map[string][]Record)
	s.byVerifier = make(map[string]map[string]struct{})
	s.total = 0
	if err := s.persist(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.record(ctx, audit.Entry{
		ActorType:     audit.ActorUser,
		ActorID:       "local",
		Action:        audit.ActionVerificationsCleared,
		PreviousValue: strconv.Itoa(n),
	})
	return nil
}

// Cleanup enforces the retention cap. When more than RetentionCap votes are
// stored it evicts whole messages, oldest first, until at most
// RetentionTarget remain. A message's age is the timestamp of its oldest
// vote; ties are broken by ascending message id. Cleanup is never called
// from Add.
func (s *Store) Cleanup(ctx context.Context) (CleanupResult, error) {
	s.mu.Lock()
	if s.total <= RetentionCap {
		res := CleanupResult{Remaining: s.total}
		s.mu.Unlock()
		return res, nil
	}

	type candidate struct {
		messageID string
		oldest    time.Time
	}
	candidates := make([]candidate, 0, len(s.byMessage))
	for id, recs := range s.byMessage {
		oldest := recs[0].Timestamp
		for _, r := range recs[1:] {
			if r.Timestamp.Before(oldest) {
				oldest = r.Timestamp
			}
		}
		candidates = append(candidates, candidate{messageID: id, oldest: oldest})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].oldest.Equal(candidates[j].oldest) {
			return candidates[i].oldest.Before(candidates[j].oldest)
		}
		return candidates[i].messageID < candidates[j].messageID
	})

	var res CleanupResult
	for _, c := range candidates {
		if s.total <= RetentionTarget {
			break
		}
		res.RemovedRecords += s.removeMessageLocked(c.messageID)
		res.EvictedMessages = append(res.EvictedMessages, c.messageID)
	}
	res.Remaining = s.total
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return res, err
	}

	s.record(ctx, audit.Entry{
		ActorType:     audit.ActorSystem,
		ActorID:       "retention",
		Action:        audit.ActionVerificationsEvicted,
		Summary:       fmt.Sprintf("evicted %d messages", len(res.EvictedMessages)),
		PreviousValue: strconv.Itoa(res.Remaining + res.RemovedRecords),
		NewValue:      strconv.Itoa(res.Remaining),
	})
	return res, nil
}
