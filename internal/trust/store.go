package trust

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

// WithClock overrides the time source used for LastUpdated.
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

// Store maps contact ids to trust decisions. Every mutating call rewrites the
// full persisted array before returning. If that write fails the in-memory
// state keeps the change and the error is returned to the caller.
type Store struct {
	mu      sync.RWMutex
	levels  map[string]ContactTrust
	blobs   Blobs
	now     func() time.Time
	logger  *slog.Logger
	auditor Auditor
}

// NewStore loads the persisted trust levels from blobs. A missing, unreadable
// or malformed blob yields an empty store.
func NewStore(ctx context.Context, blobs Blobs, opts ...Option) *Store {
	s := &Store{
		levels: make(map[string]ContactTrust),
		blobs:  blobs,
		now:    time.Now,
		logger: slog.Default(),
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
		s.logger.Warn("trust store unreadable, starting empty", "error", err)
		return
	case len(data) == 0:
		return
	}

	levels, skipped, err := decodeLevels(data)
	if err != nil {
		s.logger.Warn("trust store corrupt, starting empty", "error", err)
		return
	}
	if skipped > 0 {
		s.logger.Warn("dropped invalid trust entries", "count", skipped)
	}
	s.levels = levels
	s.logger.Debug("trust store loaded", "contacts", len(levels))
}

// persist must be called with s.mu held for writing.
func (s *Store) persist(ctx context.Context) error {
	data, err := encodeLevels(s.levels)
	if err != nil {
		return fmt.Errorf("encoding trust levels: %w", err)
	}
	if err := s.blobs.Put(ctx, storageKey, data); err != nil {
		return fmt.Errorf("persisting trust levels: %w", err)
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

// Get returns the trust decision for contactID, or a level-0, non-manual
// value if none is stored.
func (s *Store) Get(contactID string) ContactTrust {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ct, ok := s.levels[contactID]; ok {
		return ct
	}
	return ContactTrust{ContactID: contactID, Level: LevelUnknown}
}

// Set records level for contactID. Levels outside 0..3 return ErrInvalidLevel
// and an empty contactID returns ErrEmptyID; both leave the store untouched.
func (s *Store) Set(ctx context.Context, contactID string, level Level, manuallySet bool) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, int(level))
	}
	return s.Put(ctx, ContactTrust{
		ContactID:   contactID,
		Level:       level,
		ManuallySet: manuallySet,
	})
}

// Put stores ct as given, keeping its ManuallySet flag. A zero LastUpdated
// is stamped with the current time.
func (s *Store) Put(ctx context.Context, ct ContactTrust) error {
	if ct.ContactID == "" {
		return ErrEmptyID
	}
	if !ct.Level.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, int(ct.Level))
	}
	if ct.LastUpdated.IsZero() {
		ct.LastUpdated = s.now()
	}

	s.mu.Lock()
	prev, existed := s.levels[ct.ContactID]
	s.levels[ct.ContactID] = ct
	err := s.persist(ctx)
	s.mu.Unlock()

	actor := audit.ActorUser
	if !ct.ManuallySet {
		actor = audit.ActorImport
	}
	entry := audit.Entry{
		ActorType: actor,
		ActorID:   "local",
		Action:    audit.ActionTrustSet,
		SubjectID: ct.ContactID,
		Summary:   fmt.Sprintf("trust set to %s", ct.Level),
		NewValue:  strconv.Itoa(int(ct.Level)),
	}
	if err != nil {
		return err
	}
	if existed {
		entry.PreviousValue = strconv.Itoa(int(prev.Level))
	}
	s.record(ctx, entry)
	return nil
}

// Remove deletes the decision for contactID and reports whether one existed.
func (s *Store) Remove(ctx context.Context, contactID string) (bool, error) {
	s.mu.Lock()
	prev, ok := s.levels[contactID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.levels, contactID)
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return true, err
	}

	s.record(ctx, audit.Entry{
		ActorType:     audit.ActorUser,
		ActorID:       "local",
		Action:        audit.ActionTrustRemoved,
		SubjectID:     contactID,
		PreviousValue: strconv.Itoa(int(prev.Level)),
	})
	return true, nil
}

// All returns a snapshot of every stored decision.
func (s *Store) All() map[string]ContactTrust {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ContactTrust, len(s.levels))
	for id, ct := range s.levels {
		out[id] = ct
	}
	return out
}

// ByLevel returns the stored decisions at exactly level, ordered by contact id.
func (s *Store) ByLevel(level Level) []ContactTrust {
	s.mu.RLock()
	var out []ContactTrust
	for _, ct := range s.levels {
		if ct.Level == level {
			out = append(out, ct)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	return out
}

// ImportKnownContacts adds each id that has no decision yet at LevelKnown,
// non-manual. Existing decisions are never touched. It returns the number of
// contacts added.
func (s *Store) ImportKnownContacts(ctx context.Context, contactIDs []string) (int, error) {
	now := s.now()

	s.mu.Lock()
	imported := 0
	for _, id := range contactIDs {
		if id == "" {
			continue
		}
		if _, ok := s.levels[id]; ok {
			continue
		}
		s.levels[id] = ContactTrust{
			ContactID:   id,
			Level:       LevelKnown,
			LastUpdated: now,
		}
		imported++
	}
	if imported == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return imported, err
	}

	s.record(ctx, audit.Entry{
		ActorType: audit.ActorImport,
		ActorID:   "contacts",
		Action:    audit.ActionContactsImported,
		Summary:   fmt.Sprintf("imported %d of %d contacts", imported, len(contactIDs)),
		NewValue:  strconv.Itoa(imported),
	})
	return imported, nil
}

// Clear removes every stored decision.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	n := len(s.levels)
	s.levels = make(map[string]ContactTrust)
	if err := s.persist(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.record(ctx, audit.Entry{
		ActorType:     audit.ActorUser,
		ActorID:       "local",
		Action:        audit.ActionTrustCleared,
		PreviousValue: strconv.Itoa(n),
	})
	return nil
}

// Stats counts stored decisions per level.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{TotalContacts: len(s.levels)}
	for _, ct := range s.levels {
		st.ByLevel[ct.Level]++
	}
	return st
}
