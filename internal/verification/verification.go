// Package verification records contacts' after-the-fact confirm/reject votes
// on relayed messages. Each contact votes at most once per message.
package verification

import (
	"errors"
	"time"
)

// ErrEmptyID is returned when a vote names no message or no verifier.
var ErrEmptyID = errors.New("message id and verifier id must not be empty")

// Retention bounds for Cleanup. Once the total record count exceeds
// RetentionCap, whole messages are evicted until at most RetentionTarget remain.
const (
	RetentionCap    = 1000
	RetentionTarget = RetentionCap * 8 / 10
)

// Record is one contact's vote on one message. Records are never mutated
// after they are stored.
type Record struct {
	MessageID  string    `json:"message_id"`
	VerifierID string    `json:"verifier_id"`
	Confirmed  bool      `json:"confirmed"`
	Timestamp  time.Time `json:"timestamp"`
	Comment    string    `json:"comment,omitempty"`
}

// Outcome is the result of adding a vote.
type Outcome int

const (
	// Accepted means the vote was stored.
	Accepted Outcome = iota
	// Duplicate means the verifier had already voted on the message; nothing changed.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Stats aggregates the votes on one message.
type Stats struct {
	TotalVerifications int `json:"total_verifications"`
	Confirmations      int `json:"confirmations"`
	Rejections         int `json:"rejections"`
}

// NetScore is confirmations minus rejections.
func (s Stats) NetScore() int { return s.Confirmations - s.Rejections }

// HasPositiveConsensus reports whether confirmations outnumber rejections.
func (s Stats) HasPositiveConsensus() bool { return s.Confirmations > s.Rejections }

// Tally counts confirmations and rejections in records, unweighted.
func Tally(records []Record) Stats {
	st := Stats{TotalVerifications: len(records)}
	for _, r := range records {
		if r.Confirmed {
			st.Confirmations++
		} else {
			st.Rejections++
		}
	}
	return st
}

// CleanupResult describes what a retention pass evicted.
type CleanupResult struct {
	EvictedMessages []string `json:"evicted_messages"`
	RemovedRecords  int      `json:"removed_records"`
	Remaining       int      `json:"remaining"`
}
