package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorImport ActorType = "import"
)

// Action describes what was done.
type Action string

const (
	ActionTrustSet             Action = "trust_set"
	ActionTrustRemoved         Action = "trust_removed"
	ActionTrustCleared         Action = "trust_cleared"
	ActionContactsImported     Action = "contacts_imported"
	ActionVerificationAdded    Action = "verification_added"
	ActionVerificationsPurged  Action = "verifications_purged"
	ActionVerificationsEvicted Action = "verifications_evicted"
	ActionVerificationsCleared Action = "verifications_cleared"
)

// Entry is a single audit trail record. SubjectID is the contact or
// message the action applied to.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorType     ActorType `json:"actor_type"`
	ActorID       string    `json:"actor_id"`
	Action        Action    `json:"action"`
	SubjectID     string    `json:"subject_id,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
}
