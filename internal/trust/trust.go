// Package trust maintains the per-contact trust classification that every
// score is weighted by. Unknown contacts are always level 0.
package trust

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidLevel is returned when a trust level outside 0..3 is supplied.
var ErrInvalidLevel = errors.New("invalid trust level")

// ErrEmptyID is returned when a write names no contact.
var ErrEmptyID = errors.New("contact id is empty")

// Level is the integer trust classification of a contact.
type Level int

const (
	LevelUnknown Level = iota
	LevelKnown
	LevelFriend
	LevelClose
)

// LevelCount is the number of defined trust levels.
const LevelCount = 4

// factors are deliberately uneven: the step from unknown to known is the largest.
var factors = [LevelCount]float64{0.0, 0.33, 0.67, 1.0}

var levelNames = [LevelCount]string{"Unknown", "Known Contact", "Friend", "Close/Family"}

// Levels returns every valid level in ascending order.
func Levels() []Level {
	return []Level{LevelUnknown, LevelKnown, LevelFriend, LevelClose}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= LevelUnknown && l <= LevelClose
}

// Factor returns the continuous weight in [0,1] for l. Invalid levels weigh nothing.
func (l Level) Factor() float64 {
	if !l.Valid() {
		return 0
	}
	return factors[l]
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts a numeric level ("0".."3") or a level name such as
// "unknown", "known", "friend", "close" or "family".
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		l := Level(n)
		if !l.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, n)
		}
		return l, nil
	}
	switch s {
	case "unknown":
		return LevelUnknown, nil
	case "known", "known_contact", "known-contact":
		return LevelKnown, nil
	case "friend":
		return LevelFriend, nil
	case "close", "family", "close/family", "close_family":
		return LevelClose, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// ContactTrust is the trust decision recorded for one contact.
type ContactTrust struct {
	ContactID   string    `json:"contact_id"`
	Level       Level     `json:"level"`
	LastUpdated time.Time `json:"last_updated"`
	ManuallySet bool      `json:"manually_set"`
}

// NewContactTrust builds a ContactTrust stamped with the current time.
// It fails for levels outside 0..3.
func NewContactTrust(contactID string, level Level, manuallySet bool) (ContactTrust, error) {
	if !level.Valid() {
		return ContactTrust{}, fmt.Errorf("%w: %d", ErrInvalidLevel, int(level))
	}
	return ContactTrust{
		ContactID:   contactID,
		Level:       level,
		LastUpdated: time.Now(),
		ManuallySet: manuallySet,
	}, nil
}

// Factor is shorthand for c.Level.Factor().
func (c ContactTrust) Factor() float64 { return c.Level.Factor() }

// Stats counts stored contacts per level. ByLevel is indexed by Level.
type Stats struct {
	TotalContacts int             `json:"total_contacts"`
	ByLevel       [LevelCount]int `json:"by_level"`
}

// Count returns the number of contacts at level l.
func (s Stats) Count(l Level) int {
	if !l.Valid() {
		return 0
	}
	return s.ByLevel[l]
}
