package trust

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// storageKey is the single key the trust namespace holds.
const storageKey = "trust_levels"

// persistedLevel is the stored shape of one ContactTrust.
type persistedLevel struct {
	ContactID     string `json:"contactId"`
	TrustLevel    int    `json:"trustLevel"`
	LastUpdated   int64  `json:"lastUpdated"`
	IsManuallySet bool   `json:"isManuallySet"`
}

func encodeLevels(levels map[string]ContactTrust) ([]byte, error) {
	out := make([]persistedLevel, 0, len(levels))
	for _, ct := range levels {
		out = append(out, persistedLevel{
			ContactID:     ct.ContactID,
			TrustLevel:    int(ct.Level),
			LastUpdated:   ct.LastUpdated.UnixMilli(),
			IsManuallySet: ct.ManuallySet,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	return json.Marshal(out)
}

// decodeLevels parses the stored array. Entries with an empty id or an
// out-of-range level are dropped and counted in skipped.
func decodeLevels(data []byte) (levels map[string]ContactTrust, skipped int, err error) {
	var in []persistedLevel
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, 0, fmt.Errorf("decoding trust levels: %w", err)
	}
	levels = make(map[string]ContactTrust, len(in))
	for _, p := range in {
		l := Level(p.TrustLevel)
		if p.ContactID == "" || !l.Valid() {
			skipped++
			continue
		}
		levels[p.ContactID] = ContactTrust{
			ContactID:   p.ContactID,
			Level:       l,
			LastUpdated: time.UnixMilli(p.LastUpdated),
			ManuallySet: p.IsManuallySet,
		}
	}
	return levels, skipped, nil
}
