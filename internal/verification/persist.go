package verification

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// storageKey is the single key the verification namespace holds.
const storageKey = "message_verifications"

// persistedRecord is the stored shape of one Record.
type persistedRecord struct {
	MessageID   string `json:"messageId"`
	VerifierID  string `json:"verifierId"`
	IsConfirmed bool   `json:"isConfirmed"`
	Timestamp   int64  `json:"timestamp"`
	Comment     string `json:"comment"`
}

func encodeRecords(byMessage map[string][]Record) ([]byte, error) {
	ids := make([]string, 0, len(byMessage))
	total := 0
	for id, recs := range byMessage {
		ids = append(ids, id)
		total += len(recs)
	}
	sort.Strings(ids)

	out := make([]persistedRecord, 0, total)
	for _, id := range ids {
		for _, r := range byMessage[id] {
			out = append(out, persistedRecord{
				MessageID:   r.MessageID,
				VerifierID:  r.VerifierID,
				IsConfirmed: r.Confirmed,
				Timestamp:   r.Timestamp.UnixMilli(),
				Comment:     r.Comment,
			})
		}
	}
	return json.Marshal(out)
}

func decodeRecords(data []byte) ([]Record, error) {
	var in []persistedRecord
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decoding verifications: %w", err)
	}
	out := make([]Record, 0, len(in))
	for _, p := range in {
		out = append(out, Record{
			MessageID:  p.MessageID,
			VerifierID: p.VerifierID,
			Confirmed:  p.IsConfirmed,
			Timestamp:  time.UnixMilli(p.Timestamp),
			Comment:    p.Comment,
		})
	}
	return out, nil
}
