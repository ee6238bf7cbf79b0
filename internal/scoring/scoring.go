// Package scoring combines sender trust, path length, path security and peer
// votes into a single bounded trust score for a relayed message.
//
// The score is a heuristic for ranking and display. It carries no
// cryptographic meaning and does not decide delivery or forwarding.
package scoring

import (
	"math"
	"time"

	"github.com/ziadkadry99/meshtrust/internal/trust"
	"github.com/ziadkadry99/meshtrust/internal/verification"
)

// Scoring weights. A direct, secure message from a fully trusted sender with
// no votes scores SenderWeight+HopWeight+SecurityWeight = 0.9, leaving the
// rest for peer corroboration.
const (
	SenderWeight              = 0.5
	HopWeight                 = 0.3
	SecurityWeight            = 0.1
	HopPenaltyPerHop          = 0.1
	MaxHopPenalty             = 0.5
	MaxVerificationAdjustment = 0.15
)

// TrustSource resolves a contact's trust decision. *trust.Store satisfies it.
type TrustSource interface {
	Get(contactID string) trust.ContactTrust
}

// VerificationSource lists the votes on a message. *verification.Store satisfies it.
type VerificationSource interface {
	ForMessage(messageID string) []verification.Record
}

// Evaluation is a point-in-time score for one message. It is never stored;
// evaluating the same message later may give a different result.
type Evaluation struct {
	MessageID         string      `json:"message_id"`
	OriginalSenderID  string      `json:"original_sender_id"`
	SenderTrustLevel  trust.Level `json:"sender_trust_level"`
	HopCount          int         `json:"hop_count"`
	HasInsecureHop    bool        `json:"has_insecure_hop"`
	Confirmations     int         `json:"confirmations"`
	Rejections        int         `json:"rejections"`
	OverallTrustScore float64     `json:"overall_trust_score"`
	Timestamp         time.Time   `json:"timestamp"`
}

// Rating is the human-readable classification of the evaluation's score.
func (e Evaluation) Rating() string { return Rating(e.OverallTrustScore) }

// Indicator is the single-glyph classification of the evaluation's score.
func (e Evaluation) Indicator() string { return Indicator(e.OverallTrustScore) }

// Scorer evaluates messages against the current trust and vote state.
type Scorer struct {
	trust         TrustSource
	verifications VerificationSource
	now           func() time.Time
}

// NewScorer returns a Scorer reading trust from ts and stored votes from vs.
// vs may be nil if callers always pass votes explicitly to Evaluate.
func NewScorer(ts TrustSource, vs VerificationSource) *Scorer {
	return &Scorer{trust: ts, verifications: vs, now: time.Now}
}

// Score returns the trust score in [0,1] for a message from senderID that
// crossed hopCount relays. Unknown senders and voters count as level 0.
func (s *Scorer) Score(senderID string, hopCount int, verifications []verification.Record, hasInsecureHop bool) float64 {
	sender := s.trust.Get(senderID).Factor() * SenderWeight

	if hopCount < 0 {
		hopCount = 0
	}
	hopPenalty := math.Min(float64(hopCount)*HopPenaltyPerHop, MaxHopPenalty)
	hops := math.Max(0, 1-hopPenalty) * HopWeight

	security := SecurityWeight
	if hasInsecureHop {
		security = -SecurityWeight
	}

	// Rounded so sums such as 0.3-0.1 land on the rating thresholds exactly.
	v := sender + hops + security + s.VerificationAdjustment(verifications)
	return clamp(math.Round(v*1e9)/1e9, 0, 1)
}

// VerificationAdjustment is the trust-weighted consensus of verifications,
// scaled into [-MaxVerificationAdjustment, +MaxVerificationAdjustment].
// Votes from level-0 contacts carry no weight at all.
func (s *Scorer) VerificationAdjustment(verifications []verification.Record) float64 {
	var totalWeight, signedSum float64
	for _, v := range verifications {
		w := s.trust.Get(v.VerifierID).Factor()
		if w <= 0 {
			continue
		}
		totalWeight += w
		if v.Confirmed {
			signedSum += w
		} else {
			signedSum -= w
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return clamp(signedSum/totalWeight*MaxVerificationAdjustment, -MaxVerificationAdjustment, MaxVerificationAdjustment)
}

// Evaluate scores a message against the given votes. Confirmation and
// rejection counts are unweighted and informational only.
func (s *Scorer) Evaluate(messageID, senderID string, hopCount int, verifications []verification.Record, hasInsecureHop bool) Evaluation {
	tally := verification.Tally(verifications)
	return Evaluation{
		MessageID:         messageID,
		OriginalSenderID:  senderID,
		SenderTrustLevel:  s.trust.Get(senderID).Level,
		HopCount:          hopCount,
		HasInsecureHop:    hasInsecureHop,
		Confirmations:     tally.Confirmations,
		Rejections:        tally.Rejections,
		OverallTrustScore: s.Score(senderID, hopCount, verifications, hasInsecureHop),
		Timestamp:         s.now(),
	}
}

// EvaluateMessage scores a message against the votes currently stored for it.
func (s *Scorer) EvaluateMessage(messageID, senderID string, hopCount int, hasInsecureHop bool) Evaluation {
	var votes []verification.Record
	if s.verifications != nil {
		votes = s.verifications.ForMessage(messageID)
	}
	return s.Evaluate(messageID, senderID, hopCount, votes, hasInsecureHop)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
