package scoring

import (
	"cmp"
	"slices"
)

// Compare orders a and b by score: negative if a is less trusted, positive
// if more, zero if equal.
func Compare(a, b Evaluation) int {
	return cmp.Compare(a.OverallTrustScore, b.OverallTrustScore)
}

// FilterByMinTrust returns the evaluations scoring at least threshold, in
// their original order.
func FilterByMinTrust(evals []Evaluation, threshold float64) []Evaluation {
	out := make([]Evaluation, 0, len(evals))
	for _, e := range evals {
		if e.OverallTrustScore >= threshold {
			out = append(out, e)
		}
	}
	return out
}

// SortByTrust returns a copy of evals ordered by descending score. Equal
// scores keep their original order.
func SortByTrust(evals []Evaluation) []Evaluation {
	out := slices.Clone(evals)
	slices.SortStableFunc(out, func(a, b Evaluation) int { return Compare(b, a) })
	return out
}

// Rating buckets a score for display.
func Rating(score float64) string {
	switch {
	case score < 0.2:
		return "Very Low"
	case score < 0.4:
		return "Low"
	case score < 0.6:
		return "Medium"
	case score < 0.8:
		return "High"
	default:
		return "Very High"
	}
}

// Indicator is the glyph matching Rating.
func Indicator(score float64) string {
	switch {
	case score < 0.2:
		return "🔴"
	case score < 0.4:
		return "🟠"
	case score < 0.6:
		return "🟡"
	case score < 0.8:
		return "🟢"
	default:
		return "✅"
	}
}
