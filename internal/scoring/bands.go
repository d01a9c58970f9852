package scoring

// Surfacing policy applied by callers (the review gate), not the scorer.

type Band string

const (
	BandHigh     Band = "high"     // score >= 70
	BandGood     Band = "good"     // 60 <= score < 70
	BandMarginal Band = "marginal" // 50 <= score < 60, shown but flagged
)

// Surface reports whether an opportunity score clears the reviewer bar and,
// if so, which priority band it lands in.
func Surface(total float64) (Band, bool) {
	switch {
	case total >= 70:
		return BandHigh, true
	case total >= 60:
		return BandGood, true
	case total >= 50:
		return BandMarginal, true
	default:
		return "", false
	}
}
