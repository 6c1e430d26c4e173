package signature

// Tier is the ordered severity of a signature. The zero value is not a valid
// tier and never appears in the catalogue.
type Tier int

const (
	Low Tier = iota + 1
	Medium
	High
	Critical
)

func (t Tier) String() string {
	switch t {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// TierConfidence maps a tier to the confidence score the combinator uses.
// Higher tiers never map to a lower score.
func TierConfidence(t Tier) float64 {
	switch t {
	case Low:
		return 0.30
	case Medium:
		return 0.60
	case High:
		return 0.85
	case Critical:
		return 0.95
	default:
		return 0
	}
}

// Confidence is shorthand for TierConfidence(t).
func (t Tier) Confidence() float64 { return TierConfidence(t) }
