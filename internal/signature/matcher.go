package signature

// maxMatchesPerSignature bounds how many hits a single signature records.
// Only presence matters downstream; the cap keeps adversarial payloads with
// thousands of repeats from inflating the match list.
const maxMatchesPerSignature = 4

// Match is a single hit of a signature against scanned text.
type Match struct {
	Signature *Signature
	Text      string // exact matched substring
	Start     int    // byte offset in the scanned text
	End       int
}

// Matcher runs a fixed set of signatures against free text. It holds no
// mutable state and is safe for concurrent use.
type Matcher struct {
	signatures []*Signature
}

// NewMatcher returns a matcher over the built-in catalogue.
func NewMatcher() *Matcher {
	return &Matcher{signatures: builtin}
}

// NewMatcherWith returns a matcher over a custom signature set.
func NewMatcherWith(signatures []*Signature) *Matcher {
	return &Matcher{signatures: signatures}
}

// Len reports how many signatures the matcher evaluates.
func (m *Matcher) Len() int { return len(m.signatures) }

// Scan runs every signature against text and returns all matches, ordered by
// signature then by offset.
func (m *Matcher) Scan(text string) []Match {
	if text == "" {
		return nil
	}
	var matches []Match
	for _, sig := range m.signatures {
		for _, loc := range sig.Pattern.FindAllStringIndex(text, maxMatchesPerSignature) {
			matches = append(matches, Match{
				Signature: sig,
				Text:      text[loc[0]:loc[1]],
				Start:     loc[0],
				End:       loc[1],
			})
		}
	}
	return matches
}

// MaxRiskTier returns the highest tier among matches. ok is false when
// matches is empty.
func MaxRiskTier(matches []Match) (tier Tier, ok bool) {
	for _, m := range matches {
		if m.Signature.Tier > tier {
			tier = m.Signature.Tier
			ok = true
		}
	}
	return tier, ok
}

// Confidence reduces matches to a single score: the mapped confidence of the
// worst tier present, or 0 when nothing matched.
func Confidence(matches []Match) float64 {
	tier, ok := MaxRiskTier(matches)
	if !ok {
		return 0
	}
	return TierConfidence(tier)
}
