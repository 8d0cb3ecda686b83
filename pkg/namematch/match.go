package namematch

import "github.com/xrash/smetrics"

// Mode selects the comparison strategy.
type Mode int

const (
	// ModeExact accepts only normalized string equality.
	ModeExact Mode = iota
	// ModeClosest accepts the highest similarity score above the
	// threshold.
	ModeClosest
)

// DefaultThreshold is the minimum similarity a candidate must score in
// ModeClosest to be accepted.
const DefaultThreshold = 0.9

// Candidate pairs the titles a series is known by with an arbitrary
// payload returned on a successful match.
type Candidate[T any] struct {
	Titles  []string
	Payload T
}

// Matcher scores candidate titles against a query title. The zero value is
// not usable; construct with New.
type Matcher struct {
	mode      Mode
	threshold float64
}

func New(mode Mode, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{mode: mode, threshold: threshold}
}

// Match returns the best-matching candidate's payload. In ModeExact the
// first candidate with a normalized-equal title wins. In ModeClosest the
// candidate with the highest similarity above the threshold wins, ties
// broken by input order. The outcome depends only on the inputs: candidate
// order is preserved and no map iteration is involved.
func Match[T any](m *Matcher, query string, candidates []Candidate[T]) (T, bool) {
	var zero T
	normQuery := Normalize(query)
	if normQuery == "" {
		return zero, false
	}

	if m.mode == ModeExact {
		for _, c := range candidates {
			for _, title := range c.Titles {
				if Normalize(title) == normQuery {
					return c.Payload, true
				}
			}
		}
		return zero, false
	}

	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		score := 0.0
		for _, title := range c.Titles {
			if s := similarity(normQuery, Normalize(title)); s > score {
				score = s
			}
		}
		// Strictly greater keeps the first candidate on ties.
		if score >= m.threshold && score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return zero, false
	}
	return candidates[best].Payload, true
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}
