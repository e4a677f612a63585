// internal/models/match.go
package models

// Score bounds of the compatibility scale.
const (
	MinCompatibility = 1
	MaxCompatibility = 100

	ExcellentThreshold = 70
	GoodThreshold      = 50
)

// Recommendation is the three-tier band derived from a compatibility score.
type Recommendation string

const (
	RecommendationExcellent Recommendation = "excellent"
	RecommendationGood      Recommendation = "good"
	RecommendationPoor      Recommendation = "poor"
)

// RecommendationFor bands a score: >= 70 excellent, 50-69 good, else poor.
func RecommendationFor(compatibility int) Recommendation {
	switch {
	case compatibility >= ExcellentThreshold:
		return RecommendationExcellent
	case compatibility >= GoodThreshold:
		return RecommendationGood
	default:
		return RecommendationPoor
	}
}

func (r Recommendation) Headline() string {
	switch r {
	case RecommendationExcellent:
		return "Excellent Match!"
	case RecommendationGood:
		return "Good Match"
	default:
		return "Poor Match"
	}
}

func (r Recommendation) Summary() string {
	switch r {
	case RecommendationExcellent:
		return "This creator would be an ideal partner for your brand."
	case RecommendationGood:
		return "This creator could be a suitable partner with some considerations."
	default:
		return "This creator may not be the best fit for your brand at this time."
	}
}

func (r Recommendation) Badge() string {
	switch r {
	case RecommendationExcellent:
		return "Recommended for Partnership"
	case RecommendationGood:
		return "Consider for Partnership"
	default:
		return "Not Recommended"
	}
}

// Positive reports whether reasons should be shown as points in favour.
func (r Recommendation) Positive() bool {
	return r != RecommendationPoor
}

// MatchResult is the outcome of one analysis. It is never mutated after
// creation; callers that hand it out copy it first.
type MatchResult struct {
	Compatibility  int            `json:"compatibility"`
	Reasons        []string       `json:"reasons"`
	Recommendation Recommendation `json:"recommendation"`
}

// Clone returns a deep copy.
func (m *MatchResult) Clone() *MatchResult {
	if m == nil {
		return nil
	}
	out := *m
	out.Reasons = append([]string(nil), m.Reasons...)
	return &out
}

// Valid checks the banding invariant and score range.
func (m *MatchResult) Valid() bool {
	if m == nil {
		return false
	}
	if m.Compatibility < MinCompatibility || m.Compatibility > MaxCompatibility {
		return false
	}
	return m.Recommendation == RecommendationFor(m.Compatibility) && len(m.Reasons) > 0
}
