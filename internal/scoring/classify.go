package scoring

// Boundary maps a minimum score to a grade label.
type Boundary struct {
	Grade string
	Min   float64
}

// DefaultLetterBoundaries returns the certificate letter grading scale.
func DefaultLetterBoundaries() []Boundary {
	return []Boundary{
		{Grade: "A+", Min: 90},
		{Grade: "A", Min: 80},
		{Grade: "B", Min: 70},
		{Grade: "C", Min: 60},
		{Grade: "D", Min: 50},
		{Grade: "F", Min: 0},
	}
}

// DefaultBadgeBoundaries returns the completeness badge scale. Badges
// classify the answered percentage, not the credit score.
func DefaultBadgeBoundaries() []Boundary {
	return []Boundary{
		{Grade: "ESG+++", Min: 95},
		{Grade: "ESG++", Min: 85},
		{Grade: "ESG+", Min: 75},
		{Grade: "ESG", Min: 0},
	}
}

// Classify returns the grade of the first boundary the score meets.
// Boundaries are checked in order, so callers pass them highest first.
// Scores below every boundary fall into the last tier.
func Classify(score float64, boundaries []Boundary) string {
	if len(boundaries) == 0 {
		return ""
	}
	for _, b := range boundaries {
		if score >= b.Min {
			return b.Grade
		}
	}
	return boundaries[len(boundaries)-1].Grade
}
