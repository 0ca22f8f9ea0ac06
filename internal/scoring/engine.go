// Package scoring turns submitted questionnaire answers into numeric scores
// and classified grades. Engines are pure values: all configuration is
// passed in, nothing reads globals, and the same answers always produce the
// same score.
package scoring

import (
	"math"
	"strings"
)

const creditMax = 10

// Engine scores a full answer set on a 0..100 scale.
type Engine interface {
	Score(answers map[string]string) float64
}

// KeywordRule overrides the credit keyword lists for a single question.
type KeywordRule struct {
	Full    []string
	Partial []string
	None    []string
}

// SimpleAggregate grants per-answer credit from keyword lists and averages
// it across all answered questions. Unmatched answers fall back to a length
// heuristic: substantive free text earns most of the credit, short
// unclassifiable answers earn a token amount.
type SimpleAggregate struct {
	Rules         map[string]KeywordRule
	FullCredit    []string
	PartialCredit []string
	NoCredit      []string
}

// DefaultSimpleAggregate returns the stock credit vocabulary.
func DefaultSimpleAggregate() SimpleAggregate {
	return SimpleAggregate{
		FullCredit:    []string{"yes", "full", "always", "implemented"},
		PartialCredit: []string{"partial", "partially", "sometimes", "in progress"},
		NoCredit:      []string{"no", "none", "never", "not applicable"},
	}
}

// Score averages per-answer credit and scales to 0..100, rounded to two
// decimals. An empty answer set scores zero.
func (e SimpleAggregate) Score(answers map[string]string) float64 {
	if len(answers) == 0 {
		return 0
	}

	var total float64
	for question, answer := range answers {
		total += e.credit(question, answer)
	}
	return round2(total / float64(len(answers)*creditMax) * 100)
}

func (e SimpleAggregate) credit(question, answer string) float64 {
	full, partial, none := e.FullCredit, e.PartialCredit, e.NoCredit
	if rule, ok := e.Rules[question]; ok {
		full, partial, none = rule.Full, rule.Partial, rule.None
	}

	normalized := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case containsKeyword(normalized, full):
		return creditMax
	case containsKeyword(normalized, partial):
		return 5
	case containsKeyword(normalized, none):
		return 0
	case len(answer) > 50:
		return 7
	default:
		return 3
	}
}

// containsKeyword reports whether the answer contains any keyword as a
// substring. Keywords are checked in list order.
func containsKeyword(answer string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(answer, kw) {
			return true
		}
	}
	return false
}

// Category buckets questions into the three reporting pillars.
type Category string

const (
	CategoryEnvironmental Category = "environmental"
	CategorySocial        Category = "social"
	CategoryGovernance    Category = "governance"
)

// categoryOrder fixes iteration order so classification and weighting are
// deterministic.
var categoryOrder = []Category{CategoryEnvironmental, CategorySocial, CategoryGovernance}

// WeightedCategory classifies each question into a pillar by keyword match
// on the question identifier, averages credit per pillar, and blends the
// pillar percentages with the configured weights.
type WeightedCategory struct {
	Keywords map[Category][]string
	Weights  map[Category]float64
	Credit   SimpleAggregate
}

// DefaultWeightedCategory returns the stock pillar keywords and the
// 0.35/0.35/0.30 weighting.
func DefaultWeightedCategory() WeightedCategory {
	return WeightedCategory{
		Keywords: map[Category][]string{
			CategoryEnvironmental: {"env", "carbon", "emission", "energy", "waste", "water"},
			CategorySocial:        {"social", "labor", "community", "diversity", "health", "safety"},
			CategoryGovernance:    {"gov", "board", "ethic", "compliance", "audit", "risk"},
		},
		Weights: map[Category]float64{
			CategoryEnvironmental: 0.35,
			CategorySocial:        0.35,
			CategoryGovernance:    0.30,
		},
		Credit: DefaultSimpleAggregate(),
	}
}

func (e WeightedCategory) Score(answers map[string]string) float64 {
	if len(answers) == 0 {
		return 0
	}

	sums := map[Category]float64{}
	counts := map[Category]int{}
	for question, answer := range answers {
		cat := e.classify(question)
		sums[cat] += e.Credit.credit(question, answer)
		counts[cat]++
	}

	var score float64
	for _, cat := range categoryOrder {
		if counts[cat] == 0 {
			continue
		}
		pct := sums[cat] / float64(counts[cat]*creditMax) * 100
		score += pct * e.Weights[cat]
	}
	return round2(score)
}

// classify assigns a question to the first pillar whose keyword appears in
// the question identifier. Unmatched questions count as governance.
func (e WeightedCategory) classify(question string) Category {
	normalized := strings.ToLower(question)
	for _, cat := range categoryOrder {
		for _, kw := range e.Keywords[cat] {
			if strings.Contains(normalized, kw) {
				return cat
			}
		}
	}
	return CategoryGovernance
}

// AnsweredPercentage reports the share of questions carrying a non-empty
// answer, on a 0..100 scale rounded to two decimals. Badge classification
// runs on this value rather than the credit score.
func AnsweredPercentage(answers map[string]string) float64 {
	if len(answers) == 0 {
		return 0
	}
	var answered int
	for _, v := range answers {
		if strings.TrimSpace(v) != "" {
			answered++
		}
	}
	return round2(float64(answered) / float64(len(answers)) * 100)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
