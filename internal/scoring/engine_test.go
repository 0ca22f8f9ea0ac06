package scoring_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"verdant/internal/scoring"
)

func TestSimpleAggregate(t *testing.T) {
	engine := scoring.DefaultSimpleAggregate()

	t.Run("three yes and two no score sixty", func(t *testing.T) {
		answers := map[string]string{
			"q1": "yes",
			"q2": "yes",
			"q3": "yes",
			"q4": "no",
			"q5": "no",
		}
		assert.Equal(t, 60.00, engine.Score(answers))
	})

	t.Run("partial answers earn half credit", func(t *testing.T) {
		assert.Equal(t, 50.00, engine.Score(map[string]string{"q1": "partial"}))
	})

	t.Run("long free text earns most of the credit", func(t *testing.T) {
		long := strings.Repeat("we operate a certified recycling program ", 3)
		assert.Equal(t, 70.00, engine.Score(map[string]string{"q1": long}))
	})

	t.Run("short unclassifiable answers earn token credit", func(t *testing.T) {
		assert.Equal(t, 30.00, engine.Score(map[string]string{"q1": "maybe"}))
	})

	t.Run("credit keywords are case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, 100.00, engine.Score(map[string]string{"q1": "  YES "}))
	})

	t.Run("keywords match inside free text", func(t *testing.T) {
		assert.Equal(t, 100.00, engine.Score(map[string]string{"q1": "yes, fully"}))
		assert.Equal(t, 50.00, engine.Score(map[string]string{"q1": "partially rolled out"}))
		assert.Equal(t, 0.00, engine.Score(map[string]string{"q1": "not applicable to us"}))
	})

	t.Run("per-question rules override the defaults", func(t *testing.T) {
		engine := scoring.DefaultSimpleAggregate()
		engine.Rules = map[string]scoring.KeywordRule{
			"q1": {Full: []string{"certified"}},
		}
		assert.Equal(t, 100.00, engine.Score(map[string]string{"q1": "certified"}))
	})

	t.Run("empty answers score zero", func(t *testing.T) {
		assert.Zero(t, engine.Score(nil))
	})

	t.Run("determinism across runs", func(t *testing.T) {
		answers := map[string]string{
			"q1": "yes", "q2": "no", "q3": "partial", "q4": "maybe",
		}
		first := engine.Score(answers)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, engine.Score(answers))
		}
	})
}

func TestWeightedCategory(t *testing.T) {
	engine := scoring.DefaultWeightedCategory()

	t.Run("pillar percentages blend with the configured weights", func(t *testing.T) {
		answers := map[string]string{
			"env_recycling": "yes", // environmental 100%
			"social_safety": "no",  // social 0%
			"gov_board":     "yes", // governance 100%
		}
		// 100*0.35 + 0*0.35 + 100*0.30
		assert.Equal(t, 65.00, engine.Score(answers))
	})

	t.Run("unmatched questions default to governance", func(t *testing.T) {
		answers := map[string]string{"misc_question": "yes"}
		assert.Equal(t, 30.00, engine.Score(answers))
	})

	t.Run("missing pillars contribute nothing", func(t *testing.T) {
		answers := map[string]string{"env_energy": "yes"}
		assert.Equal(t, 35.00, engine.Score(answers))
	})
}

func TestClassify(t *testing.T) {
	letters := scoring.DefaultLetterBoundaries()

	cases := []struct {
		score float64
		grade string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.99, "A"},
		{80, "A"},
		{70, "B"},
		{60, "C"},
		{59.99, "D"},
		{50, "D"},
		{49.99, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, scoring.Classify(tc.score, letters),
			"score %.2f", tc.score)
	}

	t.Run("badge tiers classify the answered percentage", func(t *testing.T) {
		badges := scoring.DefaultBadgeBoundaries()
		assert.Equal(t, "ESG+++", scoring.Classify(100, badges))
		assert.Equal(t, "ESG++", scoring.Classify(90, badges))
		assert.Equal(t, "ESG+", scoring.Classify(75, badges))
		assert.Equal(t, "ESG", scoring.Classify(10, badges))
	})
}

func TestAnsweredPercentage(t *testing.T) {
	answers := map[string]string{
		"q1": "yes",
		"q2": " ",
		"q3": "no",
		"q4": "",
	}
	assert.Equal(t, 50.00, scoring.AnsweredPercentage(answers))
	assert.Zero(t, scoring.AnsweredPercentage(nil))
}
