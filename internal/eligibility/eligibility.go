// Package eligibility decides whether a member qualifies for certificate
// issuance. The gate fails closed: any doubt, including a store failure,
// reads as not eligible.
package eligibility

import (
	"context"
	"fmt"
	"log/slog"

	assessmentmodels "verdant/internal/assessment/models"
	"verdant/internal/scoring"
	dErrors "verdant/pkg/domain-errors"
)

// Ineligibility reasons. Callers branch on these strings, so they are part
// of the package contract.
const (
	ReasonNotCompleted = "assessment not completed"
	ReasonNotScored    = "assessment not yet scored"
	reasonBelowFormat  = "score below minimum threshold (%v)"
)

// AssessmentReader loads a member's assessment, returning a zero-state one
// when the member has never saved.
type AssessmentReader interface {
	Load(ctx context.Context, userID string) (*assessmentmodels.Assessment, error)
}

// ScoreReader returns the member's authoritative score row.
type ScoreReader interface {
	Latest(ctx context.Context, userID string) (*scoring.Score, error)
}

// Result is the gate's verdict. Reason is set only when Eligible is false;
// Score is set whenever a score row exists.
type Result struct {
	Eligible bool
	Reason   string
	Score    *float64
}

// Checker evaluates the issuance requirements in order: the assessment must
// have reached the final step, a score must exist, and the score must meet
// the threshold.
type Checker struct {
	assessments AssessmentReader
	scores      ScoreReader
	minimum     float64
	logger      *slog.Logger
}

func NewChecker(assessments AssessmentReader, scores ScoreReader, minimum float64, logger *slog.Logger) *Checker {
	return &Checker{
		assessments: assessments,
		scores:      scores,
		minimum:     minimum,
		logger:      logger,
	}
}

// Check evaluates the member against the gate.
func (c *Checker) Check(ctx context.Context, userID string) (Result, error) {
	assessment, err := c.assessments.Load(ctx, userID)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}
	if assessment.Progress < assessmentmodels.MaxStep {
		return Result{Reason: ReasonNotCompleted}, nil
	}

	score, err := c.scores.Latest(ctx, userID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return Result{Reason: ReasonNotScored}, nil
		}
		return Result{}, err
	}

	value := score.Value
	if value < c.minimum {
		return Result{
			Reason: fmt.Sprintf(reasonBelowFormat, c.minimum),
			Score:  &value,
		}, nil
	}

	return Result{Eligible: true, Score: &value}, nil
}
