// Package models defines the assessment intake aggregate.
package models

import (
	"time"

	dErrors "verdant/pkg/domain-errors"
)

// MaxStep is the last step of the intake questionnaire.
const MaxStep = 5

// Assessment tracks a member's questionnaire answers and intake progress.
// Each member has at most one assessment, keyed by UserID.
type Assessment struct {
	ID          string
	UserID      string
	Answers     map[string]string
	Progress    int
	SubmittedAt *time.Time
	DocumentURL string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New returns an empty assessment for the user. Load paths use this so
// members who have never saved still see a well-formed zero state.
func New(id, userID string, now time.Time) *Assessment {
	return &Assessment{
		ID:        id,
		UserID:    userID,
		Answers:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Completed reports whether the assessment has been submitted.
func (a *Assessment) Completed() bool {
	return a.SubmittedAt != nil
}

// CanSave rejects draft writes after submission.
func (a *Assessment) CanSave() error {
	if a.Completed() {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"assessment already submitted")
	}
	return nil
}

// ApplySave merges the partial answers and advances progress. Progress is
// monotonic: a save from an earlier step never rewinds it.
func (a *Assessment) ApplySave(step int, partial map[string]string, now time.Time) {
	for q, v := range partial {
		a.Answers[q] = v
	}
	if step > a.Progress {
		a.Progress = step
	}
	if a.Progress > MaxStep {
		a.Progress = MaxStep
	}
	a.UpdatedAt = now
}

// ApplySubmit marks the assessment complete. Safe to call once; callers
// check Completed first for idempotent submits.
func (a *Assessment) ApplySubmit(now time.Time) {
	a.Progress = MaxStep
	submitted := now
	a.SubmittedAt = &submitted
	a.UpdatedAt = now
}

// Clone returns a deep copy so stored state cannot be mutated through
// returned pointers.
func (a *Assessment) Clone() *Assessment {
	clone := *a
	clone.Answers = make(map[string]string, len(a.Answers))
	for q, v := range a.Answers {
		clone.Answers[q] = v
	}
	if a.SubmittedAt != nil {
		submitted := *a.SubmittedAt
		clone.SubmittedAt = &submitted
	}
	return &clone
}
