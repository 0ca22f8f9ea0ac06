package eligibility_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assessmentmodels "verdant/internal/assessment/models"
	"verdant/internal/eligibility"
	"verdant/internal/scoring"
	dErrors "verdant/pkg/domain-errors"
)

type stubAssessments struct {
	submitted bool
	progress  int
	err       error
}

func (s *stubAssessments) Load(_ context.Context, userID string) (*assessmentmodels.Assessment, error) {
	if s.err != nil {
		return nil, s.err
	}
	a := assessmentmodels.New("a-1", userID, time.Now().UTC())
	if s.progress > 0 {
		a.ApplySave(s.progress, map[string]string{"carbon_reporting": "yes"}, time.Now().UTC())
	}
	if s.submitted {
		a.ApplySubmit(time.Now().UTC())
	}
	return a, nil
}

type stubScores struct {
	score *scoring.Score
	err   error
}

func (s *stubScores) Latest(context.Context, string) (*scoring.Score, error) {
	return s.score, s.err
}

func TestCheck(t *testing.T) {
	newChecker := func(a *stubAssessments, sc *stubScores) *eligibility.Checker {
		return eligibility.NewChecker(a, sc, 50, slog.Default())
	}

	t.Run("unsubmitted assessment", func(t *testing.T) {
		checker := newChecker(&stubAssessments{}, &stubScores{})
		res, err := checker.Check(context.Background(), "user-1")
		require.NoError(t, err)
		assert.False(t, res.Eligible)
		assert.Equal(t, "assessment not completed", res.Reason)
		assert.Nil(t, res.Score)
	})

	t.Run("final step reached without submit counts as completed", func(t *testing.T) {
		checker := newChecker(
			&stubAssessments{progress: assessmentmodels.MaxStep},
			&stubScores{err: dErrors.New(dErrors.CodeNotFound, "no score recorded")},
		)
		res, err := checker.Check(context.Background(), "user-1")
		require.NoError(t, err)
		assert.False(t, res.Eligible)
		assert.Equal(t, "assessment not yet scored", res.Reason)
	})

	t.Run("submitted but never scored", func(t *testing.T) {
		checker := newChecker(
			&stubAssessments{submitted: true},
			&stubScores{err: dErrors.New(dErrors.CodeNotFound, "no score recorded")},
		)
		res, err := checker.Check(context.Background(), "user-1")
		require.NoError(t, err)
		assert.False(t, res.Eligible)
		assert.Equal(t, "assessment not yet scored", res.Reason)
	})

	t.Run("score below threshold", func(t *testing.T) {
		checker := newChecker(
			&stubAssessments{submitted: true},
			&stubScores{score: &scoring.Score{Value: 49.99}},
		)
		res, err := checker.Check(context.Background(), "user-1")
		require.NoError(t, err)
		assert.False(t, res.Eligible)
		assert.Equal(t, "score below minimum threshold (50)", res.Reason)
		require.NotNil(t, res.Score)
		assert.Equal(t, 49.99, *res.Score)
	})

	t.Run("score at threshold is eligible", func(t *testing.T) {
		checker := newChecker(
			&stubAssessments{submitted: true},
			&stubScores{score: &scoring.Score{Value: 50}},
		)
		res, err := checker.Check(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, res.Eligible)
		assert.Empty(t, res.Reason)
	})

	t.Run("store failure fails closed", func(t *testing.T) {
		checker := newChecker(
			&stubAssessments{err: dErrors.New(dErrors.CodeInternal, "db down")},
			&stubScores{},
		)
		res, err := checker.Check(context.Background(), "user-1")
		require.Error(t, err)
		assert.False(t, res.Eligible)
	})
}
