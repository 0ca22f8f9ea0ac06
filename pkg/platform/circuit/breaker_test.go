package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker(t *testing.T) {
	t.Run("starts closed", func(t *testing.T) {
		b := New("renderer")
		assert.False(t, b.IsOpen())
		assert.Equal(t, StateClosed, b.State())
		assert.Equal(t, "renderer", b.Name())
	})

	t.Run("opens on the configured failure", func(t *testing.T) {
		b := New("renderer", WithFailureThreshold(3))

		trip, change := b.RecordFailure()
		assert.False(t, trip)
		assert.False(t, change.Opened)

		trip, change = b.RecordFailure()
		assert.False(t, trip)
		assert.False(t, change.Opened)

		trip, change = b.RecordFailure()
		assert.True(t, trip)
		assert.True(t, change.Opened)
		assert.True(t, b.IsOpen())
	})

	t.Run("closes after enough successes", func(t *testing.T) {
		b := New("renderer", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()
		assert.True(t, b.IsOpen())

		closed, change := b.RecordSuccess()
		assert.False(t, closed)
		assert.False(t, change.Closed)
		assert.True(t, b.IsOpen())

		closed, change = b.RecordSuccess()
		assert.True(t, closed)
		assert.True(t, change.Closed)
		assert.False(t, b.IsOpen())
	})

	t.Run("a success wipes the failure streak", func(t *testing.T) {
		b := New("renderer", WithFailureThreshold(3))
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()

		b.RecordFailure()
		b.RecordFailure()
		assert.False(t, b.IsOpen())

		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})

	t.Run("a failure wipes the success streak", func(t *testing.T) {
		b := New("renderer", WithFailureThreshold(1), WithSuccessThreshold(3))
		b.RecordFailure()

		b.RecordSuccess()
		b.RecordSuccess()
		b.RecordFailure()
		assert.True(t, b.IsOpen())

		b.RecordSuccess()
		b.RecordSuccess()
		assert.True(t, b.IsOpen())
		b.RecordSuccess()
		assert.False(t, b.IsOpen())
	})

	t.Run("reset forces closed", func(t *testing.T) {
		b := New("renderer", WithFailureThreshold(1))
		b.RecordFailure()
		assert.True(t, b.IsOpen())

		b.Reset()
		assert.False(t, b.IsOpen())
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("failures while open change nothing", func(t *testing.T) {
		b := New("renderer", WithFailureThreshold(1))
		b.RecordFailure()

		trip, change := b.RecordFailure()
		assert.True(t, trip)
		assert.False(t, change.Opened)
	})
}
