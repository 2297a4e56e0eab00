package reducer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldAccumulator(t *testing.T) {
	start := time.Unix(100, 0)
	before := time.Unix(50, 0)
	after := time.Unix(150, 0)

	t.Run("first event inside window fixes start to old value", func(t *testing.T) {
		var acc fieldAccumulator
		acc.observe(after, start, "open", "resolved")

		assert.Equal(t, phaseFixed, acc.phase)
		assert.Equal(t, "open", acc.start)
		assert.Equal(t, "resolved", acc.end)
	})

	t.Run("event exactly at start counts as inside", func(t *testing.T) {
		var acc fieldAccumulator
		acc.observe(start, start, "open", "resolved")

		assert.Equal(t, phaseFixed, acc.phase)
		assert.Equal(t, "open", acc.start)
	})

	t.Run("events before start keep rolling", func(t *testing.T) {
		var acc fieldAccumulator
		acc.observe(time.Unix(10, 0), start, "", "open")
		acc.observe(before, start, "open", "stalled")

		assert.Equal(t, phaseRolling, acc.phase)
		assert.Equal(t, "stalled", acc.start)
		assert.Equal(t, "stalled", acc.end)
	})

	t.Run("rolled value freezes once the window begins", func(t *testing.T) {
		var acc fieldAccumulator
		acc.observe(before, start, "open", "stalled")
		acc.observe(after, start, "something-else", "resolved")
		acc.observe(after.Add(time.Second), start, "resolved", "open")

		assert.Equal(t, phaseFixed, acc.phase)
		assert.Equal(t, "stalled", acc.start)
		assert.Equal(t, "open", acc.end)
	})

	t.Run("fixed start is not overwritten by later in-window events", func(t *testing.T) {
		var acc fieldAccumulator
		acc.observe(after, start, "a", "b")
		acc.observe(after.Add(time.Second), start, "b", "c")

		assert.Equal(t, "a", acc.start)
		assert.Equal(t, "c", acc.end)
	})

	t.Run("zero value is unset and empty", func(t *testing.T) {
		var acc fieldAccumulator

		assert.Equal(t, phaseUnset, acc.phase)
		assert.Empty(t, acc.start)
		assert.Empty(t, acc.end)
	})
}
