package reducer

import "time"

// phase is the boundary state of a field accumulator.
type phase int

const (
	phaseUnset   phase = iota // no event seen yet
	phaseRolling              // only events before start seen; start value still moves
	phaseFixed                // start value settled
)

// fieldAccumulator tracks one field's value just before start and at the end of an interval.
type fieldAccumulator struct {
	phase phase
	start string
	end   string
}

// observe folds one event touching the field into the accumulator.
func (a *fieldAccumulator) observe(at, start time.Time, oldValue, newValue string) {
	switch {
	case a.phase == phaseUnset && !at.Before(start):
		a.phase = phaseFixed
		a.start = oldValue
	case at.Before(start):
		a.phase = phaseRolling
		a.start = newValue
	case a.phase == phaseRolling:
		a.phase = phaseFixed
	}
	a.end = newValue
}
