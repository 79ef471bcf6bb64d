// Package battery turns the vehicle's binary charging telemetry into a
// bounded percentage estimate. The hardware never reports an actual
// level, so the estimate is a heuristic counter, not a gauge.
package battery

import "github.com/seagrayinc/usbcar/internal/car"

const (
	// ChargeStep is added per consecutive charging observation.
	ChargeStep = 10
	// Full is the estimate ceiling, reported outright once the
	// vehicle says it is charged.
	Full = 100
)

// Estimator folds telemetry samples into a displayable estimate.
// Observe must run exactly once per poll: the polling cadence is what
// paces the charging animation.
type Estimator struct {
	level int
	known bool
}

// Observe folds one raw sample into the estimate.
func (e *Estimator) Observe(s car.Status) {
	switch s {
	case car.StatusCharging:
		if !e.known {
			e.level, e.known = 0, true
			return
		}
		e.level += ChargeStep
		if e.level > Full {
			e.level = Full
		}
	case car.StatusCharged:
		e.level, e.known = Full, true
	default:
		// Disconnection and ambiguity always beat history.
		e.level, e.known = 0, false
	}
}

// Level returns the current estimate; ok is false while the charge is
// unknown and the level is then meaningless.
func (e *Estimator) Level() (level int, ok bool) {
	return e.level, e.known
}
