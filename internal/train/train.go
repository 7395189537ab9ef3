// Package train implements a single simulated vehicle bound to a route: its
// per-tick state machine, block-signaling look-ahead and stop handling.
package train

import (
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/kinematics"
	"github.com/cxd309/railsim/internal/route"
)

// ID identifies a train within a fleet.
type ID = int

// State describes the current motion state of a train.
type State string

const (
	StateMoving   State = "moving"
	StateDwelling State = "dwelling"
)

// DefaultArrivalTolerance is how close, in metres, a train must come to its
// stop point to be considered arrived.
const DefaultArrivalTolerance = 5.0

// Config holds the per-train stop behaviour.
type Config struct {
	Dwell            float64 // seconds spent at every stop
	ArrivalTolerance float64 // metres
}

// Result is what one Update reports back to the fleet.
type Result struct {
	// EndOfSection is set once the train has covered its current section and
	// needs AdvanceSection before it can move on.
	EndOfSection bool
}

// Train is a vehicle moving along a route. It is mutated only by its own
// Update and AdvanceSection.
type Train struct {
	ID      ID
	Route   *route.Route
	Vehicle Vehicle

	section              int
	DistanceAlongSection float64 // metres into the current section
	RoutePosition        float64 // metres from the route start
	Velocity             float64 // m/s
	Acceleration         float64 // m/s²
	Term                 kinematics.Term

	State          State
	RemainingDwell float64 // seconds
	LastStop       osm.NodeID
	hasLastStop    bool

	Point   orb.Point
	Bearing float64 // degrees, 0-360

	cfg        Config
	degenerate bool
	logger     *slog.Logger
}

// New places a train offset metres along r. The train starts Moving at rest.
func New(id ID, r *route.Route, offset float64, vehicle Vehicle, cfg Config, logger *slog.Logger) *Train {
	if logger == nil {
		logger = slog.Default()
	}
	if vehicle.Kinem == nil {
		vehicle.Kinem = kinematics.DefaultConstant
	}
	if cfg.ArrivalTolerance <= 0 {
		cfg.ArrivalTolerance = DefaultArrivalTolerance
	}
	t := &Train{
		ID:      id,
		Route:   r,
		Vehicle: vehicle,
		State:   StateMoving,
		cfg:     cfg,
		logger:  logger.With("train", id, "route", r.Name),
	}
	offset = math.Max(0, math.Min(offset, r.TotalDistance()))
	t.section, t.DistanceAlongSection = r.Locate(offset)
	t.RoutePosition = r.Cumulative(t.section) + t.DistanceAlongSection
	t.place()
	return t
}

// Section returns the section the train currently occupies.
func (t *Train) Section() *route.Section { return t.Route.Section(t.section) }

// SectionIndex returns the index of the current section in the route.
func (t *Train) SectionIndex() int { return t.section }

// Degenerate reports whether the train's rendered position is unreliable
// because its section lacks geometry.
func (t *Train) Degenerate() bool { return t.degenerate }

// Update advances the train by dt seconds. others is the pre-tick snapshot of
// every train in the fleet; it is not modified and may include this train.
func (t *Train) Update(dt float64, others []Snapshot) Result {
	if dt < 0 {
		dt = 0
	}
	if t.State == StateDwelling {
		t.RemainingDwell -= dt
		if t.RemainingDwell > 0 {
			return Result{}
		}
		// Dwell finished: leave the stop from the next tick on.
		t.State = StateMoving
		t.RemainingDwell = 0
		return Result{}
	}

	sec := t.Section()
	if sec == nil {
		return Result{EndOfSection: true}
	}

	gapAhead := t.DistanceToTrainAhead(others)
	stop, hasStop := t.NextStop()
	gapStop, approach := math.Inf(1), math.Inf(1)
	if hasStop {
		gapStop = math.Max(0, stop.Distance-t.RoutePosition)
		// Brake towards the edge of the arrival window, so the train is
		// already at walking pace when it arrives.
		approach = math.Max(0, gapStop-t.cfg.ArrivalTolerance)
	}

	m := t.Vehicle.Kinem
	a, term := kinematics.Select(m, t.Velocity, gapAhead, approach).Min()
	v := math.Max(0, t.Velocity+a*dt)
	if a > 0 && v > m.VMax() {
		v = math.Max(t.Velocity, m.VMax())
	}

	step := v * dt
	if limit := math.Max(0, gapAhead); step > limit {
		// Never run into the train ahead: take only the granted distance
		// and slow to the speed that covers it.
		step = limit
		if dt > 0 {
			v = math.Min(v, step/dt)
		}
	}
	if step > gapStop {
		step = gapStop
	}

	prev := t.Velocity
	t.Velocity, t.Acceleration, t.Term = v, a, term
	t.DistanceAlongSection += step
	t.RoutePosition += step

	// Arriving ends the tick at rest, which must not take more than
	// emergency braking from the speed the tick started at.
	if hasStop && gapStop-step <= t.cfg.ArrivalTolerance && prev <= m.EmergencyDeceleration()*dt {
		t.arrive(stop)
	}
	t.place()
	return Result{EndOfSection: t.DistanceAlongSection >= sec.Length()}
}

func (t *Train) arrive(stop route.Stop) {
	t.State = StateDwelling
	t.RemainingDwell = t.cfg.Dwell
	t.Velocity = 0
	t.Acceleration = 0
	t.LastStop = stop.NodeID
	t.hasLastStop = true
	t.logger.Debug("arrived at stop", "node", stop.NodeID, "position", t.RoutePosition)
}

// AdvanceSection moves the train onto the start of the next section. It
// returns false when the route has no further section.
func (t *Train) AdvanceSection() bool {
	if t.section+1 >= t.Route.Len() {
		return false
	}
	t.section++
	t.DistanceAlongSection = 0
	t.RoutePosition = t.Route.Cumulative(t.section)
	t.place()
	return true
}

// place recomputes the rendered point and bearing from the section distance.
func (t *Train) place() {
	sec := t.Section()
	if sec == nil || !sec.HasGeometry() {
		if !t.degenerate {
			t.logger.Warn("train on section without geometry, position undefined",
				"section", t.section)
		}
		t.degenerate = true
		if sec != nil && len(sec.Coordinates()) == 1 {
			t.Point = sec.Coordinates()[0]
		}
		return
	}
	t.degenerate = false
	t.Point, t.Bearing = sec.PointAt(t.DistanceAlongSection)
}
