package train

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/kinematics"
	"github.com/cxd309/railsim/internal/route"
)

// Snapshot is a point-in-time, read-only copy of a train's state. The fleet
// hands the same set of snapshots to every train in a tick, and the host
// renders from it.
type Snapshot struct {
	ID                   ID               `json:"id"`
	Route                string           `json:"route"`
	Point                orb.Point        `json:"point"` // [lon, lat]
	Bearing              float64          `json:"bearing"`
	Velocity             float64          `json:"velocity"`
	Acceleration         float64          `json:"acceleration"`
	State                State            `json:"state"`
	RemainingDwell       float64          `json:"remaining_dwell"`
	WayID                osm.WayID        `json:"way_id"`
	Section              route.SectionKey `json:"-"`
	SectionReversed      bool             `json:"-"`
	OnLoop               bool             `json:"-"`
	WayPosition          float64          `json:"-"` // metres from the way's first node
	DistanceAlongSection float64          `json:"distance_along_section"`
	RoutePosition        float64          `json:"route_position"`
	NextStop             osm.NodeID       `json:"next_stop,omitempty"`
	LastStop             osm.NodeID       `json:"last_stop,omitempty"`
	Term                 kinematics.Term  `json:"control_term,omitempty"`
	Degenerate           bool             `json:"degenerate,omitempty"`
	Length               float64          `json:"-"`
}

// Snapshot returns a point-in-time copy of the train state.
func (t *Train) Snapshot() Snapshot {
	s := Snapshot{
		ID:                   t.ID,
		Route:                t.Route.Name,
		Point:                t.Point,
		Bearing:              t.Bearing,
		Velocity:             t.Velocity,
		Acceleration:         t.Acceleration,
		State:                t.State,
		RemainingDwell:       t.RemainingDwell,
		DistanceAlongSection: t.DistanceAlongSection,
		RoutePosition:        t.RoutePosition,
		Term:                 t.Term,
		Degenerate:           t.degenerate,
		Length:               t.Vehicle.Length,
	}
	if sec := t.Section(); sec != nil {
		s.WayID = sec.WayID
		s.Section = sec.Key()
		s.SectionReversed = sec.Reversed
		s.OnLoop = sec.IsLoop()
		s.WayPosition = sec.WayPosition(t.DistanceAlongSection)
	}
	if stop, ok := t.NextStop(); ok {
		s.NextStop = stop.NodeID
	}
	if t.hasLastStop {
		s.LastStop = t.LastStop
	}
	return s
}
