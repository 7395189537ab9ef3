package train

import (
	"math"

	"github.com/cxd309/railsim/internal/route"
)

// DistanceToTrainAhead walks forward from the current section through the rest
// of the route and returns the gap to the nearest train found, less that
// train's length. It returns +Inf when no train is ahead on the route.
//
// Trains on other routes count when they run the same way in the same
// direction over part of the section. Trains level with this one count as
// ahead only if they have a lower id, so two trains placed on the same spot
// never both move.
func (t *Train) DistanceToTrainAhead(others []Snapshot) float64 {
	toSectionStart := -t.DistanceAlongSection
	for j := t.section; j < t.Route.Len(); j++ {
		sec := t.Route.Section(j)
		best := math.Inf(1)
		for _, o := range others {
			if o.ID == t.ID {
				continue
			}
			d, ok := positionOn(sec, o)
			if !ok {
				continue
			}
			if j == t.section && !ahead(d, o.ID, t) {
				continue
			}
			if g := toSectionStart + d - o.Length; g < best {
				best = g
			}
		}
		if !math.IsInf(best, 1) {
			return best
		}
		toSectionStart += sec.Length()
	}
	return math.Inf(1)
}

// sectionEps absorbs rounding when a train sits on a section boundary.
const sectionEps = 1e-9

// positionOn returns o's distance into sec, if o is on that stretch of track
// and travelling in the same direction.
func positionOn(sec *route.Section, o Snapshot) (float64, bool) {
	if o.Section == sec.Key() {
		return o.DistanceAlongSection, true
	}
	if o.Section.Way != sec.WayID || o.SectionReversed != sec.Reversed || o.OnLoop || sec.IsLoop() {
		return 0, false
	}
	d := sec.SectionDistance(o.WayPosition)
	if d < -sectionEps || d > sec.Length()+sectionEps {
		return 0, false
	}
	return math.Max(0, d), true
}

func ahead(d float64, id ID, t *Train) bool {
	if d != t.DistanceAlongSection {
		return d > t.DistanceAlongSection
	}
	return id < t.ID
}

// NextStop returns the first stop at or beyond the train's route position,
// skipping the stop it last dwelled at while still within arrival tolerance
// of it.
func (t *Train) NextStop() (route.Stop, bool) {
	for _, s := range t.Route.Stops() {
		gap := s.Distance - t.RoutePosition
		if gap < 0 {
			continue
		}
		if t.hasLastStop && s.NodeID == t.LastStop && gap <= t.cfg.ArrivalTolerance {
			continue
		}
		return s, true
	}
	return route.Stop{}, false
}

// DistanceToNextStop returns the metres to the next stop or +Inf if none remains.
func (t *Train) DistanceToNextStop() float64 {
	s, ok := t.NextStop()
	if !ok {
		return math.Inf(1)
	}
	return s.Distance - t.RoutePosition
}
