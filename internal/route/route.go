// Package route assembles track sections into continuous routes that trains
// can traverse, and keeps the derived distance and stop tables for them.
package route

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/network"
)

// ErrEmptyRoute is returned for a drawn route that has no sections.
var ErrEmptyRoute = errors.New("empty route")

// DefaultPlatformHalfLength is the distance, in metres, trains stop short of
// a stop node so that they come to rest with the platform centred.
const DefaultPlatformHalfLength = 50.0

// Options control derived route values.
type Options struct {
	PlatformHalfLength float64 // metres subtracted from every projected stop
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{PlatformHalfLength: DefaultPlatformHalfLength}
}

// Stop is a stop node projected onto the route.
type Stop struct {
	NodeID   osm.NodeID `json:"node_id"`
	Distance float64    `json:"distance"` // metres from the route start
}

// Route is an ordered chain of sections where each section starts at the node
// the previous one ends at. A Route is read-only once built; RebuildStops is
// the only mutation and must not run concurrently with readers.
type Route struct {
	Name string

	sections   []*Section
	cumulative []float64 // cumulative[i] is the distance at the start of section i
	polyline   orb.LineString
	stopIDs    []osm.NodeID
	stops      []Stop

	opts   Options
	net    *network.Network
	logger *slog.Logger
}

func newRoute(net *network.Network, name string, sections []*Section, stopIDs []osm.NodeID, opts Options) *Route {
	r := &Route{
		Name:     name,
		sections: sections,
		opts:     opts,
		net:      net,
		logger:   net.Logger().With("route", name),
	}
	r.cumulative = make([]float64, len(sections)+1)
	for i, s := range sections {
		r.cumulative[i+1] = r.cumulative[i] + s.Length()
	}
	r.polyline = mergePolyline(sections)
	r.RebuildStops(stopIDs)
	return r
}

// mergePolyline joins section coordinates, dropping the repeated point at
// each junction.
func mergePolyline(sections []*Section) orb.LineString {
	var ls orb.LineString
	for _, s := range sections {
		for _, p := range s.Coordinates() {
			if n := len(ls); n > 0 && ls[n-1] == p {
				continue
			}
			ls = append(ls, p)
		}
	}
	return ls
}

// RebuildStops recomputes the stop table for a new list of stop nodes. Each
// stop is projected onto the merged polyline and moved back by the platform
// half length. Stops whose node cannot be resolved are dropped.
func (r *Route) RebuildStops(stopIDs []osm.NodeID) {
	r.stopIDs = append([]osm.NodeID(nil), stopIDs...)
	r.stops = make([]Stop, 0, len(stopIDs))
	for _, id := range stopIDs {
		p, ok := r.net.Resolve(id)
		if !ok {
			r.logger.Warn("stop node not found, skipping", "node", id)
			continue
		}
		proj, ok := network.ProjectOnto(r.polyline, p)
		if !ok {
			r.logger.Warn("route has no geometry to project stop onto", "node", id)
			continue
		}
		d := proj.Distance - r.opts.PlatformHalfLength
		if d < 0 {
			d = 0
		}
		r.stops = append(r.stops, Stop{NodeID: id, Distance: d})
	}
	sort.SliceStable(r.stops, func(i, j int) bool { return r.stops[i].Distance < r.stops[j].Distance })
}

// Sections returns the ordered sections of the route.
func (r *Route) Sections() []*Section { return r.sections }

// Len returns the number of sections.
func (r *Route) Len() int { return len(r.sections) }

// Section returns section i, or nil when out of range.
func (r *Route) Section(i int) *Section {
	if i < 0 || i >= len(r.sections) {
		return nil
	}
	return r.sections[i]
}

// Cumulative returns the route distance at the start of section i. Passing
// Len() yields the total distance.
func (r *Route) Cumulative(i int) float64 {
	if i < 0 {
		return 0
	}
	if i >= len(r.cumulative) {
		return r.cumulative[len(r.cumulative)-1]
	}
	return r.cumulative[i]
}

// TotalDistance is the sum of all section lengths in metres.
func (r *Route) TotalDistance() float64 { return r.cumulative[len(r.cumulative)-1] }

// Polyline returns the merged route polyline.
func (r *Route) Polyline() orb.LineString { return r.polyline }

// HasGeometry reports whether a vehicle can be placed on the route.
func (r *Route) HasGeometry() bool { return len(r.polyline) >= 2 }

// StopIDs returns the declared stop nodes in route order.
func (r *Route) StopIDs() []osm.NodeID { return r.stopIDs }

// Stops returns the projected stops sorted by distance.
func (r *Route) Stops() []Stop { return r.stops }

// Options returns the options the route was built with.
func (r *Route) Options() Options { return r.opts }

// Locate returns the index of the section containing route distance d and the
// distance into that section. Distances past the end resolve to the end of
// the last section.
func (r *Route) Locate(d float64) (int, float64) {
	if len(r.sections) == 0 {
		return -1, 0
	}
	if d <= 0 {
		return 0, 0
	}
	i := sort.Search(len(r.sections), func(i int) bool { return r.cumulative[i+1] > d })
	if i == len(r.sections) {
		last := len(r.sections) - 1
		return last, r.sections[last].Length()
	}
	return i, d - r.cumulative[i]
}
