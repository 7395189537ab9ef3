package route

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/network"
)

var (
	// ErrUnresolvableSection means the way or one of the endpoints does not exist.
	ErrUnresolvableSection = errors.New("unresolvable section")
	// ErrDegenerateSection means the section would span fewer than two nodes.
	ErrDegenerateSection = errors.New("degenerate section")
)

// Section is an oriented slice of one way between two of its nodes. It is
// computed once on construction; different endpoints need a new Section.
type Section struct {
	WayID    osm.WayID
	Reversed bool

	start, end osm.NodeID
	nodes      []osm.NodeID
	coords     orb.LineString
	length     float64
	wayOffset  float64 // metres from the way's first node to start
}

// NewFullSection builds a section covering a whole way, first to last node.
func NewFullSection(net *network.Network, wayID osm.WayID) (*Section, error) {
	w, ok := net.Way(wayID)
	if !ok {
		return nil, fmt.Errorf("way %d: %w", wayID, ErrUnresolvableSection)
	}
	if len(w.Nodes) < 2 {
		return nil, fmt.Errorf("way %d: %w", wayID, ErrDegenerateSection)
	}
	return NewSection(net, wayID, w.First(), w.Last())
}

// NewSection builds the section of a way running from start to end. When
// start lies after end in the way's node list the nodes are walked backwards;
// for a one-way way this is logged but still allowed, since survey data
// sometimes encodes one-way track against its drawing direction.
func NewSection(net *network.Network, wayID osm.WayID, start, end osm.NodeID) (*Section, error) {
	w, ok := net.Way(wayID)
	if !ok {
		return nil, fmt.Errorf("way %d: %w", wayID, ErrUnresolvableSection)
	}
	si := w.IndexOf(start)
	if si < 0 {
		return nil, fmt.Errorf("way %d: start node %d not on way: %w", wayID, start, ErrUnresolvableSection)
	}
	ei := w.IndexOf(end)
	if ei < 0 {
		return nil, fmt.Errorf("way %d: end node %d not on way: %w", wayID, end, ErrUnresolvableSection)
	}
	s := &Section{WayID: wayID, start: start, end: end}
	switch {
	case start == end && w.IsLoop():
		// Closed loop: run the whole way round, starting from the node the
		// loop is entered at.
		last := len(w.Nodes) - 1
		s.nodes = make([]osm.NodeID, 0, len(w.Nodes))
		s.nodes = append(s.nodes, w.Nodes[si:last]...)
		s.nodes = append(s.nodes, w.Nodes[:si+1]...)
	case si == ei:
		return nil, fmt.Errorf("way %d: start and end are both node %d: %w", wayID, start, ErrDegenerateSection)
	case si < ei:
		s.nodes = append([]osm.NodeID(nil), w.Nodes[si:ei+1]...)
	default:
		if !w.Bidirectional {
			net.Logger().Warn("reverse traversal of one-way segment",
				"way", wayID, "start", start, "end", end)
		}
		s.Reversed = true
		s.nodes = make([]osm.NodeID, 0, si-ei+1)
		for i := si; i >= ei; i-- {
			s.nodes = append(s.nodes, w.Nodes[i])
		}
	}

	s.coords = net.Coordinates(s.nodes)
	if len(s.coords) < len(s.nodes) {
		net.Logger().Warn("section has unresolvable nodes",
			"way", wayID, "nodes", len(s.nodes), "resolved", len(s.coords))
	}
	s.length = network.LineLength(s.coords)
	s.wayOffset = network.LineLength(net.Coordinates(w.Nodes[:si+1]))
	return s, nil
}

// Start returns the node the section is entered at.
func (s *Section) Start() osm.NodeID { return s.start }

// End returns the node the section is left at.
func (s *Section) End() osm.NodeID { return s.end }

// NodeIDs returns the ordered node ids of the section, endpoints included.
func (s *Section) NodeIDs() []osm.NodeID { return s.nodes }

// Coordinates returns the resolved polyline of the section.
func (s *Section) Coordinates() orb.LineString { return s.coords }

// Length returns the geodesic length in metres.
func (s *Section) Length() float64 { return s.length }

// HasGeometry reports whether the section resolves to at least two points.
func (s *Section) HasGeometry() bool { return len(s.coords) >= 2 }

// PointAt returns the position and bearing d metres into the section.
func (s *Section) PointAt(d float64) (orb.Point, float64) {
	return network.PointAlong(s.coords, d)
}

// IsLoop reports whether the section runs round a closed way back to the
// node it started at.
func (s *Section) IsLoop() bool { return s.start == s.end }

// WayPosition converts a distance into the section to metres along the way
// from its first node. It is not meaningful for loop sections.
func (s *Section) WayPosition(d float64) float64 {
	if s.Reversed {
		return s.wayOffset - d
	}
	return s.wayOffset + d
}

// SectionDistance is the inverse of WayPosition.
func (s *Section) SectionDistance(wayPos float64) float64 {
	if s.Reversed {
		return s.wayOffset - wayPos
	}
	return wayPos - s.wayOffset
}

// Key identifies the stretch of track the section covers in its direction of
// travel. Sections with the same key measure distance from the same origin.
func (s *Section) Key() SectionKey {
	return SectionKey{Way: s.WayID, From: s.start, To: s.end}
}

// SectionKey identifies a section independently of the route that owns it.
type SectionKey struct {
	Way      osm.WayID
	From, To osm.NodeID
}

func (k SectionKey) String() string {
	return fmt.Sprintf("%d:%d->%d", k.Way, k.From, k.To)
}
