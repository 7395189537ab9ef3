// Package network provides the immutable static track network used by the
// simulation: nodes, track segments ("ways") and stations, along with the
// geometry and topology queries the route builder and trains depend on.
package network

import (
	"log/slog"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
)

// Node is a surveyed point of the network.
type Node struct {
	ID  osm.NodeID `json:"node_id"`
	Loc orb.Point  `json:"loc"` // [lon, lat]
}

// Way is a traversable stretch of guideway through an ordered chain of nodes.
// Traversal from the first to the last listed node is always legal; the reverse
// direction is legal only when Bidirectional is set.
type Way struct {
	ID            osm.WayID    `json:"way_id"`
	Nodes         []osm.NodeID `json:"nodes"`
	Bidirectional bool         `json:"bidirectional"`
	Name          string       `json:"name,omitempty"`
}

// First returns the first node of the way.
func (w Way) First() osm.NodeID { return w.Nodes[0] }

// Last returns the last node of the way.
func (w Way) Last() osm.NodeID { return w.Nodes[len(w.Nodes)-1] }

// IsLoop reports whether the way starts and ends at the same node.
func (w Way) IsLoop() bool { return len(w.Nodes) >= 2 && w.First() == w.Last() }

// IndexOf returns the first index of id in the node list, or -1.
func (w Way) IndexOf(id osm.NodeID) int {
	for i, n := range w.Nodes {
		if n == id {
			return i
		}
	}
	return -1
}

// Station is a named stop location. It is used as a source of stop targets
// and never traversed directly.
type Station struct {
	ID   osm.NodeID `json:"station_id"`
	Loc  orb.Point  `json:"loc"`
	Name string     `json:"name"`
}

// Data is the serialisable static network description.
type Data struct {
	Nodes    []Node    `json:"nodes"`
	Ways     []Way     `json:"ways"`
	Stations []Station `json:"stations,omitempty"`
}

// Network is the read-only network model. After construction it is never
// mutated and may be shared by any number of readers.
type Network struct {
	nodes    map[osm.NodeID]orb.Point
	ways     map[osm.WayID]Way
	stations map[osm.NodeID]Station
	wayIDs   []osm.WayID

	lengths   map[osm.WayID]float64
	connected map[osm.WayID][]osm.WayID

	paths  *pathTable
	logger *slog.Logger
}

// New builds a Network from Data. Malformed entries are logged and kept where
// possible so that a partially loaded dataset degrades rather than fails.
func New(data Data, logger *slog.Logger) *Network {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Network{
		nodes:    make(map[osm.NodeID]orb.Point, len(data.Nodes)),
		ways:     make(map[osm.WayID]Way, len(data.Ways)),
		stations: make(map[osm.NodeID]Station, len(data.Stations)),
		lengths:  make(map[osm.WayID]float64, len(data.Ways)),
		logger:   logger,
	}
	for _, node := range data.Nodes {
		if _, dup := n.nodes[node.ID]; dup {
			logger.Warn("duplicate node, keeping last", "node", node.ID)
		}
		n.nodes[node.ID] = node.Loc
	}
	for _, w := range data.Ways {
		if _, dup := n.ways[w.ID]; dup {
			logger.Warn("duplicate way, keeping last", "way", w.ID)
		} else {
			n.wayIDs = append(n.wayIDs, w.ID)
		}
		if len(w.Nodes) < 2 {
			logger.Warn("way has fewer than two nodes", "way", w.ID, "nodes", len(w.Nodes))
		}
		n.ways[w.ID] = w
	}
	for _, s := range data.Stations {
		n.stations[s.ID] = s
	}
	sort.Slice(n.wayIDs, func(i, j int) bool { return n.wayIDs[i] < n.wayIDs[j] })

	for _, id := range n.wayIDs {
		n.lengths[id] = geo.Length(n.WayCoordinates(id))
	}
	n.connected = buildConnectivity(n.wayIDs, n.ways)
	n.paths = &pathTable{}
	return n
}

// Logger returns the logger diagnostics for this network are written to.
func (n *Network) Logger() *slog.Logger { return n.logger }

// Node returns the coordinate of a node.
func (n *Network) Node(id osm.NodeID) (orb.Point, bool) {
	p, ok := n.nodes[id]
	return p, ok
}

// Way looks up a way by id.
func (n *Network) Way(id osm.WayID) (Way, bool) {
	w, ok := n.ways[id]
	return w, ok
}

// Ways returns all ways ordered by id.
func (n *Network) Ways() []Way {
	out := make([]Way, 0, len(n.wayIDs))
	for _, id := range n.wayIDs {
		out = append(out, n.ways[id])
	}
	return out
}

// Station looks up a station by id.
func (n *Network) Station(id osm.NodeID) (Station, bool) {
	s, ok := n.stations[id]
	return s, ok
}

// Stations returns all stations ordered by id.
func (n *Network) Stations() []Station {
	out := make([]Station, 0, len(n.stations))
	for _, s := range n.stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the coordinate of a node id, falling back to a station with
// the same id. Stop definitions may reference either.
func (n *Network) Resolve(id osm.NodeID) (orb.Point, bool) {
	if p, ok := n.nodes[id]; ok {
		return p, true
	}
	if s, ok := n.stations[id]; ok {
		return s.Loc, true
	}
	return orb.Point{}, false
}

// WayLength returns the geodesic length of a way in metres, or 0 if the way
// does not exist.
func (n *Network) WayLength(id osm.WayID) float64 {
	return n.lengths[id]
}

// WayCoordinates returns the resolved coordinates of a way's nodes. Node ids
// that do not resolve are skipped.
func (n *Network) WayCoordinates(id osm.WayID) orb.LineString {
	w, ok := n.ways[id]
	if !ok {
		return nil
	}
	return n.Coordinates(w.Nodes)
}

// Coordinates maps node ids to coordinates, dropping ids that do not resolve.
func (n *Network) Coordinates(ids []osm.NodeID) orb.LineString {
	ls := make(orb.LineString, 0, len(ids))
	for _, id := range ids {
		p, ok := n.nodes[id]
		if !ok {
			n.logger.Debug("node not found", "node", id)
			continue
		}
		ls = append(ls, p)
	}
	return ls
}

// Connected returns the ways sharing an endpoint node with the given way.
func (n *Network) Connected(id osm.WayID) []osm.WayID {
	return n.connected[id]
}

// HasTrack reports whether at least one way resolves to a usable polyline.
func (n *Network) HasTrack() bool {
	for _, id := range n.wayIDs {
		if len(n.WayCoordinates(id)) >= 2 {
			return true
		}
	}
	return false
}

// buildConnectivity pairs every way with the ways it shares an endpoint with.
func buildConnectivity(ids []osm.WayID, ways map[osm.WayID]Way) map[osm.WayID][]osm.WayID {
	out := make(map[osm.WayID][]osm.WayID, len(ids))
	for i, a := range ids {
		wa := ways[a]
		if len(wa.Nodes) < 2 {
			continue
		}
		for _, b := range ids[i+1:] {
			wb := ways[b]
			if len(wb.Nodes) < 2 {
				continue
			}
			if sharesEndpoint(wa, wb) {
				out[a] = append(out[a], b)
				out[b] = append(out[b], a)
			}
		}
	}
	return out
}

func sharesEndpoint(a, b Way) bool {
	return a.First() == b.First() || a.First() == b.Last() ||
		a.Last() == b.First() || a.Last() == b.Last()
}
