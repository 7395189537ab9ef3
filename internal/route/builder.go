package route

import (
	"fmt"
	"log/slog"

	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/network"
)

// Build assembles a route from an ordered list of way ids. Consecutive ways are
// joined at the node they share. If the chain breaks (no shared node, or a
// section that cannot be built) the route keeps the connected prefix and the
// break is logged; Build only fails when not even the first way is usable.
func Build(net *network.Network, name string, wayIDs []osm.WayID, stopIDs []osm.NodeID, opts Options) (*Route, error) {
	sections, _, err := assemble(net, net.Logger().With("route", name), wayIDs)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", name, err)
	}
	return newRoute(net, name, sections, stopIDs, opts), nil
}

// SectionRef names a section by way and endpoints, as drawn by a user. Zero
// endpoints default to the way's first and last node.
type SectionRef struct {
	Way  osm.WayID  `json:"way_id"`
	From osm.NodeID `json:"from,omitempty"`
	To   osm.NodeID `json:"to,omitempty"`
}

// BuildFromSections assembles a route from explicitly bounded sections. Each
// section must start where the previous one ended; the route is cut at the
// first section that does not, or that cannot be built.
func BuildFromSections(net *network.Network, name string, refs []SectionRef, stopIDs []osm.NodeID, opts Options) (*Route, error) {
	logger := net.Logger().With("route", name)
	sections := make([]*Section, 0, len(refs))
	for i, ref := range refs {
		s, err := newSectionFromRef(net, ref)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("route %q: %w", name, err)
			}
			logger.Warn("section cannot be built, truncating route", "index", i, "way", ref.Way, "error", err)
			break
		}
		if i > 0 && sections[i-1].End() != s.Start() {
			logger.Warn("no connecting node, truncating route",
				"index", i, "way", ref.Way, "prev_end", sections[i-1].End(), "start", s.Start())
			break
		}
		sections = append(sections, s)
	}
	return newRoute(net, name, sections, stopIDs, opts), nil
}

func newSectionFromRef(net *network.Network, ref SectionRef) (*Section, error) {
	w, ok := net.Way(ref.Way)
	if !ok {
		return nil, fmt.Errorf("way %d: %w", ref.Way, ErrUnresolvableSection)
	}
	if len(w.Nodes) < 2 {
		return nil, fmt.Errorf("way %d: %w", ref.Way, ErrDegenerateSection)
	}
	from, to := ref.From, ref.To
	if from == 0 {
		from = w.First()
	}
	if to == 0 {
		to = w.Last()
	}
	return NewSection(net, ref.Way, from, to)
}

// Validation reports whether a way sequence forms one connected path.
type Validation struct {
	Connected bool         `json:"connected"`
	Sections  int          `json:"sections"`
	Length    float64      `json:"length"`          // metres covered by the usable prefix
	BrokenAt  int          `json:"broken_at"`       // index of the first way left out, -1 if none
	Error     string       `json:"error,omitempty"` // why the first way was unusable
	Nodes     []osm.NodeID `json:"nodes,omitempty"` // merged node sequence
}

// Validate checks a way sequence the same way Build assembles it, without
// projecting stops. It is meant for interactive route authoring.
func Validate(net *network.Network, wayIDs []osm.WayID) Validation {
	sections, used, err := assemble(net, net.Logger(), wayIDs)
	if err != nil {
		return Validation{BrokenAt: 0, Error: err.Error()}
	}
	v := Validation{
		Connected: used == len(wayIDs),
		Sections:  len(sections),
		BrokenAt:  -1,
	}
	if !v.Connected {
		v.BrokenAt = used
	}
	for _, s := range sections {
		v.Length += s.Length()
		for _, id := range s.NodeIDs() {
			if n := len(v.Nodes); n > 0 && v.Nodes[n-1] == id {
				continue
			}
			v.Nodes = append(v.Nodes, id)
		}
	}
	return v
}

// assemble turns way ids into continuous sections. It returns the sections,
// the number of ways consumed and an error only when nothing could be built.
func assemble(net *network.Network, logger *slog.Logger, wayIDs []osm.WayID) ([]*Section, int, error) {
	switch len(wayIDs) {
	case 0:
		return nil, 0, nil
	case 1:
		s, err := NewFullSection(net, wayIDs[0])
		if err != nil {
			return nil, 0, err
		}
		return []*Section{s}, 1, nil
	}

	ways := make([]network.Way, 0, len(wayIDs))
	for i, id := range wayIDs {
		w, ok := net.Way(id)
		if !ok || len(w.Nodes) < 2 {
			if i == 0 {
				return nil, 0, fmt.Errorf("way %d: %w", id, ErrUnresolvableSection)
			}
			logger.Warn("way missing or degenerate, truncating route", "index", i, "way", id)
			break
		}
		ways = append(ways, w)
	}

	// connect[i] joins ways[i] to ways[i+1].
	connect := make([]osm.NodeID, 0, len(ways)-1)
	var entry osm.NodeID
	for i := 0; i+1 < len(ways); i++ {
		n, ok := commonNode(ways[i], ways[i+1], entry)
		if !ok {
			logger.Warn("no connecting node, truncating route",
				"index", i+1, "way", ways[i].ID, "next_way", ways[i+1].ID)
			break
		}
		connect = append(connect, n)
		entry = n
	}
	ways = ways[:len(connect)+1]

	sections := make([]*Section, 0, len(ways))
	for i, w := range ways {
		start, end := w.First(), w.Last()
		if i > 0 {
			start = connect[i-1]
		}
		if i < len(connect) {
			end = connect[i]
		}
		if start == end && !w.IsLoop() {
			// Only one end of this way touches the chain: run it from the
			// other end of the way towards the touching node.
			if i == 0 {
				start = opposite(w, end)
			} else {
				end = opposite(w, start)
			}
		}

		s, err := NewSection(net, w.ID, start, end)
		if err != nil {
			if i == 0 {
				return nil, 0, err
			}
			logger.Warn("section cannot be built, truncating route", "index", i, "way", w.ID, "error", err)
			return sections, i, nil
		}
		if i > 0 && sections[i-1].End() != s.Start() {
			logger.Warn("no connecting node, truncating route",
				"index", i, "way", w.ID, "prev_end", sections[i-1].End(), "start", s.Start())
			return sections, i, nil
		}
		if i+1 < len(ways) && s.End() != connect[i] {
			// The substituted end leaves the chain; keep this section as the
			// last one.
			logger.Warn("route doubles back on way, truncating route", "index", i, "way", w.ID)
			return append(sections, s), i + 1, nil
		}
		sections = append(sections, s)
	}
	return sections, len(sections), nil
}

// commonNode finds the node shared by two ways. Endpoint junctions are
// preferred over mid-way junctions, and a node other than avoid (the node the
// chain entered a on) is preferred when there is a choice.
func commonNode(a, b network.Way, avoid osm.NodeID) (osm.NodeID, bool) {
	inB := make(map[osm.NodeID]bool, len(b.Nodes))
	for _, n := range b.Nodes {
		inB[n] = true
	}

	var fallback osm.NodeID
	found := false
	pick := func(n osm.NodeID) bool {
		if !inB[n] {
			return false
		}
		if n != avoid {
			return true
		}
		if !found {
			fallback, found = n, true
		}
		return false
	}

	for _, n := range []osm.NodeID{a.Last(), a.First()} {
		if pick(n) {
			return n, true
		}
	}
	for _, n := range a.Nodes {
		if pick(n) {
			return n, true
		}
	}
	return fallback, found
}

// opposite returns the endpoint of w that is not n.
func opposite(w network.Way, n osm.NodeID) osm.NodeID {
	if n == w.First() {
		return w.Last()
	}
	return w.First()
}
