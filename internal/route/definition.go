package route

import (
	"fmt"

	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/network"
)

// Definition is a named service route as supplied with the static network.
type Definition struct {
	Name       string       `json:"name"`
	Color      string       `json:"color,omitempty"`
	ShortLabel string       `json:"short_label,omitempty"`
	Stops      []osm.NodeID `json:"stops"`
	Ways       []osm.WayID  `json:"ways"`
}

// Build assembles the route described by the definition.
func (d Definition) Build(net *network.Network, opts Options) (*Route, error) {
	return Build(net, d.Name, d.Ways, d.Stops, opts)
}

// UserRoute is a route drawn section by section in an authoring tool. It is
// the record body persisted by the route store.
type UserRoute struct {
	Name     string       `json:"name"`
	Color    string       `json:"color,omitempty"`
	Sections []SectionRef `json:"sections"`
	Stops    []osm.NodeID `json:"stops"`
}

// Build assembles the route described by the user's sections. A drawn route
// with no sections is rejected.
func (u UserRoute) Build(net *network.Network, opts Options) (*Route, error) {
	if len(u.Sections) == 0 {
		return nil, fmt.Errorf("route %q: %w", u.Name, ErrEmptyRoute)
	}
	return BuildFromSections(net, u.Name, u.Sections, u.Stops, opts)
}

// Ways returns the way ids of the drawn sections in order.
func (u UserRoute) Ways() []osm.WayID {
	ids := make([]osm.WayID, len(u.Sections))
	for i, s := range u.Sections {
		ids[i] = s.Way
	}
	return ids
}
