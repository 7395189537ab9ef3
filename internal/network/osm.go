package network

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// FromOSM converts OpenStreetMap data into network Data. Only ways carrying a
// railway tag are kept. A way is bidirectional unless tagged oneway.
func FromOSM(o *osm.OSM) Data {
	var data Data
	seen := make(map[osm.NodeID]bool)

	for _, n := range o.Nodes {
		if n == nil {
			continue
		}
		data.Nodes = append(data.Nodes, Node{ID: n.ID, Loc: n.Point()})
		seen[n.ID] = true
		if isStation(n.Tags) {
			data.Stations = append(data.Stations, Station{
				ID:   n.ID,
				Loc:  n.Point(),
				Name: n.Tags.Find("name"),
			})
		}
	}

	for _, w := range o.Ways {
		if w == nil || w.Tags.Find("railway") == "" {
			continue
		}
		way := Way{
			ID:            w.ID,
			Name:          w.Tags.Find("name"),
			Bidirectional: !isOneway(w.Tags),
		}
		for _, wn := range w.Nodes {
			way.Nodes = append(way.Nodes, wn.ID)
			// Way nodes may carry their own location when the file was
			// exported with embedded coordinates.
			if !seen[wn.ID] && (wn.Lat != 0 || wn.Lon != 0) {
				data.Nodes = append(data.Nodes, Node{ID: wn.ID, Loc: orb.Point{wn.Lon, wn.Lat}})
				seen[wn.ID] = true
			}
		}
		if w.Tags.Find("oneway") == "-1" {
			for i, j := 0, len(way.Nodes)-1; i < j; i, j = i+1, j-1 {
				way.Nodes[i], way.Nodes[j] = way.Nodes[j], way.Nodes[i]
			}
		}
		data.Ways = append(data.Ways, way)
	}
	return data
}

// NewFromOSM builds a Network straight from OpenStreetMap data.
func NewFromOSM(o *osm.OSM, logger *slog.Logger) *Network {
	return New(FromOSM(o), logger)
}

func isOneway(tags osm.Tags) bool {
	switch tags.Find("oneway") {
	case "yes", "true", "1", "-1":
		return true
	}
	return false
}

func isStation(tags osm.Tags) bool {
	switch tags.Find("railway") {
	case "station", "halt", "stop":
		return true
	}
	return tags.Find("public_transport") == "stop_position"
}
