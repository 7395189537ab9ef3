package route

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/railsim/internal/network"
)

// testNetwork is an east-west line of nodes 1..6 about 83 m apart, split into
// ways 10 [1 2 3], 20 [3 4 5] and 30 [5 6]; an isolated one-way way 40 [7 8];
// and a closed loop way 50 [11 12 13 11]. Station 100 sits beside the
// midpoint of nodes 3 and 4.
func testNetwork(t *testing.T) (*network.Network, *bytes.Buffer) {
	t.Helper()
	data := network.Data{
		Ways: []network.Way{
			{ID: 10, Nodes: []osm.NodeID{1, 2, 3}, Bidirectional: true},
			{ID: 20, Nodes: []osm.NodeID{3, 4, 5}, Bidirectional: true},
			{ID: 30, Nodes: []osm.NodeID{5, 6}, Bidirectional: true},
			{ID: 40, Nodes: []osm.NodeID{7, 8}},
			{ID: 50, Nodes: []osm.NodeID{11, 12, 13, 11}, Bidirectional: true},
		},
		Stations: []network.Station{{ID: 100, Loc: orb.Point{2.1725, 41.3801}, Name: "Central"}},
	}
	for i := 1; i <= 6; i++ {
		data.Nodes = append(data.Nodes, network.Node{ID: osm.NodeID(i), Loc: orb.Point{2.169 + 0.001*float64(i), 41.38}})
	}
	data.Nodes = append(data.Nodes,
		network.Node{ID: 7, Loc: orb.Point{2.200, 41.40}},
		network.Node{ID: 8, Loc: orb.Point{2.201, 41.40}},
		network.Node{ID: 11, Loc: orb.Point{2.180, 41.39}},
		network.Node{ID: 12, Loc: orb.Point{2.181, 41.39}},
		network.Node{ID: 13, Loc: orb.Point{2.181, 41.391}},
	)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return network.New(data, logger), &buf
}

func point(t *testing.T, net *network.Network, id osm.NodeID) orb.Point {
	t.Helper()
	p, ok := net.Node(id)
	require.True(t, ok, "node %d", id)
	return p
}

func TestBuildMergesPolyline(t *testing.T) {
	net, _ := testNetwork(t)

	r, err := Build(net, "R1", []osm.WayID{10, 20}, nil, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 2, r.Len())
	assert.Len(t, r.Polyline(), 5)
	assert.Equal(t, point(t, net, 1), r.Polyline()[0])
	assert.Equal(t, point(t, net, 5), r.Polyline()[4])
	assert.InDelta(t, net.WayLength(10)+net.WayLength(20), r.TotalDistance(), 1e-6)
	assert.InDelta(t, net.WayLength(10), r.Cumulative(1), 1e-6)
	assert.Equal(t, r.TotalDistance(), r.Cumulative(r.Len()))
	assert.True(t, r.HasGeometry())

	assert.Equal(t, SectionKey{Way: 10, From: 1, To: 3}, r.Section(0).Key())
	assert.Equal(t, SectionKey{Way: 20, From: 3, To: 5}, r.Section(1).Key())
	assert.Nil(t, r.Section(2))
}

func TestBuildSingleWay(t *testing.T) {
	net, _ := testNetwork(t)

	r, err := Build(net, "R1", []osm.WayID{20}, nil, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 1, r.Len())
	assert.Equal(t, []osm.NodeID{3, 4, 5}, r.Section(0).NodeIDs())
	assert.InDelta(t, net.WayLength(20), r.TotalDistance(), 1e-9)
	assert.Equal(t, net.WayCoordinates(20), r.Polyline())
}

func TestBuildEmpty(t *testing.T) {
	net, _ := testNetwork(t)

	r, err := Build(net, "R0", nil, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, r.Len())
	assert.Zero(t, r.TotalDistance())
	assert.False(t, r.HasGeometry())

	_, err = Build(net, "R9", []osm.WayID{99}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnresolvableSection)
}

func TestStops(t *testing.T) {
	net, _ := testNetwork(t)
	opts := Options{PlatformHalfLength: 50}

	r, err := Build(net, "R1", []osm.WayID{10, 20}, []osm.NodeID{5, 1, 999, 3, 100}, opts)
	require.NoError(t, err)

	stops := r.Stops()
	require.Len(t, stops, 4)

	// Sorted by distance; the unknown node is dropped.
	assert.Equal(t, osm.NodeID(1), stops[0].NodeID)
	assert.Zero(t, stops[0].Distance, "clamped at the route start")

	assert.Equal(t, osm.NodeID(3), stops[1].NodeID)
	assert.InDelta(t, r.Cumulative(1)-50, stops[1].Distance, 0.01)

	mid := geo.Distance(point(t, net, 3), point(t, net, 4)) / 2
	assert.Equal(t, osm.NodeID(100), stops[2].NodeID)
	assert.InDelta(t, r.Cumulative(1)+mid-50, stops[2].Distance, 0.1)

	assert.Equal(t, osm.NodeID(5), stops[3].NodeID)
	assert.InDelta(t, r.TotalDistance()-50, stops[3].Distance, 0.01)

	assert.Equal(t, []osm.NodeID{5, 1, 999, 3, 100}, r.StopIDs())
}

func TestRebuildStops(t *testing.T) {
	net, _ := testNetwork(t)

	r, err := Build(net, "R1", []osm.WayID{10, 20}, []osm.NodeID{3}, Options{})
	require.NoError(t, err)
	before := r.Stops()

	r.RebuildStops([]osm.NodeID{5})
	require.Len(t, r.Stops(), 1)
	assert.Equal(t, osm.NodeID(5), r.Stops()[0].NodeID)
	assert.InDelta(t, r.TotalDistance(), r.Stops()[0].Distance, 0.01)

	require.Len(t, before, 1)
	assert.Equal(t, osm.NodeID(3), before[0].NodeID, "earlier stop table is left untouched")
}

func TestLocate(t *testing.T) {
	net, _ := testNetwork(t)
	r, err := Build(net, "R1", []osm.WayID{10, 20}, nil, DefaultOptions())
	require.NoError(t, err)

	tests := []struct {
		name    string
		d       float64
		section int
		offset  float64
	}{
		{"before start", -10, 0, 0},
		{"first section", 20, 0, 20},
		{"second section", r.Cumulative(1) + 10, 1, 10},
		{"past end", r.TotalDistance() + 100, 1, r.Section(1).Length()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, off := r.Locate(tt.d)
			assert.Equal(t, tt.section, i)
			assert.InDelta(t, tt.offset, off, 1e-6)
		})
	}
}
