package network

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line is a straight east-west run of nodes 1..6, about 83 m apart, split
// into ways 10 [1 2 3], 20 [3 4 5] and 30 [5 6]. Way 40 [7 8] is isolated.
func line() Data {
	data := Data{
		Ways: []Way{
			{ID: 10, Nodes: []osm.NodeID{1, 2, 3}, Bidirectional: true},
			{ID: 20, Nodes: []osm.NodeID{3, 4, 5}, Bidirectional: true},
			{ID: 30, Nodes: []osm.NodeID{5, 6}, Bidirectional: true},
			{ID: 40, Nodes: []osm.NodeID{7, 8}},
		},
		Stations: []Station{{ID: 100, Loc: orb.Point{2.1725, 41.3801}, Name: "Central"}},
	}
	for i := 1; i <= 6; i++ {
		data.Nodes = append(data.Nodes, Node{ID: osm.NodeID(i), Loc: orb.Point{2.169 + 0.001*float64(i), 41.38}})
	}
	data.Nodes = append(data.Nodes,
		Node{ID: 7, Loc: orb.Point{2.20, 41.40}},
		Node{ID: 8, Loc: orb.Point{2.201, 41.40}},
	)
	return data
}

func TestNew(t *testing.T) {
	net := New(line(), nil)

	p1, _ := net.Node(1)
	p2, _ := net.Node(2)
	p3, _ := net.Node(3)
	want := geo.Distance(p1, p2) + geo.Distance(p2, p3)
	assert.InDelta(t, want, net.WayLength(10), 1e-6)
	assert.InDelta(t, 167, net.WayLength(10), 2)
	assert.Zero(t, net.WayLength(99))

	ways := net.Ways()
	require.Len(t, ways, 4)
	assert.Equal(t, osm.WayID(10), ways[0].ID)
	assert.Equal(t, osm.WayID(40), ways[3].ID)

	assert.ElementsMatch(t, []osm.WayID{10, 30}, net.Connected(20))
	assert.Equal(t, []osm.WayID{20}, net.Connected(10))
	assert.Empty(t, net.Connected(40))
	assert.True(t, net.HasTrack())
}

func TestNewDuplicates(t *testing.T) {
	data := line()
	data.Ways = append(data.Ways, Way{ID: 10, Nodes: []osm.NodeID{1, 2}})
	net := New(data, nil)

	w, ok := net.Way(10)
	require.True(t, ok)
	assert.Equal(t, []osm.NodeID{1, 2}, w.Nodes)
	assert.Len(t, net.Ways(), 4)
}

func TestHasTrack(t *testing.T) {
	assert.False(t, New(Data{}, nil).HasTrack())

	unresolved := Data{Ways: []Way{{ID: 1, Nodes: []osm.NodeID{1, 2}}}}
	assert.False(t, New(unresolved, nil).HasTrack())

	single := Data{
		Nodes: []Node{{ID: 1, Loc: orb.Point{2.17, 41.38}}},
		Ways:  []Way{{ID: 1, Nodes: []osm.NodeID{1}}},
	}
	assert.False(t, New(single, nil).HasTrack())
}

func TestResolveAndCoordinates(t *testing.T) {
	net := New(line(), nil)

	p, ok := net.Resolve(100)
	require.True(t, ok)
	assert.Equal(t, orb.Point{2.1725, 41.3801}, p)

	_, ok = net.Resolve(999)
	assert.False(t, ok)

	ls := net.Coordinates([]osm.NodeID{1, 999, 2})
	assert.Len(t, ls, 2)

	s, ok := net.Station(100)
	require.True(t, ok)
	assert.Equal(t, "Central", s.Name)
	assert.Len(t, net.Stations(), 1)
}

func TestWayHelpers(t *testing.T) {
	w := Way{ID: 1, Nodes: []osm.NodeID{4, 5, 6, 4}}
	assert.Equal(t, osm.NodeID(4), w.First())
	assert.Equal(t, osm.NodeID(4), w.Last())
	assert.True(t, w.IsLoop())
	assert.Equal(t, 1, w.IndexOf(5))
	assert.Equal(t, -1, w.IndexOf(9))
	assert.False(t, Way{Nodes: []osm.NodeID{1, 2}}.IsLoop())
}
