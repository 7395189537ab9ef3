package network

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/osm"
)

var (
	// ErrNoPath is returned when two ways are not connected through the network.
	ErrNoPath = errors.New("no path")
	// ErrUnknownWay is returned when a way id is not part of the network.
	ErrUnknownWay = errors.New("unknown way")
)

// pathTable holds all-pairs shortest paths over the way connectivity index.
// It is filled at most once so concurrent readers never observe a partial table.
type pathTable struct {
	once sync.Once
	dist map[osm.WayID]map[osm.WayID]float64
	next map[osm.WayID]map[osm.WayID]osm.WayID
}

// computeShortestPaths runs Floyd-Warshall with ways as vertices. The cost of
// moving onto a way is that way's length.
func (n *Network) computeShortestPaths() {
	ids := n.wayIDs
	dist := make(map[osm.WayID]map[osm.WayID]float64, len(ids))
	next := make(map[osm.WayID]map[osm.WayID]osm.WayID, len(ids))
	for _, i := range ids {
		dist[i] = make(map[osm.WayID]float64, len(ids))
		next[i] = make(map[osm.WayID]osm.WayID)
		for _, j := range ids {
			dist[i][j] = math.Inf(1)
		}
		dist[i][i] = 0
	}
	for _, u := range ids {
		for _, v := range n.connected[u] {
			dist[u][v] = n.lengths[v]
			next[u][v] = v
		}
	}
	for _, k := range ids {
		for _, i := range ids {
			dik := dist[i][k]
			if math.IsInf(dik, 1) {
				continue
			}
			for _, j := range ids {
				if d := dik + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
					next[i][j] = next[i][k]
				}
			}
		}
	}
	n.paths.dist = dist
	n.paths.next = next
}

// ShortestWayPath returns the chain of ways from one way to another with the
// least total length, including both ends, and that length (excluding the
// starting way). Direction flags are not considered; the result is a hint for
// route authoring, to be checked with the route builder.
func (n *Network) ShortestWayPath(from, to osm.WayID) ([]osm.WayID, float64, error) {
	if _, ok := n.ways[from]; !ok {
		return nil, 0, fmt.Errorf("way %d: %w", from, ErrUnknownWay)
	}
	if _, ok := n.ways[to]; !ok {
		return nil, 0, fmt.Errorf("way %d: %w", to, ErrUnknownWay)
	}
	if from == to {
		return []osm.WayID{from}, 0, nil
	}
	n.paths.once.Do(n.computeShortestPaths)

	d := n.paths.dist[from][to]
	if math.IsInf(d, 1) {
		return nil, 0, fmt.Errorf("from way %d to way %d: %w", from, to, ErrNoPath)
	}
	chain := []osm.WayID{from}
	for u := from; u != to; {
		v, ok := n.paths.next[u][to]
		if !ok {
			return nil, 0, fmt.Errorf("from way %d to way %d: %w", from, to, ErrNoPath)
		}
		chain = append(chain, v)
		u = v
	}
	return chain, d, nil
}
