package train

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/railsim/internal/kinematics"
	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
)

// straightRoute is an east-west line of nodes 1..21 about 83.5 m apart,
// split into way 1 [1..11] and way 2 [11..21]. Stops are projected without
// a platform offset.
func straightRoute(t *testing.T, stops ...osm.NodeID) *route.Route {
	t.Helper()
	r, err := route.Build(straightNetwork(), "R1", []osm.WayID{1, 2}, stops, route.Options{})
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
	return r
}

func straightNetwork() *network.Network {
	var data network.Data
	for i := 1; i <= 21; i++ {
		data.Nodes = append(data.Nodes, network.Node{ID: osm.NodeID(i), Loc: orb.Point{2.17 + 0.001*float64(i-1), 41.38}})
	}
	w1 := network.Way{ID: 1, Bidirectional: true}
	w2 := network.Way{ID: 2, Bidirectional: true}
	for i := 1; i <= 11; i++ {
		w1.Nodes = append(w1.Nodes, osm.NodeID(i))
		w2.Nodes = append(w2.Nodes, osm.NodeID(i+10))
	}
	data.Ways = []network.Way{w1, w2}
	return network.New(data, discard())
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func vehicle(length, vmax float64) Vehicle {
	return Vehicle{
		Name:   "test",
		Length: length,
		Kinem:  kinematics.ConstantAcceleration{AAcc: 1, ADcc: 1.2, AEmergency: 2.5, VMaxVal: vmax},
	}
}

// step runs one solo update and moves onto the next section when needed.
func step(tr *Train, dt float64) {
	if res := tr.Update(dt, nil); res.EndOfSection {
		tr.AdvanceSection()
	}
}

func TestNewPlacesTrain(t *testing.T) {
	r := straightRoute(t)

	tr := New(7, r, r.Cumulative(1)+10, DefaultVehicle(), Config{}, discard())
	assert.Equal(t, 1, tr.SectionIndex())
	assert.InDelta(t, 10, tr.DistanceAlongSection, 1e-6)
	assert.InDelta(t, r.Cumulative(1)+10, tr.RoutePosition, 1e-6)
	assert.Equal(t, StateMoving, tr.State)
	assert.InDelta(t, 90, tr.Bearing, 0.01)
	assert.False(t, tr.Degenerate())

	tr = New(8, r, -50, DefaultVehicle(), Config{}, discard())
	assert.Zero(t, tr.RoutePosition)

	tr = New(9, r, 1e9, DefaultVehicle(), Config{}, discard())
	assert.InDelta(t, r.TotalDistance(), tr.RoutePosition, 1e-6)
}

func TestVelocityRisesToLineSpeedAndHolds(t *testing.T) {
	r := straightRoute(t)
	tr := New(1, r, 0, vehicle(0, 10), Config{}, discard())

	prev := 0.0
	for i := 0; i < 30; i++ {
		step(tr, 1)
		assert.GreaterOrEqual(t, tr.Velocity, prev, "tick %d", i)
		assert.LessOrEqual(t, tr.Velocity, 10.0+1e-9, "tick %d", i)
		prev = tr.Velocity
	}
	assert.InDelta(t, 10, tr.Velocity, 1e-9)
	assert.Equal(t, kinematics.TermCap, tr.Term)
	assert.InDelta(t, 55+200, tr.RoutePosition, 1e-6)
	assert.Equal(t, 0, tr.SectionIndex())
}

func TestStopApproachDoesNotOvershoot(t *testing.T) {
	r := straightRoute(t, 11)
	require.Len(t, r.Stops(), 1)
	stop := r.Stops()[0]

	for _, dt := range []float64{0.1, 0.5, 1} {
		t.Run(fmt.Sprintf("dt=%v", dt), func(t *testing.T) {
			tr := New(1, r, 0, DefaultVehicle(), Config{Dwell: 30}, discard())
			emergency := tr.Vehicle.Kinem.EmergencyDeceleration()

			before := 0.0
			for i := 0; i < 5000 && tr.State == StateMoving; i++ {
				before = tr.Velocity
				step(tr, dt)
				require.LessOrEqual(t, tr.RoutePosition, stop.Distance+1e-6, "tick %d", i)
				require.GreaterOrEqual(t, tr.Acceleration, -emergency-1e-9, "tick %d", i)
			}

			require.Equal(t, StateDwelling, tr.State)
			assert.Equal(t, osm.NodeID(11), tr.LastStop)
			assert.Zero(t, tr.Velocity)
			assert.LessOrEqual(t, stop.Distance-tr.RoutePosition, DefaultArrivalTolerance)
			// Coming to rest on the arrival tick is no harsher than emergency braking.
			assert.LessOrEqual(t, before/dt, emergency+1e-9, "speed %.2f m/s before arriving", before)
		})
	}
}

func TestDwell(t *testing.T) {
	r := straightRoute(t, 6)
	stop := r.Stops()[0]
	tr := New(1, r, stop.Distance-10, DefaultVehicle(), Config{Dwell: 10}, discard())

	for i := 0; i < 10 && tr.State == StateMoving; i++ {
		step(tr, 1)
	}
	require.Equal(t, StateDwelling, tr.State)
	assert.InDelta(t, 10, tr.RemainingDwell, 1e-9)
	arrivedAt := tr.RoutePosition

	for i := 0; i < 9; i++ {
		step(tr, 1)
		require.Equal(t, StateDwelling, tr.State, "tick %d", i)
	}
	step(tr, 1)
	assert.Equal(t, StateMoving, tr.State)
	assert.Zero(t, tr.RemainingDwell)
	assert.Equal(t, arrivedAt, tr.RoutePosition, "no motion on the tick dwell ends")

	_, ok := tr.NextStop()
	assert.False(t, ok, "the stop just served is skipped")

	step(tr, 1)
	assert.Greater(t, tr.Velocity, 0.0)
	assert.Greater(t, tr.RoutePosition, arrivedAt)
}

func TestStopAtOriginDwellsFirst(t *testing.T) {
	r := straightRoute(t, 1)
	tr := New(1, r, 0, DefaultVehicle(), Config{Dwell: 5}, discard())

	step(tr, 1)
	assert.Equal(t, StateDwelling, tr.State)
	assert.Zero(t, tr.RoutePosition)
}

func TestNextStop(t *testing.T) {
	r := straightRoute(t, 6, 11, 16)
	tr := New(1, r, 0, DefaultVehicle(), Config{}, discard())

	s, ok := tr.NextStop()
	require.True(t, ok)
	assert.Equal(t, osm.NodeID(6), s.NodeID)
	assert.InDelta(t, s.Distance, tr.DistanceToNextStop(), 1e-9)

	tr = New(2, r, r.Stops()[1].Distance+1, DefaultVehicle(), Config{}, discard())
	s, ok = tr.NextStop()
	require.True(t, ok)
	assert.Equal(t, osm.NodeID(16), s.NodeID)

	tr = New(3, r, r.TotalDistance(), DefaultVehicle(), Config{}, discard())
	_, ok = tr.NextStop()
	assert.False(t, ok)
	assert.True(t, math.IsInf(tr.DistanceToNextStop(), 1))
}

func TestEndOfRoute(t *testing.T) {
	r := straightRoute(t)
	tr := New(1, r, r.TotalDistance()-5, vehicle(0, 10), Config{}, discard())

	res := tr.Update(10, nil)
	require.True(t, res.EndOfSection)
	assert.False(t, tr.AdvanceSection())
}

func TestDegenerateSection(t *testing.T) {
	data := network.Data{
		Nodes: []network.Node{{ID: 1, Loc: orb.Point{2.17, 41.38}}},
		Ways:  []network.Way{{ID: 1, Nodes: []osm.NodeID{1, 2}, Bidirectional: true}},
	}
	var logs bytes.Buffer
	net := network.New(data, slog.New(slog.NewTextHandler(&logs, nil)))
	r, err := route.Build(net, "broken", []osm.WayID{1}, nil, route.Options{})
	require.NoError(t, err)

	tr := New(1, r, 0, DefaultVehicle(), Config{}, net.Logger())
	assert.True(t, tr.Degenerate())
	assert.Equal(t, orb.Point{2.17, 41.38}, tr.Point)
	assert.Contains(t, logs.String(), "position undefined")

	// Still advanced numerically.
	res := tr.Update(1, nil)
	assert.True(t, res.EndOfSection)
	assert.True(t, tr.Snapshot().Degenerate)
}
