// Package fleet owns the set of active trains and drives them forward one
// tick at a time.
//
// Each tick has two passes:
//
//  1. Advance pass - every train is updated against the same pre-tick
//     snapshot of all trains, so spacing decisions do not depend on update
//     order. Trains that reach the end of their section are noted.
//
//  2. Collect pass - noted trains move onto their next section, and trains
//     with no section left are removed.
package fleet

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/train"
)

// Defaults apply to every spawned train unless overridden in SpawnOptions.
type Defaults struct {
	Vehicle train.Vehicle
	Train   train.Config
}

// SpawnOptions customise a single spawn.
type SpawnOptions struct {
	Offset  float64        // metres from the route start
	Dwell   *float64       // seconds; nil uses the fleet default
	Vehicle *train.Vehicle // nil uses the fleet default
}

// Fleet is the collection of active trains. It is not safe for concurrent
// use; callers serialise Spawn, Tick and the readers between ticks.
type Fleet struct {
	net      *network.Network
	trains   map[train.ID]*train.Train
	nextID   train.ID
	defaults Defaults
	logger   *slog.Logger
}

// New returns an empty fleet running on net.
func New(net *network.Network, defaults Defaults, logger *slog.Logger) *Fleet {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.Vehicle.Kinem == nil {
		defaults.Vehicle = train.DefaultVehicle()
	}
	return &Fleet{
		net:      net,
		trains:   make(map[train.ID]*train.Train),
		nextID:   1,
		defaults: defaults,
		logger:   logger,
	}
}

// Spawn places a new train on r and returns its id. It reports false when
// the network has no usable track or the route has no geometry to place a
// train on.
func (f *Fleet) Spawn(r *route.Route, opts SpawnOptions) (train.ID, bool) {
	if !f.net.HasTrack() {
		f.logger.Warn("spawn refused: network has no usable track")
		return 0, false
	}
	if r == nil || r.Len() == 0 || !r.HasGeometry() {
		name := ""
		if r != nil {
			name = r.Name
		}
		f.logger.Warn("spawn refused: route has no geometry", "route", name)
		return 0, false
	}

	vehicle := f.defaults.Vehicle
	if opts.Vehicle != nil {
		vehicle = *opts.Vehicle
	}
	cfg := f.defaults.Train
	if opts.Dwell != nil {
		cfg.Dwell = *opts.Dwell
	}

	id := f.nextID
	f.nextID++
	f.trains[id] = train.New(id, r, opts.Offset, vehicle, cfg, f.logger)
	f.logger.Debug("train spawned", "train", id, "route", r.Name, "offset", opts.Offset)
	return id, true
}

// Tick advances every train by dt·rate seconds and returns the ids of trains
// removed because they finished their route or failed.
func (f *Fleet) Tick(dt, rate float64) []train.ID {
	scaled := dt * rate
	if scaled < 0 || dt < 0 || rate < 0 {
		scaled = 0
	}

	ids := f.ids()
	snapshot := make([]train.Snapshot, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, f.trains[id].Snapshot())
	}

	var endOfSection, failed []train.ID
	for _, id := range ids {
		res, err := update(f.trains[id], scaled, snapshot)
		if err != nil {
			f.logger.Error("train update failed, removing", "train", id, "error", err)
			failed = append(failed, id)
			continue
		}
		if res.EndOfSection {
			endOfSection = append(endOfSection, id)
		}
	}

	removed := failed
	for _, id := range endOfSection {
		t := f.trains[id]
		if t.AdvanceSection() {
			continue
		}
		if t.State == train.StateMoving {
			f.logger.Debug("train finished route", "train", id, "route", t.Route.Name)
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(f.trains, id)
	}
	sort.Ints(removed)
	return removed
}

// update runs one train update, turning a panic into an error so a corrupt
// route cannot stop the rest of the fleet.
func update(t *train.Train, dt float64, snapshot []train.Snapshot) (res train.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in update: %v", r)
		}
	}()
	return t.Update(dt, snapshot), nil
}

// Remove deletes a single train. It reports whether the train existed.
func (f *Fleet) Remove(id train.ID) bool {
	if _, ok := f.trains[id]; !ok {
		return false
	}
	delete(f.trains, id)
	return true
}

// RemoveAll deletes every train. Ids are not reused.
func (f *Fleet) RemoveAll() {
	f.trains = make(map[train.ID]*train.Train)
}

// Get returns a train by id.
func (f *Fleet) Get(id train.ID) (*train.Train, bool) {
	t, ok := f.trains[id]
	return t, ok
}

// Len returns the number of active trains.
func (f *Fleet) Len() int { return len(f.trains) }

// List returns snapshots of all active trains ordered by id.
func (f *Fleet) List() []train.Snapshot {
	ids := f.ids()
	out := make([]train.Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.trains[id].Snapshot())
	}
	return out
}

// Network returns the network the fleet runs on.
func (f *Fleet) Network() *network.Network { return f.net }

func (f *Fleet) ids() []train.ID {
	ids := make([]train.ID, 0, len(f.trains))
	for id := range f.trains {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
