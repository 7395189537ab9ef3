// Package engine runs a complete simulation from a JSON description: it builds
// the network and service routes, spawns trains on schedule and ticks the
// fleet with a fixed timestep, logging every train at every step.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/cxd309/railsim/internal/fleet"
	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/train"
)

// ErrInvalidInput is wrapped by every input validation failure.
var ErrInvalidInput = errors.New("invalid input")

// Engine is a batch simulation run.
type Engine struct {
	meta    SimulationMeta
	net     *network.Network
	routes  map[string]*route.Route
	defs    []route.Definition
	fleet   *fleet.Fleet
	pending []Spawn // ordered by At
	curTime float64
	logger  *slog.Logger
}

// New constructs an Engine from a SimulationInput, building the network and
// every service route. Services whose route cannot be built are logged and
// left out; spawns onto them are skipped.
func New(input SimulationInput, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if input.Meta.TimeStep <= 0 {
		return nil, fmt.Errorf("time_step must be positive: %w", ErrInvalidInput)
	}
	if input.Meta.RunTime < 0 {
		return nil, fmt.Errorf("run_time must not be negative: %w", ErrInvalidInput)
	}
	if input.Meta.RateMultiplier == 0 {
		input.Meta.RateMultiplier = 1
	}

	opts := route.DefaultOptions()
	if p := input.Parameters.PlatformHalfLength; p != nil {
		opts.PlatformHalfLength = *p
	}
	defaults := fleet.Defaults{Vehicle: train.DefaultVehicle()}
	if input.Vehicle != nil {
		defaults.Vehicle = *input.Vehicle
	}
	if p := input.Parameters.Dwell; p != nil {
		defaults.Train.Dwell = *p
	}
	if p := input.Parameters.ArrivalTolerance; p != nil {
		defaults.Train.ArrivalTolerance = *p
	}

	net := network.New(input.Network, logger)
	routes := make(map[string]*route.Route, len(input.Services))
	for _, def := range input.Services {
		if _, dup := routes[def.Name]; dup {
			return nil, fmt.Errorf("service %q defined twice: %w", def.Name, ErrInvalidInput)
		}
		r, err := def.Build(net, opts)
		if err != nil {
			logger.Warn("service route cannot be built", "service", def.Name, "error", err)
			routes[def.Name] = nil
			continue
		}
		routes[def.Name] = r
	}

	pending := append([]Spawn(nil), input.Spawns...)
	for _, s := range pending {
		if _, ok := routes[s.Service]; !ok {
			return nil, fmt.Errorf("spawn references unknown service %q: %w", s.Service, ErrInvalidInput)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].At < pending[j].At })

	return &Engine{
		meta:    input.Meta,
		net:     net,
		routes:  routes,
		defs:    input.Services,
		fleet:   fleet.New(net, defaults, logger),
		pending: pending,
		logger:  logger,
	}, nil
}

// Run executes the full simulation and returns the log.
func (e *Engine) Run() SimulationLog {
	log := SimulationLog{
		Meta:   e.meta,
		RunID:  uuid.New().String(),
		Routes: e.summaries(),
	}
	for e.curTime <= e.meta.RunTime {
		log.Output = append(log.Output, e.step())
		e.curTime += e.meta.TimeStep
	}
	return log
}

// step spawns every train due by now, advances the fleet (except on the
// first step, which records the starting positions) and returns the log row.
func (e *Engine) step() SimulationLogRow {
	row := SimulationLogRow{Timestamp: e.curTime}
	if e.curTime > 0 {
		row.Removed = e.fleet.Tick(e.meta.TimeStep, e.meta.RateMultiplier)
	}
	for len(e.pending) > 0 && e.pending[0].At <= e.curTime {
		s := e.pending[0]
		e.pending = e.pending[1:]
		if id, ok := e.spawn(s); ok {
			row.Spawned = append(row.Spawned, id)
		}
	}
	row.Trains = e.fleet.List()
	return row
}

func (e *Engine) spawn(s Spawn) (train.ID, bool) {
	r := e.routes[s.Service]
	if r == nil {
		e.logger.Warn("spawn skipped: service has no route", "service", s.Service)
		return 0, false
	}
	return e.fleet.Spawn(r, fleet.SpawnOptions{Offset: s.Offset, Dwell: s.Dwell, Vehicle: s.Vehicle})
}

func (e *Engine) summaries() []RouteSummary {
	out := make([]RouteSummary, 0, len(e.defs))
	for _, def := range e.defs {
		r := e.routes[def.Name]
		if r == nil {
			continue
		}
		out = append(out, RouteSummary{
			Name:          def.Name,
			Color:         def.Color,
			ShortLabel:    def.ShortLabel,
			Sections:      r.Len(),
			TotalDistance: r.TotalDistance(),
			Stops:         r.Stops(),
		})
	}
	return out
}

// Fleet exposes the running fleet, mainly for tests.
func (e *Engine) Fleet() *fleet.Fleet { return e.fleet }

// Route returns the built route of a service.
func (e *Engine) Route(service string) (*route.Route, bool) {
	r, ok := e.routes[service]
	return r, ok && r != nil
}

// RunJSON is the primary entry point for the CLI and WASM targets.
// It accepts a JSON-encoded SimulationInput, runs the simulation, and returns a
// JSON-encoded SimulationLog.
func RunJSON(jsonInput string, logger *slog.Logger) (string, error) {
	var input SimulationInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	result, err := RunInput(input, logger)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}

// RunInput runs a decoded SimulationInput to completion.
func RunInput(input SimulationInput, logger *slog.Logger) (SimulationLog, error) {
	eng, err := New(input, logger)
	if err != nil {
		return SimulationLog{}, err
	}
	return eng.Run(), nil
}

// Network returns the network the run was built on.
func (e *Engine) Network() *network.Network { return e.net }
