package engine

import (
	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/train"
)

// SimulationMeta holds the identity and timing parameters for a simulation run.
type SimulationMeta struct {
	SimulationID   string  `json:"simulation_id"`
	RunTime        float64 `json:"run_time"`                  // seconds
	TimeStep       float64 `json:"time_step"`                 // seconds
	RateMultiplier float64 `json:"rate_multiplier,omitempty"` // 0 = 1
}

// Parameters override the default route and stop behaviour for a run.
type Parameters struct {
	PlatformHalfLength *float64 `json:"platform_half_length,omitempty"` // metres
	Dwell              *float64 `json:"dwell,omitempty"`                // seconds
	ArrivalTolerance   *float64 `json:"arrival_tolerance,omitempty"`    // metres
}

// Spawn schedules a train onto a named service at a simulation time.
type Spawn struct {
	Service string         `json:"service"`
	At      float64        `json:"at"`               // seconds
	Offset  float64        `json:"offset,omitempty"` // metres along the route
	Dwell   *float64       `json:"dwell,omitempty"`  // seconds
	Vehicle *train.Vehicle `json:"vehicle,omitempty"`
}

// SimulationInput is the JSON-serialisable input to the engine.
type SimulationInput struct {
	Meta       SimulationMeta     `json:"simulation_meta"`
	Parameters Parameters         `json:"parameters"`
	Network    network.Data       `json:"network"`
	Services   []route.Definition `json:"services"`
	Vehicle    *train.Vehicle     `json:"vehicle,omitempty"`
	Spawns     []Spawn            `json:"spawns"`
}

// RouteSummary describes a built service route in the log.
type RouteSummary struct {
	Name          string       `json:"name"`
	Color         string       `json:"color,omitempty"`
	ShortLabel    string       `json:"short_label,omitempty"`
	Sections      int          `json:"sections"`
	TotalDistance float64      `json:"total_distance"` // metres
	Stops         []route.Stop `json:"stops"`
}

// SimulationLogRow is the state of all trains at a single simulation timestep.
type SimulationLogRow struct {
	Timestamp float64          `json:"timestamp"` // seconds
	Trains    []train.Snapshot `json:"trains"`
	Spawned   []train.ID       `json:"spawned,omitempty"`
	Removed   []train.ID       `json:"removed,omitempty"`
}

// SimulationLog is the complete output of a simulation run.
type SimulationLog struct {
	Meta   SimulationMeta     `json:"simulation_meta"`
	RunID  string             `json:"run_id"`
	Routes []RouteSummary     `json:"routes"`
	Output []SimulationLogRow `json:"output"`
}
