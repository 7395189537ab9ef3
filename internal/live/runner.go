// Package live drives a fleet from the wall clock for the HTTP server.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cxd309/railsim/internal/fleet"
	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/train"
)

// MaxStep bounds the simulated seconds of a single wall-clock tick before the
// rate multiplier is applied, so a stalled process does not jump trains.
const MaxStep = time.Second

var (
	// ErrUnknownService is returned when spawning onto a service that was not loaded.
	ErrUnknownService = errors.New("unknown service")
	// ErrSpawnRefused is returned when the fleet cannot place a train.
	ErrSpawnRefused = errors.New("spawn refused")
)

// Runner owns one fleet and ticks it from a time.Ticker. All fleet access
// goes through the runner's mutex, so readers only ever see state between ticks.
type Runner struct {
	mu       sync.Mutex
	fleet    *fleet.Fleet
	services map[string]*route.Route
	interval time.Duration
	rate     float64
	now      func() time.Time
	lastTick time.Time
	logger   *slog.Logger
}

// New returns a runner over f. services maps service names to their built
// routes; a nil route marks a service that failed to build.
func New(f *fleet.Fleet, services map[string]*route.Route, interval time.Duration, rate float64, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if services == nil {
		services = map[string]*route.Route{}
	}
	return &Runner{
		fleet:    f,
		services: services,
		interval: interval,
		rate:     rate,
		now:      time.Now,
		logger:   logger,
	}
}

// Run ticks the fleet every interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", r.interval)
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.mu.Lock()
	r.lastTick = r.now()
	r.mu.Unlock()

	r.logger.Info("simulation running", "interval", r.interval, "rate", r.Rate())
	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-ctx.Done():
			r.logger.Info("simulation stopped")
			return ctx.Err()
		}
	}
}

func (r *Runner) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(r.lastTick)
	r.lastTick = now
	if elapsed > MaxStep {
		r.logger.Debug("tick clamped", "elapsed", elapsed)
		elapsed = MaxStep
	}
	if removed := r.fleet.Tick(elapsed.Seconds(), r.rate); len(removed) > 0 {
		r.logger.Debug("trains removed", "trains", removed)
	}
}

// Step advances the fleet by dt simulated seconds at the current rate and
// returns the removed train ids.
func (r *Runner) Step(dt float64) []train.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fleet.Tick(dt, r.rate)
}

// Snapshot returns the current state of every train ordered by id.
func (r *Runner) Snapshot() []train.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fleet.List()
}

// Spawn places a train on an arbitrary route.
func (r *Runner) Spawn(rt *route.Route, opts fleet.SpawnOptions) (train.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.fleet.Spawn(rt, opts)
	if !ok {
		return 0, ErrSpawnRefused
	}
	return id, nil
}

// SpawnService places a train on a loaded service route.
func (r *Runner) SpawnService(name string, opts fleet.SpawnOptions) (train.ID, error) {
	rt, ok := r.services[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownService)
	}
	if rt == nil {
		return 0, fmt.Errorf("service %q has no route: %w", name, ErrSpawnRefused)
	}
	return r.Spawn(rt, opts)
}

// Remove deletes one train.
func (r *Runner) Remove(id train.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fleet.Remove(id)
}

// RemoveAll deletes every train.
func (r *Runner) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fleet.RemoveAll()
}

// Rate returns the current rate multiplier.
func (r *Runner) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// SetRate changes the rate multiplier. Negative rates are rejected.
func (r *Runner) SetRate(rate float64) error {
	if rate < 0 {
		return fmt.Errorf("rate multiplier must not be negative, got %v", rate)
	}
	r.mu.Lock()
	r.rate = rate
	r.mu.Unlock()
	return nil
}

// Services returns the loaded service routes ordered by name. Services that
// failed to build are left out.
func (r *Runner) Services() []*route.Route {
	names := make([]string, 0, len(r.services))
	for name, rt := range r.services {
		if rt != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]*route.Route, len(names))
	for i, name := range names {
		out[i] = r.services[name]
	}
	return out
}

// Network returns the network the fleet runs on.
func (r *Runner) Network() *network.Network { return r.fleet.Network() }
