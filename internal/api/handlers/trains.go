package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cxd309/railsim/internal/feed"
	"github.com/cxd309/railsim/internal/fleet"
	"github.com/cxd309/railsim/internal/live"
	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/routestore"
	"github.com/cxd309/railsim/internal/train"
)

// Simulation is the live fleet the handlers drive.
type Simulation interface {
	Snapshot() []train.Snapshot
	Spawn(r *route.Route, opts fleet.SpawnOptions) (train.ID, error)
	SpawnService(name string, opts fleet.SpawnOptions) (train.ID, error)
	Remove(id train.ID) bool
	RemoveAll()
	Rate() float64
	SetRate(rate float64) error
	Services() []*route.Route
	Network() *network.Network
}

// TrainHandler handles HTTP requests for the live fleet
type TrainHandler struct {
	sim   Simulation
	store routestore.Store // may be nil
	opts  route.Options
}

// NewTrainHandler creates a new handler. store may be nil, in which case
// trains can only be spawned onto loaded services.
func NewTrainHandler(sim Simulation, store routestore.Store, opts route.Options) *TrainHandler {
	return &TrainHandler{sim: sim, store: store, opts: opts}
}

// GetAllTrainsResponse is the JSON response structure for GET /api/trains
type GetAllTrainsResponse struct {
	Trains      []train.Snapshot `json:"trains"`
	Count       int              `json:"count"`
	Rate        float64          `json:"rate"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// SpawnRequest is the body of POST /api/trains. Exactly one of Service and
// RouteKey must be set.
type SpawnRequest struct {
	Service  string         `json:"service,omitempty"`
	RouteKey string         `json:"route_key,omitempty"`
	Offset   float64        `json:"offset,omitempty"`
	Dwell    *float64       `json:"dwell,omitempty"`
	Vehicle  *train.Vehicle `json:"vehicle,omitempty"`
}

// SpawnResponse is returned for a spawned train
type SpawnResponse struct {
	ID train.ID `json:"id"`
}

// RateRequest is the body of PUT /api/simulation/rate
type RateRequest struct {
	Rate float64 `json:"rate"`
}

// ServiceInfo describes a loaded service route
type ServiceInfo struct {
	Name          string       `json:"name"`
	Sections      int          `json:"sections"`
	TotalDistance float64      `json:"total_distance"`
	Stops         []route.Stop `json:"stops"`
	Polyline      [][2]float64 `json:"polyline"`
}

// GetAllTrains handles GET /api/trains
// Returns all active trains or filters by the route query parameter
func (h *TrainHandler) GetAllTrains(w http.ResponseWriter, r *http.Request) {
	trains := h.sim.Snapshot()
	if name := r.URL.Query().Get("route"); name != "" {
		filtered := trains[:0]
		for _, t := range trains {
			if t.Route == name {
				filtered = append(filtered, t)
			}
		}
		trains = filtered
	}

	writeJSON(w, http.StatusOK, GetAllTrainsResponse{
		Trains:      trains,
		Count:       len(trains),
		Rate:        h.sim.Rate(),
		GeneratedAt: time.Now().UTC(),
	})
}

// GetFeed handles GET /api/trains/feed.pb
// Returns the fleet as a GTFS-realtime VehiclePositions feed
func (h *TrainHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	data, err := feed.Encode(h.sim.Snapshot(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode feed", err)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SpawnTrain handles POST /api/trains
func (h *TrainHandler) SpawnTrain(w http.ResponseWriter, r *http.Request) {
	var req SpawnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if (req.Service == "") == (req.RouteKey == "") {
		writeError(w, http.StatusBadRequest, "Exactly one of service and route_key is required", nil)
		return
	}
	opts := fleet.SpawnOptions{Offset: req.Offset, Dwell: req.Dwell, Vehicle: req.Vehicle}

	var (
		id  train.ID
		err error
	)
	if req.Service != "" {
		id, err = h.sim.SpawnService(req.Service, opts)
	} else {
		var rt *route.Route
		rt, err = h.storedRoute(r, req.RouteKey)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		id, err = h.sim.Spawn(rt, opts)
	}

	switch {
	case errors.Is(err, live.ErrUnknownService):
		writeError(w, http.StatusNotFound, "Service not found", err)
	case errors.Is(err, live.ErrSpawnRefused):
		writeError(w, http.StatusUnprocessableEntity, "Train cannot be placed on this route", err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to spawn train", err)
	default:
		writeJSON(w, http.StatusCreated, SpawnResponse{ID: id})
	}
}

func (h *TrainHandler) storedRoute(r *http.Request, key string) (*route.Route, error) {
	if h.store == nil {
		return nil, routestore.ErrNotFound
	}
	ur, err := routestore.LoadRoute(r.Context(), h.store, key)
	if err != nil {
		return nil, err
	}
	return ur.Build(h.sim.Network(), h.opts)
}

func (h *TrainHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routestore.ErrNotFound):
		writeError(w, http.StatusNotFound, "Route not found", err)
	case errors.Is(err, route.ErrEmptyRoute),
		errors.Is(err, route.ErrUnresolvableSection),
		errors.Is(err, route.ErrDegenerateSection):
		writeError(w, http.StatusUnprocessableEntity, "Route cannot be built", err)
	default:
		writeError(w, http.StatusInternalServerError, "Failed to load route", err)
	}
}

// RemoveTrain handles DELETE /api/trains/{id}
func (h *TrainHandler) RemoveTrain(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid train id", err)
		return
	}
	if !h.sim.Remove(id) {
		writeError(w, http.StatusNotFound, "Train not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveAllTrains handles DELETE /api/trains
func (h *TrainHandler) RemoveAllTrains(w http.ResponseWriter, r *http.Request) {
	h.sim.RemoveAll()
	w.WriteHeader(http.StatusNoContent)
}

// SetRate handles PUT /api/simulation/rate
func (h *TrainHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.sim.SetRate(req.Rate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}
	writeJSON(w, http.StatusOK, RateRequest{Rate: h.sim.Rate()})
}

// GetServices handles GET /api/services
func (h *TrainHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	services := h.sim.Services()
	out := make([]ServiceInfo, 0, len(services))
	for _, rt := range services {
		out = append(out, ServiceInfo{
			Name:          rt.Name,
			Sections:      rt.Len(),
			TotalDistance: rt.TotalDistance(),
			Stops:         rt.Stops(),
			Polyline:      lineCoords(rt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out, "count": len(out)})
}

func lineCoords(rt *route.Route) [][2]float64 {
	ls := rt.Polyline()
	out := make([][2]float64, len(ls))
	for i, p := range ls {
		out[i] = [2]float64{p[0], p[1]}
	}
	return out
}
