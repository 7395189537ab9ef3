package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/routestore"
)

// RouteHandler handles route authoring: validation of drawn way sequences
// and the store of user routes
type RouteHandler struct {
	net   *network.Network
	store routestore.Store
	opts  route.Options
}

// NewRouteHandler creates a new handler with the given network and store
func NewRouteHandler(net *network.Network, store routestore.Store, opts route.Options) *RouteHandler {
	return &RouteHandler{net: net, store: store, opts: opts}
}

// ValidateRequest is the body of POST /api/routes/validate
type ValidateRequest struct {
	Ways []osm.WayID `json:"ways"`
}

// ValidateResponse reports the connectivity of a way sequence. When the
// chain is broken, Suggestion holds the ways that would bridge the gap.
type ValidateResponse struct {
	route.Validation
	Suggestion []osm.WayID `json:"suggestion,omitempty"`
}

// RouteInfo is a stored route together with what it builds to
type RouteInfo struct {
	Key           string          `json:"key"`
	Route         route.UserRoute `json:"route"`
	Sections      int             `json:"sections"`
	TotalDistance float64         `json:"total_distance"`
	Stops         []route.Stop    `json:"stops"`
	UpdatedAt     time.Time       `json:"updatedAt,omitzero"`
	Error         string          `json:"error,omitempty"`
}

// ValidateRoute handles POST /api/routes/validate
func (h *RouteHandler) ValidateRoute(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp := ValidateResponse{Validation: route.Validate(h.net, req.Ways)}
	if i := resp.BrokenAt; i > 0 && i < len(req.Ways) {
		path, _, err := h.net.ShortestWayPath(req.Ways[i-1], req.Ways[i])
		if err == nil && len(path) > 2 {
			resp.Suggestion = path[1 : len(path)-1]
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRoutes handles GET /api/routes
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list routes", err)
		return
	}
	out := make([]RouteInfo, 0, len(recs))
	for _, rec := range recs {
		ur, err := routestore.LoadRoute(r.Context(), h.store, rec.Key)
		if err != nil {
			out = append(out, RouteInfo{Key: rec.Key, UpdatedAt: rec.UpdatedAt, Error: err.Error()})
			continue
		}
		info := h.describe(rec.Key, ur)
		info.UpdatedAt = rec.UpdatedAt
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": out, "count": len(out)})
}

// GetRoute handles GET /api/routes/{key}
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rec, err := h.store.Get(r.Context(), key)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	ur, err := routestore.LoadRoute(r.Context(), h.store, key)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	info := h.describe(key, ur)
	info.UpdatedAt = rec.UpdatedAt
	writeJSON(w, http.StatusOK, info)
}

// CreateRoute handles POST /api/routes
func (h *RouteHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	ur, ok := h.decodeRoute(w, r)
	if !ok {
		return
	}
	key, err := routestore.SaveRoute(r.Context(), h.store, ur)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save route", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.describe(key, ur))
}

// UpdateRoute handles PUT /api/routes/{key}
func (h *RouteHandler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	ur, ok := h.decodeRoute(w, r)
	if !ok {
		return
	}
	if err := routestore.PutRoute(r.Context(), h.store, key, ur); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save route", err)
		return
	}
	writeJSON(w, http.StatusOK, h.describe(key, ur))
}

// DeleteRoute handles DELETE /api/routes/{key}
func (h *RouteHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeRoute reads a user route and rejects it if not even its first
// section can be built.
func (h *RouteHandler) decodeRoute(w http.ResponseWriter, r *http.Request) (route.UserRoute, bool) {
	var ur route.UserRoute
	if err := decodeJSON(w, r, &ur); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return ur, false
	}
	if _, err := ur.Build(h.net, h.opts); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Route cannot be built", err)
		return ur, false
	}
	return ur, true
}

func (h *RouteHandler) describe(key string, ur route.UserRoute) RouteInfo {
	info := RouteInfo{Key: key, Route: ur}
	rt, err := ur.Build(h.net, h.opts)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Sections = rt.Len()
	info.TotalDistance = rt.TotalDistance()
	info.Stops = rt.Stops()
	return info
}

func (h *RouteHandler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, routestore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Route not found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to read route", err)
}
