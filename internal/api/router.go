package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cxd309/railsim/internal/api/handlers"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/routestore"
)

// Options configure the router.
type Options struct {
	AllowedOrigins []string
	RouteOptions   route.Options
	Timeout        time.Duration
	Logger         *slog.Logger
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware. store may be nil, which disables the /api/routes store
// endpoints.
func NewRouter(sim handlers.Simulation, store routestore.Store, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	healthHandler := handlers.NewHealthHandler(sim, store)
	trainHandler := handlers.NewTrainHandler(sim, store, opts.RouteOptions)
	routeHandler := handlers.NewRouteHandler(sim.Network(), store, opts.RouteOptions)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Logging(logger))
	r.Use(Recovery(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, opts.Timeout, "request timed out")
	})

	r.Get("/health", healthHandler.Health)

	// Live fleet
	r.Get("/api/trains", trainHandler.GetAllTrains)
	r.Get("/api/trains/feed.pb", trainHandler.GetFeed)
	r.Post("/api/trains", trainHandler.SpawnTrain)
	r.Delete("/api/trains", trainHandler.RemoveAllTrains)
	r.Delete("/api/trains/{id}", trainHandler.RemoveTrain)
	r.Put("/api/simulation/rate", trainHandler.SetRate)
	r.Get("/api/services", trainHandler.GetServices)

	// Route authoring
	r.Post("/api/routes/validate", routeHandler.ValidateRoute)
	if store != nil {
		r.Get("/api/routes", routeHandler.ListRoutes)
		r.Post("/api/routes", routeHandler.CreateRoute)
		r.Get("/api/routes/{key}", routeHandler.GetRoute)
		r.Put("/api/routes/{key}", routeHandler.UpdateRoute)
		r.Delete("/api/routes/{key}", routeHandler.DeleteRoute)
	}

	return r
}
