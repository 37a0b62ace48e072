package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-adboard/components/dashboard"
)

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	Filters   string
	Stats     string
	Refresh   string
	Pool      string
	Projects  string
	Events    string
	WebSocket string
	Wizard    string
}

// Routes mounts the JSON API and the push transports. A nil broadcast skips
// the SSE and WebSocket endpoints.
func Routes(h *Handlers, broadcast *dashboard.BroadcastHook, routes RouteConfig) chi.Router {
	routes = DefaultRouteConfig(routes)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	for _, endpoint := range h.Endpoints(routes) {
		r.Method(endpoint.Method, endpoint.Path, endpoint)
	}

	if broadcast != nil {
		r.Get(routes.Events, broadcast.ServeSSE)
		r.Get(routes.WebSocket, broadcast.ServeWebSocket)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// DefaultRouteConfig fills unset paths with the stock layout.
func DefaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Filters == "" {
		routes.Filters = "/filters"
	}
	if routes.Stats == "" {
		routes.Stats = "/stats"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/stats/refresh"
	}
	if routes.Pool == "" {
		routes.Pool = "/campaigns/pool"
	}
	if routes.Projects == "" {
		routes.Projects = "/projects"
	}
	if routes.Events == "" {
		routes.Events = "/events"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	if routes.Wizard == "" {
		routes.Wizard = "/wizard"
	}
	return routes
}
