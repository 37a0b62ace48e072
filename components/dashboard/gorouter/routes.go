package gorouter

import (
	"errors"
	"fmt"
	"net/http"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/dashboard/httpapi"
)

// Config wires the dashboard API and its WebSocket feed onto a go-router router.
type Config struct {
	API       *httpapi.Handlers
	Broadcast *dashboard.BroadcastHook
	BasePath  string
	Routes    httpapi.RouteConfig
}

// Register mounts the JSON endpoints and the WebSocket feed. Server-sent
// events need a flushing writer and stay on BroadcastHook.ServeSSE.
func Register[T any](r router.Router[T], cfg Config) error {
	if r == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: handlers are required")
	}
	routes := httpapi.DefaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	group := r.Group(base)

	for _, endpoint := range cfg.API.Endpoints(routes) {
		if err := register(group, endpoint); err != nil {
			return err
		}
	}
	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	group.Get("/healthz", router.WrapHandler(func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}))
	return nil
}

func register[T any](r router.Router[T], endpoint httpapi.Endpoint) error {
	handler := router.WrapHandler(func(ctx router.Context) error {
		res := endpoint.Serve(ctx.Context(), httpapi.Request{
			Body:  ctx.Body(),
			Query: func(name string) string { return ctx.Query(name) },
		})
		return ctx.JSON(res.Status, res.Payload)
	})
	switch endpoint.Method {
	case http.MethodGet:
		r.Get(endpoint.Path, handler)
	case http.MethodPost:
		r.Post(endpoint.Path, handler)
	case http.MethodPatch:
		r.Patch(endpoint.Path, handler)
	case http.MethodDelete:
		r.Delete(endpoint.Path, handler)
	default:
		return fmt.Errorf("gorouter: unsupported method %s for %s", endpoint.Method, endpoint.Path)
	}
	return nil
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe(dashboard.EventFilter{})
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}
