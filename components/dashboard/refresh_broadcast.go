package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event kinds published through RefreshHook.
const (
	KindStats    = "stats"
	KindPool     = "pool"
	KindProjects = "projects"
	KindFilters  = "filters"
)

// ReasonSettled marks the stats event sent once every read of a generation settled.
const ReasonSettled = "settled"

// EventFilter narrows what a subscriber receives. The zero value receives everything.
type EventFilter struct {
	// Kinds limits delivery to these kinds; empty means all kinds.
	Kinds []string
	// Settled skips per-read stats events and keeps only the settled one.
	Settled bool
}

// EventFilterFromRequest reads ?kinds=stats,pool&settled=true.
func EventFilterFromRequest(r *http.Request) EventFilter {
	q := r.URL.Query()
	var filter EventFilter
	for _, kind := range strings.Split(q.Get("kinds"), ",") {
		if kind = strings.TrimSpace(kind); kind != "" {
			filter.Kinds = append(filter.Kinds, kind)
		}
	}
	filter.Settled, _ = strconv.ParseBool(q.Get("settled"))
	return filter
}

type subscriber struct {
	ch     chan StateEvent
	filter EventFilter
	// last generation delivered per kind; older events are dropped
	last map[string]uint64
}

func (s *subscriber) accepts(event StateEvent) bool {
	if len(s.filter.Kinds) > 0 && !slices.Contains(s.filter.Kinds, event.Kind) {
		return false
	}
	if s.filter.Settled && event.Kind == KindStats && event.Reason != ReasonSettled {
		return false
	}
	if event.Generation > 0 && event.Generation < s.last[event.Kind] {
		return false
	}
	return true
}

// BroadcastHook fans out committed state events to in-process subscribers.
type BroadcastHook struct {
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]*subscriber)}
}

// StateUpdated satisfies RefreshHook. A full subscriber buffer drops the
// event instead of blocking the commit.
func (h *BroadcastHook) StateUpdated(ctx context.Context, event StateEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if !sub.accepts(event) {
			continue
		}
		select {
		case sub.ch <- event:
			if event.Generation > 0 {
				sub.last[event.Kind] = event.Generation
			}
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of matching state events and a cancel func.
func (h *BroadcastHook) Subscribe(filter EventFilter) (<-chan StateEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	sub := &subscriber{
		ch:     make(chan StateEvent, 16),
		filter: filter,
		last:   map[string]uint64{},
	}
	h.subs[id] = sub
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

func (h *BroadcastHook) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams matching state events as JSON.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	filter := EventFilterFromRequest(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(filter)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams matching state events as Server-Sent Events. The event id
// is the generation, so clients can tell stale frames apart.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.Subscribe(EventFilterFromRequest(r))
	defer cancel()

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", event.Kind, event.Generation, data); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
