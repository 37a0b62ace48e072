package dashboard

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastHookSubscribe(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe(EventFilter{})
	defer cancel()
	event := StateEvent{Kind: KindStats, Generation: 3}
	if err := hook.StateUpdated(context.Background(), event); err != nil {
		t.Fatalf("StateUpdated returned error: %v", err)
	}
	select {
	case e := <-ch:
		if e.Kind != event.Kind || e.Generation != 3 {
			t.Fatalf("unexpected event %+v", e)
		}
	default:
		t.Fatalf("expected event to be delivered")
	}
}

func TestBroadcastHookCancelClosesChannel(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe(EventFilter{})
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
	cancel()
}

func TestBroadcastHookWebSocket(t *testing.T) {
	hook := NewBroadcastHook()
	server := httptest.NewServer(http.HandlerFunc(hook.ServeWebSocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForSubscriber(t, hook)
	_ = hook.StateUpdated(context.Background(), StateEvent{Kind: KindPool, Generation: 1})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got StateEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Kind != KindPool {
		t.Fatalf("expected pool event, got %+v", got)
	}
}

func TestBroadcastHookSSE(t *testing.T) {
	hook := NewBroadcastHook()
	server := httptest.NewServer(http.HandlerFunc(hook.ServeSSE))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	waitForSubscriber(t, hook)
	_ = hook.StateUpdated(context.Background(), StateEvent{Kind: KindStats, Generation: 2})
	reader := bufio.NewReader(resp.Body)
	for _, want := range []string{"event: stats\n", "id: 2\n"} {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line != want {
			t.Fatalf("expected %q, got %q", want, line)
		}
	}
}

func TestBroadcastHookSSEAppliesQueryFilter(t *testing.T) {
	hook := NewBroadcastHook()
	server := httptest.NewServer(http.HandlerFunc(hook.ServeSSE))
	defer server.Close()

	resp, err := http.Get(server.URL + "?kinds=pool")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	waitForSubscriber(t, hook)
	_ = hook.StateUpdated(context.Background(), StateEvent{Kind: KindStats, Generation: 1})
	_ = hook.StateUpdated(context.Background(), StateEvent{Kind: KindPool, Generation: 4})
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "event: pool\n" {
		t.Fatalf("expected the pool event first, got %q", line)
	}
}

func TestBroadcastHookSettledFilter(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe(EventFilter{Kinds: []string{KindStats}, Settled: true})
	defer cancel()
	ctx := context.Background()

	_ = hook.StateUpdated(ctx, StateEvent{Kind: KindStats, Generation: 1, Reason: ReadSummary})
	_ = hook.StateUpdated(ctx, StateEvent{Kind: KindFilters})
	_ = hook.StateUpdated(ctx, StateEvent{Kind: KindStats, Generation: 1, Reason: ReasonSettled})

	got := drain(ch)
	if len(got) != 1 || got[0].Reason != ReasonSettled {
		t.Fatalf("expected only the settled event, got %+v", got)
	}
}

func TestBroadcastHookDropsOlderGenerations(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe(EventFilter{})
	defer cancel()
	ctx := context.Background()

	_ = hook.StateUpdated(ctx, StateEvent{Kind: KindStats, Generation: 3, Reason: ReadSummary})
	_ = hook.StateUpdated(ctx, StateEvent{Kind: KindStats, Generation: 2, Reason: ReadDynamics})
	_ = hook.StateUpdated(ctx, StateEvent{Kind: KindPool, Generation: 1})
	_ = hook.StateUpdated(ctx, StateEvent{Kind: KindStats, Generation: 3, Reason: ReadDynamics})

	got := drain(ch)
	want := []StateEvent{
		{Kind: KindStats, Generation: 3, Reason: ReadSummary},
		{Kind: KindPool, Generation: 1},
		{Kind: KindStats, Generation: 3, Reason: ReadDynamics},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestEventFilterFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events?kinds=stats,+pool,&settled=true", nil)
	filter := EventFilterFromRequest(r)
	if !filter.Settled || len(filter.Kinds) != 2 || filter.Kinds[1] != KindPool {
		t.Fatalf("unexpected filter %+v", filter)
	}
	if empty := EventFilterFromRequest(httptest.NewRequest(http.MethodGet, "/events", nil)); len(empty.Kinds) != 0 || empty.Settled {
		t.Fatalf("expected zero filter, got %+v", empty)
	}
}

func waitForSubscriber(t *testing.T, hook *BroadcastHook) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hook.subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no subscriber registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func drain(ch <-chan StateEvent) []StateEvent {
	var out []StateEvent
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
