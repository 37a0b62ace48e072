package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifications struct {
	channel string
	events  []StateEvent
	err     error
}

func (r *recordingNotifications) PublishStateEvent(_ context.Context, channel string, event StateEvent) error {
	r.channel = channel
	r.events = append(r.events, event)
	return r.err
}

func TestNotificationsHookFiltersKinds(t *testing.T) {
	client := &recordingNotifications{}
	hook := &NotificationsHook{Client: client, Channel: "adboard", Kinds: []string{KindStats}}

	require.NoError(t, hook.StateUpdated(context.Background(), StateEvent{Kind: KindFilters}))
	require.NoError(t, hook.StateUpdated(context.Background(), StateEvent{Kind: KindStats, Generation: 2}))

	assert.Equal(t, "adboard", client.channel)
	assert.Equal(t, []StateEvent{{Kind: KindStats, Generation: 2}}, client.events)
}

func TestNotificationsHookNilClient(t *testing.T) {
	var hook *NotificationsHook
	assert.NoError(t, hook.StateUpdated(context.Background(), StateEvent{Kind: KindPool}))
}

func TestRefreshHooksRunsEveryHook(t *testing.T) {
	failing := &recordingNotifications{err: errors.New("down")}
	ok := &recordingNotifications{}
	broadcast := NewBroadcastHook()
	ch, cancel := broadcast.Subscribe(EventFilter{})
	defer cancel()

	hooks := RefreshHooks{
		&NotificationsHook{Client: failing},
		nil,
		broadcast,
		&NotificationsHook{Client: ok},
	}
	err := hooks.StateUpdated(context.Background(), StateEvent{Kind: KindProjects, Generation: 1})

	require.Error(t, err)
	assert.Len(t, ok.events, 1)
	select {
	case e := <-ch:
		assert.Equal(t, KindProjects, e.Kind)
	default:
		t.Fatal("expected broadcast delivery")
	}
}
