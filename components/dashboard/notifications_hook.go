package dashboard

import (
	"context"
	"errors"
	"slices"
)

// NotificationsClient publishes committed state to an external channel.
type NotificationsClient interface {
	PublishStateEvent(ctx context.Context, channel string, event StateEvent) error
}

// NotificationsHook forwards state events to an external notifications client.
// Kinds restricts forwarding; empty forwards everything.
type NotificationsHook struct {
	Client  NotificationsClient
	Channel string
	Kinds   []string
}

// StateUpdated satisfies RefreshHook.
func (h *NotificationsHook) StateUpdated(ctx context.Context, event StateEvent) error {
	if h == nil || h.Client == nil {
		return nil
	}
	if len(h.Kinds) > 0 && !slices.Contains(h.Kinds, event.Kind) {
		return nil
	}
	return h.Client.PublishStateEvent(ctx, h.Channel, event)
}

// RefreshHooks fans a state event out to every hook in order.
type RefreshHooks []RefreshHook

// StateUpdated satisfies RefreshHook. Every hook runs; errors are joined.
func (hooks RefreshHooks) StateUpdated(ctx context.Context, event StateEvent) error {
	var errs []error
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook.StateUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
