package websocket

import (
	"context"
	"encoding/json"

	"github.com/mediqueue/mediqueue/internal/platform/notification"
)

// Bridge forwards notification stack changes to the notifications topic
// until ctx is cancelled.
func Bridge(ctx context.Context, bus *notification.Bus, hub *Hub) {
	events, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			out := Event{
				Type:     "notification." + string(ev.Type),
				Topic:    TopicNotifications,
				Resource: "notification",
			}
			if ev.Notification != nil {
				out.ResourceID = ev.Notification.ID
				out.Timestamp = ev.Notification.CreatedAt
				if raw, err := json.Marshal(ev.Notification); err == nil {
					out.Data = raw
				}
			}
			hub.Broadcast(TopicNotifications, out)
		}
	}
}
