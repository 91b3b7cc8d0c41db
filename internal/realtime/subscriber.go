package realtime

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
	"github.com/tasksync/project/internal/contracts"
)

// Route hands one decoded event to the right delivery path.
func Route(registry *Registry, e contracts.TaskEvent) {
	if e.TargetUserID == "" {
		registry.Broadcast(e)
		return
	}
	registry.Publish(e.TargetUserID, e)
}

// SubscribeEvents bridges the JetStream event subjects into the session
// registry. Only events published after subscription are delivered; there is
// no replay for late-connecting streamers.
func SubscribeEvents(js nats.JetStreamContext, registry *Registry) (*nats.Subscription, error) {
	return js.Subscribe("task.event.>", func(msg *nats.Msg) {
		var e contracts.TaskEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			log.Printf("discarding malformed event on %s: %v", msg.Subject, err)
			return
		}
		Route(registry, e)
	}, nats.DeliverNew())
}
