package realtime

import (
	"encoding/json"
	"log"

	"github.com/tasksync/project/internal/contracts"
	"github.com/tasksync/project/internal/platform/metrics"
)

var publishedTotal = metrics.NewCounterVec(metrics.Opts{
	Name: "task_events_published_total",
	Help: "Domain events published to the event stream.",
}, []string{"kind"})

func init() {
	metrics.Default.MustRegister(publishedTotal)
}

type PublishFunc func(subject string, payload []byte) error

// Publisher pushes domain events onto the NATS event subjects. It satisfies
// the task service's EventFanout: emission is fire-and-forget, so publish
// failures are logged and swallowed rather than surfaced to the mutation.
type Publisher struct {
	Publish PublishFunc
}

func NewPublisher(publish PublishFunc) *Publisher {
	return &Publisher{Publish: publish}
}

func (p *Publisher) Emit(e contracts.TaskEvent) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("event %s marshal failed: %v", e.EventID, err)
		return
	}
	if err := p.Publish(contracts.EventSubject(e), payload); err != nil {
		log.Printf("event %s publish failed: %v", e.EventID, err)
		return
	}
	publishedTotal.WithLabelValues(e.Kind).Inc()
}
