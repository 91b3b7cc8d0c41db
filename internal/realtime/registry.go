package realtime

import (
	"sync"

	"github.com/tasksync/project/internal/contracts"
	"github.com/tasksync/project/internal/platform/metrics"
)

const sessionBufferSize = 64

var (
	activeSessions = metrics.NewGauge(metrics.Opts{
		Name: "realtime_active_sessions",
		Help: "Number of currently connected SSE sessions.",
	})
	deliveredTotal = metrics.NewCounterVec(metrics.Opts{
		Name: "realtime_events_delivered_total",
		Help: "Events handed to a session channel.",
	}, []string{"kind"})
	droppedTotal = metrics.NewCounterVec(metrics.Opts{
		Name: "realtime_events_dropped_total",
		Help: "Events dropped because a session channel was full.",
	}, []string{"kind"})
)

func init() {
	metrics.Default.MustRegister(activeSessions, deliveredTotal, droppedTotal)
}

// Session is one live connection of one authenticated user. All of a user's
// simultaneous connections share the same logical channel: a targeted event
// reaches every one of them.
type Session struct {
	userID string
	events chan contracts.TaskEvent
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) Events() <-chan contracts.TaskEvent { return s.events }

// Registry maps authenticated users to their live sessions. Connect and
// Disconnect are safe to call concurrently for unrelated users.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]map[*Session]struct{}
}

func NewRegistry() *Registry {
	return &Registry{byUser: map[string]map[*Session]struct{}{}}
}

func (r *Registry) Connect(userID string) *Session {
	s := &Session{
		userID: userID,
		events: make(chan contracts.TaskEvent, sessionBufferSize),
	}

	r.mu.Lock()
	if r.byUser[userID] == nil {
		r.byUser[userID] = map[*Session]struct{}{}
	}
	r.byUser[userID][s] = struct{}{}
	r.mu.Unlock()

	activeSessions.Inc()
	return s
}

func (r *Registry) Disconnect(s *Session) {
	r.mu.Lock()
	sessions, ok := r.byUser[s.userID]
	if ok {
		if _, member := sessions[s]; member {
			delete(sessions, s)
			if len(sessions) == 0 {
				delete(r.byUser, s.userID)
			}
			activeSessions.Dec()
		}
	}
	r.mu.Unlock()
}

// Broadcast delivers an event to every connected session.
func (r *Registry) Broadcast(e contracts.TaskEvent) {
	r.mu.Lock()
	targets := make([]*Session, 0)
	for _, sessions := range r.byUser {
		for s := range sessions {
			targets = append(targets, s)
		}
	}
	r.mu.Unlock()

	deliver(targets, e)
}

// Publish delivers an event only to the given user's sessions. If the user
// has no live connection the event is silently dropped.
func (r *Registry) Publish(userID string, e contracts.TaskEvent) {
	r.mu.Lock()
	targets := make([]*Session, 0, len(r.byUser[userID]))
	for s := range r.byUser[userID] {
		targets = append(targets, s)
	}
	r.mu.Unlock()

	deliver(targets, e)
}

func (r *Registry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, sessions := range r.byUser {
		total += len(sessions)
	}
	return total
}

// deliver never blocks: a session whose buffer is full loses the event
// rather than stalling delivery to everyone else.
func deliver(targets []*Session, e contracts.TaskEvent) {
	for _, s := range targets {
		select {
		case s.events <- e:
			deliveredTotal.WithLabelValues(e.Kind).Inc()
		default:
			droppedTotal.WithLabelValues(e.Kind).Inc()
		}
	}
}
