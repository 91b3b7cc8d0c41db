package realtime

import (
	"fmt"
	"testing"

	"github.com/tasksync/project/internal/contracts"
)

func drain(s *Session) []contracts.TaskEvent {
	var out []contracts.TaskEvent
	for {
		select {
		case e := <-s.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestBroadcastReachesEverySession(t *testing.T) {
	r := NewRegistry()
	u1a := r.Connect("u1")
	u1b := r.Connect("u1")
	u2 := r.Connect("u2")

	r.Broadcast(contracts.TaskEvent{EventID: "e1", Kind: contracts.KindTaskCreated})

	for _, s := range []*Session{u1a, u1b, u2} {
		events := drain(s)
		if len(events) != 1 || events[0].EventID != "e1" {
			t.Fatalf("session %s got %v", s.UserID(), events)
		}
	}
}

func TestPublishTargetsOneUser(t *testing.T) {
	r := NewRegistry()
	u1 := r.Connect("u1")
	u2a := r.Connect("u2")
	u2b := r.Connect("u2")

	r.Publish("u2", contracts.TaskEvent{EventID: "e1", Kind: contracts.KindTaskAssigned, TargetUserID: "u2"})

	if events := drain(u1); len(events) != 0 {
		t.Fatalf("u1 received targeted event: %v", events)
	}
	for _, s := range []*Session{u2a, u2b} {
		if events := drain(s); len(events) != 1 {
			t.Fatalf("every u2 session should receive the event, got %v", events)
		}
	}

	// No live sessions for the target: the event is dropped silently.
	r.Publish("offline", contracts.TaskEvent{EventID: "e2"})
}

func TestDisconnect(t *testing.T) {
	r := NewRegistry()
	s1 := r.Connect("u1")
	s2 := r.Connect("u1")
	if got := r.ActiveSessions(); got != 2 {
		t.Fatalf("expected 2 active sessions, got %d", got)
	}

	r.Disconnect(s1)
	r.Disconnect(s1) // double disconnect is a no-op
	if got := r.ActiveSessions(); got != 1 {
		t.Fatalf("expected 1 active session, got %d", got)
	}

	r.Broadcast(contracts.TaskEvent{EventID: "e1"})
	if events := drain(s1); len(events) != 0 {
		t.Fatalf("disconnected session received events: %v", events)
	}
	if events := drain(s2); len(events) != 1 {
		t.Fatalf("remaining session missed the event: %v", events)
	}

	r.Disconnect(s2)
	if got := r.ActiveSessions(); got != 0 {
		t.Fatalf("expected 0 active sessions, got %d", got)
	}
}

func TestSlowSessionDropsInsteadOfBlocking(t *testing.T) {
	r := NewRegistry()
	slow := r.Connect("u1")

	for i := 0; i < sessionBufferSize+10; i++ {
		r.Broadcast(contracts.TaskEvent{EventID: fmt.Sprintf("e%d", i), Kind: contracts.KindTaskUpdated})
	}

	events := drain(slow)
	if len(events) != sessionBufferSize {
		t.Fatalf("expected buffer-sized backlog, got %d", len(events))
	}
	if events[0].EventID != "e0" {
		t.Fatalf("oldest buffered event should survive, got %s", events[0].EventID)
	}
}
