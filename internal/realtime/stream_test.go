package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tasksync/project/internal/contracts"
	"github.com/tasksync/project/internal/platform/auth"
)

func TestStreamRejectsMissingToken(t *testing.T) {
	h := NewStreamHandler(NewRegistry(), auth.NewManager("secret", time.Hour))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStreamRejectsInvalidToken(t *testing.T) {
	h := NewStreamHandler(NewRegistry(), auth.NewManager("secret", time.Hour))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?token=garbage", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStreamRejectsExpiredToken(t *testing.T) {
	signer := auth.NewManager("secret", time.Hour)
	signer.Now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }
	token, err := signer.Sign("u1", "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	h := NewStreamHandler(NewRegistry(), auth.NewManager("secret", time.Hour))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStreamDeliversEvents(t *testing.T) {
	tokens := auth.NewManager("secret", time.Hour)
	token, err := tokens.Sign("u1", "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	registry := NewRegistry()
	h := NewStreamHandler(registry, tokens)
	h.Heartbeat = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events?token="+token, nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	waitFor(t, func() bool { return registry.ActiveSessions() == 1 })

	registry.Broadcast(contracts.TaskEvent{
		EventID: "e1",
		Kind:    contracts.KindTaskCreated,
		TaskID:  "t1",
		Task:    &contracts.TaskSnapshot{TaskID: "t1", Title: "Demo"},
	})
	registry.Publish("u1", contracts.TaskEvent{
		EventID:      "e2",
		Kind:         contracts.KindTaskAssigned,
		TaskID:       "t1",
		Task:         &contracts.TaskSnapshot{TaskID: "t1", Title: "Demo"},
		ActorUserID:  "u2",
		TargetUserID: "u1",
	})

	// Both frames are written before the handler re-enters its select, so an
	// empty session channel means the writes have happened.
	waitFor(t, func() bool { return len(sessionOf(registry, "u1").events) == 0 })

	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, ": connected") {
		t.Fatalf("missing handshake comment in %q", body)
	}
	if !strings.Contains(body, "event: "+contracts.KindTaskCreated) {
		t.Fatalf("missing broadcast frame in %q", body)
	}
	if !strings.Contains(body, "event: "+contracts.KindTaskAssigned) {
		t.Fatalf("missing targeted frame in %q", body)
	}
	if !strings.Contains(body, `"assigned_by_user_id":"u2"`) {
		t.Fatalf("assigned payload missing actor in %q", body)
	}
	if registry.ActiveSessions() != 0 {
		t.Fatalf("session not released, %d still active", registry.ActiveSessions())
	}
}

func TestStreamClosesAtTokenExpiry(t *testing.T) {
	// Short-lived token: the stream context deadline tears the session down.
	tokens := auth.NewManager("secret", 150*time.Millisecond)
	token, err := tokens.Sign("u1", "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	registry := NewRegistry()
	h := NewStreamHandler(registry, tokens)
	h.Heartbeat = time.Hour

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events?token="+token, nil)

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not close at token expiry")
	}
	if registry.ActiveSessions() != 0 {
		t.Fatalf("session not released, %d still active", registry.ActiveSessions())
	}
}

func sessionOf(r *Registry, userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s := range r.byUser[userID] {
		return s
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
