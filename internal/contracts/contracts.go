package contracts

import "time"

// Wire event kinds delivered to connected clients.
const (
	KindTaskCreated       = "task:created"
	KindTaskUpdated       = "task:updated"
	KindTaskDeleted       = "task:deleted"
	KindTaskAssigned      = "task:assigned"
	KindTaskStatusChanged = "task:statusChanged"
)

// SubjectBroadcast carries events addressed to every connected session.
const SubjectBroadcast = "task.event.broadcast"

// TaskSnapshot is the task state carried inside an event payload.
type TaskSnapshot struct {
	TaskID           string    `json:"task_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DueDate          time.Time `json:"due_date"`
	Priority         string    `json:"priority"`
	Status           string    `json:"status"`
	CreatedByUserID  string    `json:"created_by_user_id"`
	AssignedToUserID string    `json:"assigned_to_user_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TaskEvent is published by task-api after a committed mutation and consumed
// once by the event-streamer. An empty TargetUserID means broadcast; otherwise
// the event is delivered only to the target user's channel.
type TaskEvent struct {
	EventID      string        `json:"event_id"`
	Kind         string        `json:"kind"`
	TaskID       string        `json:"task_id"`
	Task         *TaskSnapshot `json:"task,omitempty"`
	ActorUserID  string        `json:"actor_user_id,omitempty"`
	TargetUserID string        `json:"target_user_id,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// SubjectForUser returns the NATS subject of one user's channel.
func SubjectForUser(userID string) string {
	return "task.event.user." + userID
}

// EventSubject returns the NATS subject an event is published on.
func EventSubject(e TaskEvent) string {
	if e.TargetUserID == "" {
		return SubjectBroadcast
	}
	return SubjectForUser(e.TargetUserID)
}
