package task

import (
	"errors"
	"strings"
	"time"

	"github.com/tasksync/project/internal/contracts"
)

const MaxTitleLength = 200

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title must be at most 200 characters")
	ErrInvalidDueDate  = errors.New("due_date is required")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidStatus   = errors.New("invalid status")
)

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusCompleted  Status = "COMPLETED"
)

// ParseStatus canonicalizes a status value. The lifecycle permits any
// transition between known statuses, including reopening a completed task,
// so validation only checks membership.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.TrimSpace(raw)) {
	case StatusTodo:
		return StatusTodo, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusReview:
		return StatusReview, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", ErrInvalidStatus
	}
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ParsePriority(raw string) (Priority, error) {
	switch Priority(strings.TrimSpace(raw)) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityUrgent:
		return PriorityUrgent, nil
	default:
		return "", ErrInvalidPriority
	}
}

// Rank orders priorities LOW < MEDIUM < HIGH < URGENT.
func (p Priority) Rank() int {
	switch p {
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return 0
	}
}

type Task struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DueDate          time.Time `json:"due_date"`
	Priority         Priority  `json:"priority"`
	Status           Status    `json:"status"`
	CreatedByUserID  string    `json:"created_by_user_id"`
	AssignedToUserID string    `json:"assigned_to_user_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Assigned reports whether the task currently has an assignee.
func (t Task) Assigned() bool {
	return t.AssignedToUserID != ""
}

func (t Task) Snapshot() *contracts.TaskSnapshot {
	return &contracts.TaskSnapshot{
		TaskID:           t.ID,
		Title:            t.Title,
		Description:      t.Description,
		DueDate:          t.DueDate,
		Priority:         string(t.Priority),
		Status:           string(t.Status),
		CreatedByUserID:  t.CreatedByUserID,
		AssignedToUserID: t.AssignedToUserID,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if len([]rune(title)) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}
