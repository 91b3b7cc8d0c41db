package query

import (
	"strings"
	"time"

	"github.com/tasksync/project/internal/app/task"
)

// View scopes for task listings.
const (
	ViewMy       = "my"
	ViewAssigned = "assigned"
	ViewAll      = "all"
)

// Filter is the structured filter as received from a client.
type Filter struct {
	Search     string
	Status     string
	Priority   string
	AssignedTo string
	CreatedBy  string
	Overdue    string
	SortBy     string
	View       string
}

// Query is the resolved store predicate plus sort order. View precedence has
// already been applied: a "my" scope drops explicit assigned_to/created_by
// filters, an "assigned" scope overrides assigned_to with the current user.
type Query struct {
	CreatorOrAssignee string
	AssignedTo        string
	CreatedBy         string
	Search            string
	Status            string
	Priority          string
	OverdueOnly       bool
	Sort              Sort
}

// Resolve translates a client filter into a Query for the given user.
// An unknown or empty view is treated as "all".
func Resolve(f Filter, currentUserID string) Query {
	q := Query{
		Search:      strings.TrimSpace(f.Search),
		Status:      strings.TrimSpace(f.Status),
		Priority:    strings.TrimSpace(f.Priority),
		OverdueOnly: strings.TrimSpace(f.Overdue) == "true",
		Sort:        ParseSort(f.SortBy),
	}

	switch strings.TrimSpace(f.View) {
	case ViewMy:
		q.CreatorOrAssignee = currentUserID
	case ViewAssigned:
		q.AssignedTo = currentUserID
	default:
		q.AssignedTo = strings.TrimSpace(f.AssignedTo)
		q.CreatedBy = strings.TrimSpace(f.CreatedBy)
	}
	return q
}

// Matches is the reference semantics of the resolved predicate: all clauses
// are conjunctive. The SQL built by TaskRepository must agree with it.
func Matches(t task.Task, q Query, now time.Time) bool {
	if q.CreatorOrAssignee != "" {
		if t.CreatedByUserID != q.CreatorOrAssignee && !(t.Assigned() && t.AssignedToUserID == q.CreatorOrAssignee) {
			return false
		}
	}
	if q.AssignedTo != "" && t.AssignedToUserID != q.AssignedTo {
		return false
	}
	if q.CreatedBy != "" && t.CreatedByUserID != q.CreatedBy {
		return false
	}
	if q.Status != "" && string(t.Status) != q.Status {
		return false
	}
	if q.Priority != "" && string(t.Priority) != q.Priority {
		return false
	}
	if q.OverdueOnly {
		if !t.DueDate.Before(now) || t.Status == task.StatusCompleted {
			return false
		}
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

type Sort string

const (
	SortDueDateAsc    Sort = "dueDate-asc"
	SortDueDateDesc   Sort = "dueDate-desc"
	SortPriorityAsc   Sort = "priority-asc"
	SortPriorityDesc  Sort = "priority-desc"
	SortCreatedAtDesc Sort = "createdAt-desc"
)

// ParseSort falls back to due date ascending for unknown values.
func ParseSort(raw string) Sort {
	switch Sort(strings.TrimSpace(raw)) {
	case SortDueDateDesc:
		return SortDueDateDesc
	case SortPriorityAsc:
		return SortPriorityAsc
	case SortPriorityDesc:
		return SortPriorityDesc
	case SortCreatedAtDesc:
		return SortCreatedAtDesc
	default:
		return SortDueDateAsc
	}
}

// Less is the in-memory ordering matching the repository's ORDER BY.
func (s Sort) Less(a, b task.Task) bool {
	switch s {
	case SortDueDateDesc:
		return a.DueDate.After(b.DueDate)
	case SortPriorityAsc:
		return a.Priority.Rank() < b.Priority.Rank()
	case SortPriorityDesc:
		return a.Priority.Rank() > b.Priority.Rank()
	case SortCreatedAtDesc:
		return a.CreatedAt.After(b.CreatedAt)
	default:
		return a.DueDate.Before(b.DueDate)
	}
}
