package task

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nuid"
	"github.com/tasksync/project/internal/contracts"
)

var (
	ErrForbidden        = errors.New("not allowed to perform this action on the task")
	ErrUserNotFound     = errors.New("user not found")
	ErrAssigneeRequired = errors.New("assigned_to_user_id is required")
)

// Store is the persistence boundary for task records. Implementations must
// report a missing record as ErrTaskNotFound.
type Store interface {
	Create(ctx context.Context, t Task) error
	FindByID(ctx context.Context, taskID string) (Task, error)
	Update(ctx context.Context, t Task) error
	Delete(ctx context.Context, taskID string) error
}

// UserDirectory resolves assignment targets against the identity store.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// EventFanout receives one domain event per successful mutation. Emission is
// fire-and-forget: implementations must not fail or block the mutation.
type EventFanout interface {
	Emit(event contracts.TaskEvent)
}

type Service struct {
	Store  Store
	Users  UserDirectory
	Fanout EventFanout
	Now    func() time.Time
	NewID  func() string
}

func NewService(store Store, users UserDirectory, fanout EventFanout) *Service {
	return &Service{
		Store:  store,
		Users:  users,
		Fanout: fanout,
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  nuid.Next,
	}
}

type CreateRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DueDate          time.Time `json:"due_date"`
	Priority         string    `json:"priority"`
	Status           string    `json:"status"`
	AssignedToUserID string    `json:"assigned_to_user_id"`
}

// Patch carries a partial update; nil fields are left unchanged.
type Patch struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	DueDate          *time.Time `json:"due_date"`
	Priority         *string    `json:"priority"`
	Status           *string    `json:"status"`
	AssignedToUserID *string    `json:"assigned_to_user_id"`
}

func (s *Service) Create(ctx context.Context, actorUserID string, req CreateRequest) (Task, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return Task{}, err
	}
	if req.DueDate.IsZero() {
		return Task{}, ErrInvalidDueDate
	}

	priority := PriorityMedium
	if strings.TrimSpace(req.Priority) != "" {
		priority, err = ParsePriority(req.Priority)
		if err != nil {
			return Task{}, err
		}
	}
	status := StatusTodo
	if strings.TrimSpace(req.Status) != "" {
		status, err = ParseStatus(req.Status)
		if err != nil {
			return Task{}, err
		}
	}

	assignee := strings.TrimSpace(req.AssignedToUserID)
	if assignee != "" {
		if err := s.ensureUserExists(ctx, assignee); err != nil {
			return Task{}, err
		}
	}

	now := s.Now()
	t := Task{
		ID:               s.NewID(),
		Title:            title,
		Description:      strings.TrimSpace(req.Description),
		DueDate:          req.DueDate,
		Priority:         priority,
		Status:           status,
		CreatedByUserID:  actorUserID,
		AssignedToUserID: assignee,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Store.Create(ctx, t); err != nil {
		return Task{}, err
	}

	s.emit(contracts.KindTaskCreated, t.ID, t.Snapshot(), actorUserID, "")
	return t, nil
}

func (s *Service) Update(ctx context.Context, actorUserID, taskID string, patch Patch) (Task, error) {
	t, err := s.Store.FindByID(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !CanEdit(t, actorUserID) {
		return Task{}, ErrForbidden
	}

	prevAssignee := t.AssignedToUserID

	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return Task{}, err
		}
		t.Title = title
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DueDate != nil {
		if patch.DueDate.IsZero() {
			return Task{}, ErrInvalidDueDate
		}
		t.DueDate = *patch.DueDate
	}
	if patch.Priority != nil {
		priority, err := ParsePriority(*patch.Priority)
		if err != nil {
			return Task{}, err
		}
		t.Priority = priority
	}
	if patch.Status != nil {
		status, err := ParseStatus(*patch.Status)
		if err != nil {
			return Task{}, err
		}
		t.Status = status
	}
	if patch.AssignedToUserID != nil {
		assignee := strings.TrimSpace(*patch.AssignedToUserID)
		if assignee != "" && assignee != prevAssignee {
			if err := s.ensureUserExists(ctx, assignee); err != nil {
				return Task{}, err
			}
		}
		t.AssignedToUserID = assignee
	}

	t.UpdatedAt = s.Now()
	if err := s.Store.Update(ctx, t); err != nil {
		return Task{}, err
	}

	s.emit(contracts.KindTaskUpdated, t.ID, t.Snapshot(), actorUserID, "")
	if t.AssignedToUserID != prevAssignee && t.Assigned() {
		s.emit(contracts.KindTaskAssigned, t.ID, t.Snapshot(), actorUserID, t.AssignedToUserID)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, actorUserID, taskID string) error {
	t, err := s.Store.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if !CanDelete(t, actorUserID) {
		return ErrForbidden
	}
	if err := s.Store.Delete(ctx, taskID); err != nil {
		return err
	}

	s.emit(contracts.KindTaskDeleted, taskID, nil, actorUserID, "")
	return nil
}

func (s *Service) Assign(ctx context.Context, actorUserID, taskID, assigneeUserID string) (Task, error) {
	assigneeUserID = strings.TrimSpace(assigneeUserID)
	if assigneeUserID == "" {
		return Task{}, ErrAssigneeRequired
	}

	t, err := s.Store.FindByID(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !CanAssign(t, actorUserID) {
		return Task{}, ErrForbidden
	}
	if err := s.ensureUserExists(ctx, assigneeUserID); err != nil {
		return Task{}, err
	}

	t.AssignedToUserID = assigneeUserID
	t.UpdatedAt = s.Now()
	if err := s.Store.Update(ctx, t); err != nil {
		return Task{}, err
	}

	s.emit(contracts.KindTaskUpdated, t.ID, t.Snapshot(), actorUserID, "")
	s.emit(contracts.KindTaskAssigned, t.ID, t.Snapshot(), actorUserID, assigneeUserID)
	return t, nil
}

func (s *Service) ChangeStatus(ctx context.Context, actorUserID, taskID, newStatus string) (Task, error) {
	status, err := ParseStatus(newStatus)
	if err != nil {
		return Task{}, err
	}

	t, err := s.Store.FindByID(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !CanChangeStatus(t, actorUserID) {
		return Task{}, ErrForbidden
	}

	t.Status = status
	t.UpdatedAt = s.Now()
	if err := s.Store.Update(ctx, t); err != nil {
		return Task{}, err
	}

	s.emit(contracts.KindTaskUpdated, t.ID, t.Snapshot(), actorUserID, "")
	if status == StatusCompleted {
		// The creator hears about completion even when the assignee did it.
		s.emit(contracts.KindTaskStatusChanged, t.ID, t.Snapshot(), actorUserID, t.CreatedByUserID)
	}
	return t, nil
}

func (s *Service) ensureUserExists(ctx context.Context, userID string) error {
	exists, err := s.Users.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) emit(kind, taskID string, snapshot *contracts.TaskSnapshot, actorUserID, targetUserID string) {
	if s.Fanout == nil {
		return
	}
	s.Fanout.Emit(contracts.TaskEvent{
		EventID:      s.NewID(),
		Kind:         kind,
		TaskID:       taskID,
		Task:         snapshot,
		ActorUserID:  actorUserID,
		TargetUserID: targetUserID,
		OccurredAt:   s.Now(),
	})
}
