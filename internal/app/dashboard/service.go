package dashboard

import (
	"context"
	"time"

	"github.com/tasksync/project/internal/app/query"
	"github.com/tasksync/project/internal/app/task"
	"golang.org/x/sync/errgroup"
)

// Counter is the counting boundary of the task store.
type Counter interface {
	Count(ctx context.Context, spec query.CountSpec) (int, error)
}

// Stats is the flat record of dashboard counters for one user.
type Stats struct {
	AssignedTasks        int `json:"assigned_tasks"`
	CreatedTasks         int `json:"created_tasks"`
	OverdueTasks         int `json:"overdue_tasks"`
	CompletedTasks       int `json:"completed_tasks"`
	TasksCompletedToday  int `json:"tasks_completed_today"`
	TasksCreatedThisWeek int `json:"tasks_created_this_week"`
	TasksDueTomorrow     int `json:"tasks_due_tomorrow"`
}

type Service struct {
	Tasks Counter
	Now   func() time.Time
}

func NewService(tasks Counter) *Service {
	return &Service{
		Tasks: tasks,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot computes the seven counters as parallel sub-queries sharing one
// captured "now". Day boundaries are UTC midnight; the week window is a
// rolling seven days.
func (s *Service) Snapshot(ctx context.Context, userID string) (Stats, error) {
	now := s.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)
	startOfDayAfter := startOfToday.AddDate(0, 0, 2)
	weekAgo := now.AddDate(0, 0, -7)

	completed := string(task.StatusCompleted)

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, spec query.CountSpec) {
		g.Go(func() error {
			n, err := s.Tasks.Count(gctx, spec)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&stats.AssignedTasks, query.CountSpec{
		AssignedTo: userID,
		StatusNot:  completed,
	})
	count(&stats.CreatedTasks, query.CountSpec{
		CreatedBy: userID,
	})
	count(&stats.OverdueTasks, query.CountSpec{
		AssignedTo: userID,
		StatusNot:  completed,
		DueBefore:  now,
	})
	count(&stats.CompletedTasks, query.CountSpec{
		AssignedTo: userID,
		Status:     completed,
	})
	count(&stats.TasksCompletedToday, query.CountSpec{
		AssignedTo:   userID,
		Status:       completed,
		UpdatedSince: startOfToday,
	})
	count(&stats.TasksCreatedThisWeek, query.CountSpec{
		CreatedBy:    userID,
		CreatedSince: weekAgo,
	})
	count(&stats.TasksDueTomorrow, query.CountSpec{
		AssignedTo: userID,
		StatusNot:  completed,
		DueFrom:    startOfTomorrow,
		DueUntil:   startOfDayAfter,
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
