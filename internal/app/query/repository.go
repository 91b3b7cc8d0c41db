package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tasksync/project/internal/app/task"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type TaskRepository struct {
	Pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{Pool: pool}
}

const selectTaskColumns = `id, title, description, due_date, priority, status,
       created_by_user_id, assigned_to_user_id, created_at, updated_at`

func (r *TaskRepository) List(ctx context.Context, q Query, limit int) ([]task.Task, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	where, args := buildPredicate(q)
	sql := `SELECT ` + selectTaskColumns + ` FROM tasks`
	if where != "" {
		sql += ` WHERE ` + where
	}
	args = append(args, limit)
	sql += ` ORDER BY ` + orderBy(q.Sort) + fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]task.Task, 0, limit)
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
			&t.CreatedByUserID, &t.AssignedToUserID, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *TaskRepository) GetTaskByID(ctx context.Context, taskID string) (task.Task, error) {
	var t task.Task
	err := r.Pool.QueryRow(ctx,
		`SELECT `+selectTaskColumns+` FROM tasks WHERE id = $1`,
		taskID,
	).Scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
		&t.CreatedByUserID, &t.AssignedToUserID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrTaskNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

// buildPredicate renders the resolved query as one conjunctive WHERE clause.
func buildPredicate(q Query) (string, []any) {
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.CreatorOrAssignee != "" {
		p := arg(q.CreatorOrAssignee)
		clauses = append(clauses, fmt.Sprintf("(created_by_user_id = %s OR assigned_to_user_id = %s)", p, p))
	}
	if q.AssignedTo != "" {
		clauses = append(clauses, "assigned_to_user_id = "+arg(q.AssignedTo))
	}
	if q.CreatedBy != "" {
		clauses = append(clauses, "created_by_user_id = "+arg(q.CreatedBy))
	}
	if q.Status != "" {
		clauses = append(clauses, "status = "+arg(q.Status))
	}
	if q.Priority != "" {
		clauses = append(clauses, "priority = "+arg(q.Priority))
	}
	if q.OverdueOnly {
		clauses = append(clauses, "due_date < now() AND status <> 'COMPLETED'")
	}
	if q.Search != "" {
		p := arg("%" + escapeLike(q.Search) + "%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}

	return strings.Join(clauses, " AND "), args
}

func orderBy(s Sort) string {
	switch s {
	case SortDueDateDesc:
		return "due_date DESC"
	case SortPriorityAsc:
		return priorityRankSQL + " ASC"
	case SortPriorityDesc:
		return priorityRankSQL + " DESC"
	case SortCreatedAtDesc:
		return "created_at DESC"
	default:
		return "due_date ASC"
	}
}

const priorityRankSQL = `CASE priority
  WHEN 'URGENT' THEN 3
  WHEN 'HIGH' THEN 2
  WHEN 'MEDIUM' THEN 1
  ELSE 0 END`

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// CountSpec is a conjunctive counting predicate; zero-valued fields are
// skipped. Used by the dashboard aggregation.
type CountSpec struct {
	AssignedTo   string
	CreatedBy    string
	Status       string
	StatusNot    string
	DueBefore    time.Time
	DueFrom      time.Time
	DueUntil     time.Time
	UpdatedSince time.Time
	CreatedSince time.Time
}

func (r *TaskRepository) Count(ctx context.Context, spec CountSpec) (int, error) {
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if spec.AssignedTo != "" {
		clauses = append(clauses, "assigned_to_user_id = "+arg(spec.AssignedTo))
	}
	if spec.CreatedBy != "" {
		clauses = append(clauses, "created_by_user_id = "+arg(spec.CreatedBy))
	}
	if spec.Status != "" {
		clauses = append(clauses, "status = "+arg(spec.Status))
	}
	if spec.StatusNot != "" {
		clauses = append(clauses, "status <> "+arg(spec.StatusNot))
	}
	if !spec.DueBefore.IsZero() {
		clauses = append(clauses, "due_date < "+arg(spec.DueBefore))
	}
	if !spec.DueFrom.IsZero() {
		clauses = append(clauses, "due_date >= "+arg(spec.DueFrom))
	}
	if !spec.DueUntil.IsZero() {
		clauses = append(clauses, "due_date < "+arg(spec.DueUntil))
	}
	if !spec.UpdatedSince.IsZero() {
		clauses = append(clauses, "updated_at >= "+arg(spec.UpdatedSince))
	}
	if !spec.CreatedSince.IsZero() {
		clauses = append(clauses, "created_at >= "+arg(spec.CreatedSince))
	}

	sql := `SELECT count(*) FROM tasks`
	if len(clauses) > 0 {
		sql += ` WHERE ` + strings.Join(clauses, " AND ")
	}

	var count int
	if err := r.Pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
