package task

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTaskNotFound = errors.New("task not found")

type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

const createTasksSQL = `
CREATE TABLE IF NOT EXISTS tasks (
  id text PRIMARY KEY,
  title text NOT NULL,
  description text NOT NULL DEFAULT '',
  due_date timestamptz NOT NULL,
  priority text NOT NULL,
  status text NOT NULL,
  created_by_user_id text NOT NULL,
  assigned_to_user_id text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL,
  updated_at timestamptz NOT NULL
)`

const createTasksAssigneeIndexSQL = `
CREATE INDEX IF NOT EXISTS tasks_assigned_to_idx ON tasks (assigned_to_user_id)`

const createTasksCreatorIndexSQL = `
CREATE INDEX IF NOT EXISTS tasks_created_by_idx ON tasks (created_by_user_id)`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, createTasksSQL); err != nil {
		return err
	}
	if _, err := s.Pool.Exec(ctx, createTasksAssigneeIndexSQL); err != nil {
		return err
	}
	if _, err := s.Pool.Exec(ctx, createTasksCreatorIndexSQL); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, t Task) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO tasks (
		   id, title, description, due_date, priority, status,
		   created_by_user_id, assigned_to_user_id, created_at, updated_at
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.Description, t.DueDate, t.Priority, t.Status,
		t.CreatedByUserID, t.AssignedToUserID, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) FindByID(ctx context.Context, taskID string) (Task, error) {
	var t Task
	err := s.Pool.QueryRow(ctx,
		`SELECT id, title, description, due_date, priority, status,
		        created_by_user_id, assigned_to_user_id, created_at, updated_at
		 FROM tasks
		 WHERE id = $1`,
		taskID,
	).Scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
		&t.CreatedByUserID, &t.AssignedToUserID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, err
	}
	return t, nil
}

func (s *PostgresStore) Update(ctx context.Context, t Task) error {
	res, err := s.Pool.Exec(ctx,
		`UPDATE tasks
		 SET title = $2,
		     description = $3,
		     due_date = $4,
		     priority = $5,
		     status = $6,
		     assigned_to_user_id = $7,
		     updated_at = $8
		 WHERE id = $1`,
		t.ID, t.Title, t.Description, t.DueDate, t.Priority, t.Status,
		t.AssignedToUserID, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, taskID string) error {
	res, err := s.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}
