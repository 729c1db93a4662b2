package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/winstonhome/winston/internal/infrastructure/database"
)

// Repository stores trigger executions.
type Repository interface {
	Recorder
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, group string, limit int) ([]Execution, error)
}

// SQLiteRepository implements Repository on the master database.
type SQLiteRepository struct {
	db *database.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a repository over a migrated database.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Execution list bounds.
const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// CreateExecution inserts an execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	query := `
		INSERT INTO trigger_executions (
			id, group_id, input, trigger_index, status,
			actions_total, actions_completed, failed_action, error,
			started_at, completed_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(ctx, query,
		exec.ID,
		exec.Group,
		exec.Input,
		exec.TriggerIndex,
		string(exec.Status),
		exec.ActionsTotal,
		exec.ActionsCompleted,
		nullableString(exec.FailedAction),
		nullableString(exec.Error),
		exec.StartedAt.UTC().Format(timeLayout),
		exec.CompletedAt.UTC().Format(timeLayout),
		exec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// PruneExecutions deletes executions that started before cutoff and
// returns how many were removed.
func (r *SQLiteRepository) PruneExecutions(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.db.Exec(ctx, `DELETE FROM trigger_executions WHERE started_at < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning executions: %w", err)
	}
	return n, nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	row := r.db.QueryRowContext(ctx, selectExecution+` WHERE id = ?`, id)
	exec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions returns the most recent executions, newest first. An
// empty group lists all groups.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, group string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if group == "" {
		rows, err = r.db.QueryContext(ctx, selectExecution+` ORDER BY started_at DESC LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, selectExecution+` WHERE group_id = ? ORDER BY started_at DESC LIMIT ?`, group, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	executions := []Execution{}
	for rows.Next() {
		exec, scanErr := scanExecution(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

const selectExecution = `
	SELECT id, group_id, input, trigger_index, status,
		actions_total, actions_completed, failed_action, error,
		started_at, completed_at, duration_ms
	FROM trigger_executions`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(scanner rowScanner) (*Execution, error) {
	var e Execution
	var status, startedAt, completedAt string
	var failedAction, errMsg sql.NullString

	err := scanner.Scan(
		&e.ID,
		&e.Group,
		&e.Input,
		&e.TriggerIndex,
		&status,
		&e.ActionsTotal,
		&e.ActionsCompleted,
		&failedAction,
		&errMsg,
		&startedAt,
		&completedAt,
		&e.DurationMS,
	)
	if err != nil {
		return nil, err
	}

	e.Status = ExecutionStatus(status)
	if t, parseErr := time.Parse(time.RFC3339Nano, startedAt); parseErr == nil {
		e.StartedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, completedAt); parseErr == nil {
		e.CompletedAt = t
	}
	if failedAction.Valid {
		e.FailedAction = &failedAction.String
	}
	if errMsg.Valid {
		e.Error = &errMsg.String
	}
	return &e, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
