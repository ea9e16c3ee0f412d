package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/property-service/internal/domain"
)

// TaskFilter captures task listing parameters.
type TaskFilter struct {
	AssignedTo *string
	Status     *domain.TaskStatus
	Limit      int
	Offset     int
}

// TaskRepository encapsulates staff task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.StaffTask) error
	GetByID(ctx context.Context, id string) (*domain.StaffTask, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.StaffTask, error)
	Update(ctx context.Context, task *domain.StaffTask) error
	Delete(ctx context.Context, id string) error
	UpdateStatusForAssignee(ctx context.Context, id, assigneeID string, status domain.TaskStatus, completedAt *time.Time) (*domain.StaffTask, error)
	Summary(ctx context.Context, assignedTo *string, now time.Time) (domain.TaskSummary, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.StaffTask, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, title, description, assigned_to, assigned_by, priority, status, due_date, completed_at, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.StaffTask) error {
	const query = `
        INSERT INTO staff_tasks (title, description, assigned_to, assigned_by, priority, status, due_date, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.AssignedTo,
		task.AssignedBy,
		task.Priority,
		task.Status,
		task.DueDate,
		task.CompletedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.StaffTask, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM staff_tasks WHERE id=$1`, id))
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.StaffTask, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM staff_tasks WHERE %s ORDER BY due_date ASC NULLS LAST, created_at DESC LIMIT %d OFFSET %d`,
		taskColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]domain.StaffTask, error) {
	defer rows.Close()
	var result []domain.StaffTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

// Summary counts tasks in one aggregate pass, so totals never depend on a
// page size.
func (r *taskRepository) Summary(ctx context.Context, assignedTo *string, now time.Time) (domain.TaskSummary, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE status='pending'),
            COUNT(*) FILTER (WHERE status='in_progress'),
            COUNT(*) FILTER (WHERE status='completed'),
            COUNT(*) FILTER (WHERE due_date < $2 AND status <> 'completed'),
            COUNT(*)
        FROM staff_tasks
        WHERE ($1::uuid IS NULL OR assigned_to=$1::uuid)`
	var summary domain.TaskSummary
	err := r.pool.QueryRow(ctx, query, assignedTo, now).Scan(
		&summary.Pending,
		&summary.InProgress,
		&summary.Completed,
		&summary.Overdue,
		&summary.Total,
	)
	return summary, err
}

// ListOverdue returns every task past due and not completed, oldest due first.
func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.StaffTask, error) {
	query := `SELECT ` + taskColumns + ` FROM staff_tasks
        WHERE due_date < $1 AND status <> 'completed'
        ORDER BY due_date ASC`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

// Update writes the admin-editable fields. Status and completed_at are owned
// by UpdateStatusForAssignee.
func (r *taskRepository) Update(ctx context.Context, task *domain.StaffTask) error {
	const query = `
        UPDATE staff_tasks SET title=$1, description=$2, assigned_to=$3, priority=$4, due_date=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.AssignedTo,
		task.Priority,
		task.DueDate,
		task.ID,
	).Scan(&task.UpdatedAt)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM staff_tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateStatusForAssignee conditions on both id and assigned_to so a
// concurrent reassignment is never overwritten by the previous assignee.
func (r *taskRepository) UpdateStatusForAssignee(ctx context.Context, id, assigneeID string, status domain.TaskStatus, completedAt *time.Time) (*domain.StaffTask, error) {
	query := `
        UPDATE staff_tasks SET status=$1, completed_at=$2, updated_at=NOW()
        WHERE id=$3 AND assigned_to=$4
        RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, status, completedAt, id, assigneeID))
}

func scanTask(row pgx.Row) (*domain.StaffTask, error) {
	var task domain.StaffTask
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.AssignedTo,
		&task.AssignedBy,
		&task.Priority,
		&task.Status,
		&task.DueDate,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}
