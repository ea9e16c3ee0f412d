package dto

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/spec-kit/property-service/internal/domain"
)

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assigned_to"`
	Priority    domain.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

// UpdateTaskRequest payload; omitted fields are left unchanged.
type UpdateTaskRequest struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	AssignedTo   *string              `json:"assigned_to"`
	Priority     *domain.TaskPriority `json:"priority"`
	DueDate      *time.Time           `json:"due_date"`
	ClearDueDate bool                 `json:"clear_due_date"`
}

// TaskStatusRequest payload.
type TaskStatusRequest struct {
	Status domain.TaskStatus `json:"status"`
}

// TaskResponse describes a staff task.
type TaskResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assigned_to"`
	AssignedBy  string              `json:"assigned_by"`
	Priority    domain.TaskPriority `json:"priority"`
	Status      domain.TaskStatus   `json:"status"`
	DueDate     *time.Time          `json:"due_date,omitempty"`
	DueLabel    string              `json:"due_label,omitempty"`
	Overdue     bool                `json:"overdue"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewTaskResponse maps a task relative to now.
func NewTaskResponse(t *domain.StaffTask, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		AssignedBy:  t.AssignedBy,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		Overdue:     t.Overdue(now),
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		resp.DueLabel = humanize.RelTime(*t.DueDate, now, "ago", "from now")
	}
	return resp
}

// NewTaskList maps tasks, never returning nil.
func NewTaskList(tasks []domain.StaffTask, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskResponse(&tasks[i], now))
	}
	return out
}
