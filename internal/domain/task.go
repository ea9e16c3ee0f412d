package domain

import (
	"errors"
	"time"
)

// TaskStatus enumerates lifecycle states for staff tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority enumerates task urgency.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// ErrInvalidTaskStatus is returned for status values outside the enum.
var ErrInvalidTaskStatus = errors.New("invalid task status")

// StaffTask is work assigned by an admin to a staff member.
type StaffTask struct {
	ID          string
	Title       string
	Description string
	AssignedTo  string
	AssignedBy  string
	Priority    TaskPriority
	Status      TaskStatus
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplyStatus sets the status and keeps CompletedAt non-nil exactly when the
// task is completed.
func (t *StaffTask) ApplyStatus(status TaskStatus, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidTaskStatus
	}
	t.Status = status
	if status == TaskStatusCompleted {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	return nil
}

// Overdue is derived: the due date has passed and the task is not completed.
func (t *StaffTask) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusCompleted
}

// TaskSummary counts tasks per status plus derived overdue.
type TaskSummary struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
	Total      int `json:"total"`
}

// SummarizeTasks computes the dashboard counts at time now.
func SummarizeTasks(tasks []StaffTask, now time.Time) TaskSummary {
	var summary TaskSummary
	for i := range tasks {
		switch tasks[i].Status {
		case TaskStatusPending:
			summary.Pending++
		case TaskStatusInProgress:
			summary.InProgress++
		case TaskStatusCompleted:
			summary.Completed++
		}
		if tasks[i].Overdue(now) {
			summary.Overdue++
		}
		summary.Total++
	}
	return summary
}

// CountOverdue returns the number of overdue tasks at time now.
func CountOverdue(tasks []StaffTask, now time.Time) int {
	return SummarizeTasks(tasks, now).Overdue
}
