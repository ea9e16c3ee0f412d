package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/directory"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/events"
	"github.com/spec-kit/property-service/internal/observability"
	"github.com/spec-kit/property-service/internal/repository"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

// TaskService coordinates staff task workflows.
type TaskService struct {
	tasks      repository.TaskRepository
	directory  *directory.Directory
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	Directory  *directory.Directory
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title       string
	Description string
	AssignedTo  string
	Priority    domain.TaskPriority
	DueDate     *time.Time
}

// TaskUpdateInput carries the admin-editable fields; nil leaves a field as is.
type TaskUpdateInput struct {
	Title        *string
	Description  *string
	AssignedTo   *string
	Priority     *domain.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// TaskListFilter describes listing filters.
type TaskListFilter struct {
	AssignedTo *string
	Status     *domain.TaskStatus
	Limit      int
	Offset     int
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		tasks:      deps.TaskRepo,
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// ListTasks returns tasks visible to the caller. Staff callers only ever see
// their own tasks, whatever assignee filter they sent.
func (s *TaskService) ListTasks(ctx context.Context, caller *domain.AuthContext, filter TaskListFilter) ([]domain.StaffTask, error) {
	scoped, err := scopeTaskFilter(caller, filter)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, repository.TaskFilter{
		AssignedTo: scoped.AssignedTo,
		Status:     scoped.Status,
		Limit:      scoped.Limit,
		Offset:     scoped.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// Summary counts the caller's visible tasks by status, plus overdue.
func (s *TaskService) Summary(ctx context.Context, caller *domain.AuthContext, assignedTo *string) (domain.TaskSummary, error) {
	scoped, err := scopeTaskFilter(caller, TaskListFilter{AssignedTo: assignedTo})
	if err != nil {
		return domain.TaskSummary{}, err
	}
	summary, err := s.tasks.Summary(ctx, scoped.AssignedTo, s.now())
	if err != nil {
		return domain.TaskSummary{}, apperrors.MapError(err)
	}
	return summary, nil
}

func scopeTaskFilter(caller *domain.AuthContext, filter TaskListFilter) (TaskListFilter, error) {
	if caller == nil {
		return filter, apperrors.NewUnauthorized("authentication required")
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return filter, apperrors.NewValidationError("invalid status", map[string]any{"status": *filter.Status})
	}
	switch caller.Role {
	case domain.RoleAdmin:
		if filter.AssignedTo != nil && !validID(*filter.AssignedTo) {
			return filter, apperrors.NewValidationError("invalid assigned_to", map[string]any{"assigned_to": *filter.AssignedTo})
		}
	case domain.RoleStaff:
		self := caller.IdentityID()
		filter.AssignedTo = &self
	default:
		return filter, apperrors.NewForbidden("admin or staff role required")
	}
	return filter, nil
}

// CreateTask assigns new work to an active staff member.
func (s *TaskService) CreateTask(ctx context.Context, caller *domain.AuthContext, input TaskCreateInput) (*domain.StaffTask, error) {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.AssignedTo = strings.TrimSpace(input.AssignedTo)
	if input.Title == "" || input.AssignedTo == "" {
		return nil, apperrors.NewValidationError("title and assigned_to required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if err := s.ensureAssignable(ctx, input.AssignedTo); err != nil {
		return nil, err
	}

	task := &domain.StaffTask{
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		AssignedTo:  input.AssignedTo,
		AssignedBy:  caller.IdentityID(),
		Priority:    input.Priority,
		Status:      domain.TaskStatusPending,
		DueDate:     input.DueDate,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("assigned_to", task.AssignedTo),
		zap.String("assigned_by", task.AssignedBy))
	s.publishAssigned(ctx, caller.IdentityID(), task)
	return task, nil
}

// UpdateTask edits, reprioritizes or reassigns a task. Status is left to the assignee.
func (s *TaskService) UpdateTask(ctx context.Context, caller *domain.AuthContext, taskID string, input TaskUpdateInput) (*domain.StaffTask, error) {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if !validID(taskID) {
		return nil, taskNotFound(taskID)
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, taskLookupError(err, taskID)
	}

	reassigned := false
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.AssignedTo != nil && *input.AssignedTo != task.AssignedTo {
		assignee := strings.TrimSpace(*input.AssignedTo)
		if err := s.ensureAssignable(ctx, assignee); err != nil {
			return nil, err
		}
		task.AssignedTo = assignee
		reassigned = true
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, taskLookupError(err, taskID)
	}
	if reassigned {
		s.publishAssigned(ctx, caller.IdentityID(), task)
	}
	return task, nil
}

// DeleteTask removes a task.
func (s *TaskService) DeleteTask(ctx context.Context, caller *domain.AuthContext, taskID string) error {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return err
	}
	if !validID(taskID) {
		return taskNotFound(taskID)
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return taskLookupError(err, taskID)
	}
	s.logger.Info("task deleted", zap.String("task_id", taskID), zap.String("deleted_by", caller.IdentityID()))
	return nil
}

// UpdateTaskStatus lets the assignee move their own task. The write is
// conditioned on both id and assignee, so a task that is missing, or that is
// assigned to someone else, yields NotFound and is left untouched.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, caller *domain.AuthContext, taskID string, status domain.TaskStatus) (*domain.StaffTask, error) {
	if err := requireRole(caller, domain.RoleStaff); err != nil {
		return nil, err
	}

	var transition domain.StaffTask
	if err := transition.ApplyStatus(status, s.now()); err != nil {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}

	if !validID(taskID) {
		return nil, taskNotFound(taskID)
	}
	task, err := s.tasks.UpdateStatusForAssignee(ctx, taskID, caller.IdentityID(), transition.Status, transition.CompletedAt)
	if err != nil {
		return nil, taskLookupError(err, taskID)
	}

	s.metrics.RecordTaskStatus(string(task.Status))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.New(events.EventTaskStatusChanged, task.ID, caller.IdentityID(),
			events.TaskStatusChangedPayload{NewStatus: task.Status}))
	}
	return task, nil
}

// OverdueTasks lists every task past its due date and not completed.
func (s *TaskService) OverdueTasks(ctx context.Context) ([]domain.StaffTask, error) {
	return s.tasks.ListOverdue(ctx, s.now())
}

func (s *TaskService) ensureAssignable(ctx context.Context, staffID string) error {
	if !validID(staffID) {
		return apperrors.NewInvalidAssignee(staffID)
	}
	if _, err := s.directory.ActiveStaff(ctx, staffID); err != nil {
		if errors.Is(err, directory.ErrNotInRole) {
			return apperrors.NewInvalidAssignee(staffID)
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TaskService) publishAssigned(ctx context.Context, actorID string, task *domain.StaffTask) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(events.EventTaskAssigned, task.ID, actorID, events.TaskAssignedPayload{
		AssignedTo: task.AssignedTo,
		Title:      task.Title,
		Priority:   task.Priority,
		DueDate:    task.DueDate,
	}))
}

func taskLookupError(err error, taskID string) error {
	if repository.IsNotFound(err) {
		return taskNotFound(taskID)
	}
	return apperrors.MapError(err)
}

func taskNotFound(taskID string) error {
	return apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
}

// validID reports whether id can name a row; every primary key is a UUID.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func requireRole(caller *domain.AuthContext, role domain.Role) error {
	if caller == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if caller.Role != role {
		return apperrors.NewForbidden(string(role) + " role required")
	}
	return nil
}
