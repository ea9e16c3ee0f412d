package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/property-service/internal/api/dto"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/service"
)

// TasksHandler manages staff task endpoints.
type TasksHandler struct {
	service *service.TaskService
	clock   clock
}

// NewTasksHandler constructs handler. now may be nil.
func NewTasksHandler(taskService *service.TaskService, now func() time.Time) *TasksHandler {
	return &TasksHandler{service: taskService, clock: now}
}

// List GET /api/tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	limit, offset := paging(c, 100, 500)
	filter := service.TaskListFilter{
		AssignedTo: optionalQuery(c, "assigned_to"),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := optionalQuery(c, "status"); raw != nil {
		s := domain.TaskStatus(*raw)
		filter.Status = &s
	}
	tasks, err := h.service.ListTasks(c.UserContext(), caller, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskList(tasks, h.clock.now())})
}

// Summary GET /api/tasks/summary.
func (h *TasksHandler) Summary(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), caller, optionalQuery(c, "assigned_to"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Create POST /api/tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.service.CreateTask(c.UserContext(), caller, service.TaskCreateInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTaskResponse(task, h.clock.now())})
}

// Update PUT /api/tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.service.UpdateTask(c.UserContext(), caller, c.Params("id"), service.TaskUpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		AssignedTo:   req.AssignedTo,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task, h.clock.now())})
}

// Delete DELETE /api/tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTask(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateStatus PUT /api/tasks/:id/status.
func (h *TasksHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TaskStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.service.UpdateTaskStatus(c.UserContext(), caller, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task, h.clock.now())})
}
