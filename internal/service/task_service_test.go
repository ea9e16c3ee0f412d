package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/property-service/internal/directory"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/events"
	"github.com/spec-kit/property-service/internal/repository"
	"github.com/spec-kit/property-service/internal/testutil"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func caller(role domain.Role, id string) *domain.AuthContext {
	return &domain.AuthContext{Identity: domain.Identity{ID: id}, Role: role}
}

const (
	staffSid = "7c0f4a52-1d7e-4e39-9a0e-5b1f2d3c4a01"
	staffSue = "7c0f4a52-1d7e-4e39-9a0e-5b1f2d3c4a02"
	staffSam = "7c0f4a52-1d7e-4e39-9a0e-5b1f2d3c4a03"
)

type taskFixture struct {
	svc    *TaskService
	tasks  *testutil.Tasks
	staff  *testutil.Staff
	events []events.Event
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	f := &taskFixture{
		tasks: testutil.NewTasks(),
		staff: testutil.NewStaff(
			domain.StaffProfile{ID: staffSid, Name: "Sid", IsActive: true},
			domain.StaffProfile{ID: staffSue, Name: "Sue", IsActive: true},
			domain.StaffProfile{ID: staffSam, Name: "Sam", IsActive: false},
		),
	}
	dispatcher := events.NewInMemoryDispatcher(nil)
	record := func(_ context.Context, e events.Event) error {
		f.events = append(f.events, e)
		return nil
	}
	dispatcher.Subscribe(events.EventTaskAssigned, record)
	dispatcher.Subscribe(events.EventTaskStatusChanged, record)

	dir := directory.New(directory.Dependencies{
		AdminRepo: testutil.NewAdmins(domain.AdminProfile{ID: "a1"}),
		StaffRepo: f.staff,
		UserRepo:  testutil.NewUsers(),
	})
	f.svc = NewTaskService(TaskDependencies{
		TaskRepo:   f.tasks,
		Directory:  dir,
		Dispatcher: dispatcher,
		Clock:      func() time.Time { return fixedNow },
	})
	return f
}

func TestCreateTaskRejectsInactiveAssignee(t *testing.T) {
	f := newTaskFixture(t)

	_, err := f.svc.CreateTask(context.Background(), caller(domain.RoleAdmin, "a1"), TaskCreateInput{
		Title:      "Call back lead",
		AssignedTo: staffSam,
	})
	if !apperrors.HasCode(err, apperrors.CodeInvalidAssignee) {
		t.Fatalf("expected invalid assignee, got %v", err)
	}
	all, _ := f.tasks.List(context.Background(), repository.TaskFilter{})
	if len(all) != 0 {
		t.Fatalf("no task should be stored, got %d", len(all))
	}
}

func TestCreateTaskDefaultsAndPublishes(t *testing.T) {
	f := newTaskFixture(t)

	task, err := f.svc.CreateTask(context.Background(), caller(domain.RoleAdmin, "a1"), TaskCreateInput{
		Title:      "  Inspect unit 4 ",
		AssignedTo: staffSid,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Title != "Inspect unit 4" || task.Priority != domain.TaskPriorityMedium || task.Status != domain.TaskStatusPending {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.AssignedBy != "a1" {
		t.Fatalf("assigned_by = %q", task.AssignedBy)
	}
	if len(f.events) != 1 || f.events[0].Type != events.EventTaskAssigned {
		t.Fatalf("expected one task_assigned event, got %+v", f.events)
	}
}

func TestCreateTaskRequiresAdmin(t *testing.T) {
	f := newTaskFixture(t)
	_, err := f.svc.CreateTask(context.Background(), caller(domain.RoleStaff, staffSid), TaskCreateInput{Title: "x", AssignedTo: staffSid})
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCompletingOverdueTaskClearsOverdue(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	yesterday := fixedNow.Add(-24 * time.Hour)
	task := f.tasks.Seed(domain.StaffTask{
		Title:      "Follow up",
		AssignedTo: staffSid,
		AssignedBy: "a1",
		Priority:   domain.TaskPriorityHigh,
		Status:     domain.TaskStatusPending,
		DueDate:    &yesterday,
	})

	staff := caller(domain.RoleStaff, staffSid)
	before, err := f.svc.Summary(ctx, staff, nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if before.Overdue != 1 {
		t.Fatalf("overdue before = %d, want 1", before.Overdue)
	}

	updated, err := f.svc.UpdateTaskStatus(ctx, staff, task.ID, domain.TaskStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if updated.CompletedAt == nil || !updated.CompletedAt.Equal(fixedNow) {
		t.Fatalf("completed_at = %v", updated.CompletedAt)
	}

	after, err := f.svc.Summary(ctx, staff, nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if after.Overdue != 0 || after.Completed != 1 {
		t.Fatalf("unexpected summary %+v", after)
	}
	overdue, err := f.svc.OverdueTasks(ctx)
	if err != nil || len(overdue) != 0 {
		t.Fatalf("OverdueTasks = %v, %v", overdue, err)
	}
}

func TestReopeningClearsCompletedAt(t *testing.T) {
	f := newTaskFixture(t)
	done := fixedNow.Add(-time.Hour)
	task := f.tasks.Seed(domain.StaffTask{AssignedTo: staffSid, Status: domain.TaskStatusCompleted, CompletedAt: &done})

	updated, err := f.svc.UpdateTaskStatus(context.Background(), caller(domain.RoleStaff, staffSid), task.ID, domain.TaskStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if updated.CompletedAt != nil {
		t.Fatal("completed_at should be cleared when reopening")
	}
}

func TestUpdateTaskStatusOwnership(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.tasks.Seed(domain.StaffTask{AssignedTo: staffSid, Status: domain.TaskStatusPending})

	tests := []struct {
		name   string
		caller *domain.AuthContext
		taskID string
		status domain.TaskStatus
		code   string
	}{
		{"other staff", caller(domain.RoleStaff, staffSue), task.ID, domain.TaskStatusCompleted, apperrors.CodeNotFound},
		{"missing task", caller(domain.RoleStaff, staffSid), "nope", domain.TaskStatusCompleted, apperrors.CodeNotFound},
		{"admin", caller(domain.RoleAdmin, "a1"), task.ID, domain.TaskStatusCompleted, apperrors.CodeForbidden},
		{"bad status", caller(domain.RoleStaff, staffSid), task.ID, "archived", apperrors.CodeValidation},
		{"anonymous", nil, task.ID, domain.TaskStatusCompleted, apperrors.CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateTaskStatus(ctx, tt.caller, tt.taskID, tt.status)
			if !apperrors.HasCode(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
		})
	}

	stored, err := f.tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.TaskStatusPending || stored.CompletedAt != nil {
		t.Fatalf("task changed by a rejected update: %+v", stored)
	}
	if len(f.events) != 0 {
		t.Fatalf("no events expected, got %d", len(f.events))
	}
}

func TestListTasksScopesStaffToThemselves(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	f.tasks.Seed(domain.StaffTask{AssignedTo: staffSid, Status: domain.TaskStatusPending})
	f.tasks.Seed(domain.StaffTask{AssignedTo: staffSue, Status: domain.TaskStatusPending})

	other := staffSue
	mine, err := f.svc.ListTasks(ctx, caller(domain.RoleStaff, staffSid), TaskListFilter{AssignedTo: &other})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(mine) != 1 || mine[0].AssignedTo != staffSid {
		t.Fatalf("staff should only see own tasks, got %+v", mine)
	}

	all, err := f.svc.ListTasks(ctx, caller(domain.RoleAdmin, "a1"), TaskListFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("admin ListTasks = %d tasks, %v", len(all), err)
	}

	if _, err := f.svc.ListTasks(ctx, caller(domain.RoleUser, "u1"), TaskListFilter{}); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("user should be forbidden, got %v", err)
	}
}

func TestUpdateTaskReassigns(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	admin := caller(domain.RoleAdmin, "a1")
	task := f.tasks.Seed(domain.StaffTask{Title: "Old", AssignedTo: staffSid, Priority: domain.TaskPriorityLow, Status: domain.TaskStatusPending})

	inactive := staffSam
	if _, err := f.svc.UpdateTask(ctx, admin, task.ID, TaskUpdateInput{AssignedTo: &inactive}); !apperrors.HasCode(err, apperrors.CodeInvalidAssignee) {
		t.Fatalf("expected invalid assignee, got %v", err)
	}

	next := staffSue
	title := "New"
	updated, err := f.svc.UpdateTask(ctx, admin, task.ID, TaskUpdateInput{AssignedTo: &next, Title: &title})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.AssignedTo != staffSue || updated.Title != "New" {
		t.Fatalf("unexpected task %+v", updated)
	}
	if len(f.events) != 1 || f.events[0].Type != events.EventTaskAssigned {
		t.Fatalf("reassignment should publish task_assigned, got %+v", f.events)
	}

	if _, err := f.svc.UpdateTaskStatus(ctx, caller(domain.RoleStaff, staffSid), task.ID, domain.TaskStatusCompleted); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("previous assignee should no longer own the task, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	admin := caller(domain.RoleAdmin, "a1")
	task := f.tasks.Seed(domain.StaffTask{AssignedTo: staffSid})

	if err := f.svc.DeleteTask(ctx, admin, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := f.svc.DeleteTask(ctx, admin, task.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestMalformedIDsMapToClientErrors(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	admin := caller(domain.RoleAdmin, "a1")

	_, err := f.svc.CreateTask(ctx, admin, TaskCreateInput{Title: "x", AssignedTo: "abc"})
	if !apperrors.HasCode(err, apperrors.CodeInvalidAssignee) {
		t.Fatalf("create with malformed assignee: got %v", err)
	}
	if _, err := f.svc.UpdateTaskStatus(ctx, caller(domain.RoleStaff, staffSid), "abc", domain.TaskStatusCompleted); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("status update on malformed id: got %v", err)
	}
	if _, err := f.svc.UpdateTask(ctx, admin, "abc", TaskUpdateInput{}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("update on malformed id: got %v", err)
	}
	if err := f.svc.DeleteTask(ctx, admin, "abc"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("delete on malformed id: got %v", err)
	}
	bad := "abc"
	if _, err := f.svc.ListTasks(ctx, admin, TaskListFilter{AssignedTo: &bad}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("list with malformed assigned_to: got %v", err)
	}
	// Staff filters are replaced by the caller's own id.
	if _, err := f.svc.ListTasks(ctx, caller(domain.RoleStaff, staffSid), TaskListFilter{AssignedTo: &bad}); err != nil {
		t.Fatalf("staff list ignores assigned_to: %v", err)
	}
}

func TestSummaryAndOverdueCoverEveryTask(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	due := fixedNow.Add(-time.Hour)
	const seeded = 250
	for i := 0; i < seeded; i++ {
		f.tasks.Seed(domain.StaffTask{AssignedTo: staffSid, Status: domain.TaskStatusPending, DueDate: &due})
	}
	f.tasks.Seed(domain.StaffTask{AssignedTo: staffSue, Status: domain.TaskStatusCompleted, DueDate: &due})

	all, err := f.svc.Summary(ctx, caller(domain.RoleAdmin, "a1"), nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if all.Total != seeded+1 || all.Pending != seeded || all.Overdue != seeded || all.Completed != 1 {
		t.Fatalf("unexpected summary %+v", all)
	}
	sue := staffSue
	scoped, err := f.svc.Summary(ctx, caller(domain.RoleAdmin, "a1"), &sue)
	if err != nil || scoped.Total != 1 || scoped.Overdue != 0 {
		t.Fatalf("scoped summary = %+v, %v", scoped, err)
	}
	overdue, err := f.svc.OverdueTasks(ctx)
	if err != nil || len(overdue) != seeded {
		t.Fatalf("OverdueTasks = %d, %v", len(overdue), err)
	}
}
