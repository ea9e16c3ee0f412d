package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/events"
	"github.com/spec-kit/property-service/internal/service"
)

// OverdueSource lists tasks past their due date.
type OverdueSource interface {
	OverdueTasks(ctx context.Context) ([]domain.StaffTask, error)
}

// OverdueTaskWorker periodically publishes a reminder for each overdue task.
type OverdueTaskWorker struct {
	tasks      OverdueSource
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// NewOverdueTaskWorker constructs the worker.
func NewOverdueTaskWorker(tasks OverdueSource, dispatcher events.Dispatcher, logger *zap.Logger) *OverdueTaskWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueTaskWorker{tasks: tasks, dispatcher: dispatcher, logger: logger}
}

// Start scans once immediately and then on every tick until ctx is done.
func (w *OverdueTaskWorker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		w.logger.Info("overdue task scan disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("overdue task worker started", zap.Duration("interval", interval))
	w.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue task worker stopped")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *OverdueTaskWorker) scan(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("overdue task scan failed", zap.Error(err))
	}
}

// RunOnce publishes one task_overdue event per overdue task and returns how
// many were published.
func (w *OverdueTaskWorker) RunOnce(ctx context.Context) (int, error) {
	overdue, err := w.tasks.OverdueTasks(ctx)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, task := range overdue {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if task.DueDate == nil {
			continue
		}
		event := events.New(events.EventTaskOverdue, task.ID, "", events.TaskOverduePayload{
			AssignedTo: task.AssignedTo,
			Title:      task.Title,
			DueDate:    *task.DueDate,
		})
		if err := w.dispatcher.Publish(ctx, event); err != nil {
			w.logger.Warn("publish overdue reminder", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		published++
	}
	if published > 0 {
		w.logger.Info("overdue reminders published", zap.Int("count", published))
	}
	return published, nil
}
