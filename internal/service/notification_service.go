package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/config"
	"github.com/spec-kit/property-service/internal/events"
)

// NotificationService delivers out-of-band messages for domain events.
// Delivery is stubbed: messages are logged, never sent.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventEmailConfirmationRequested, n.handleTokenIssued)
	n.dispatcher.Subscribe(events.EventPasswordRecoveryRequested, n.handleTokenIssued)
	n.dispatcher.Subscribe(events.EventPropertySubmitted, n.handlePropertySubmitted)
	n.dispatcher.Subscribe(events.EventPropertyReviewed, n.handlePropertyReviewed)
	n.dispatcher.Subscribe(events.EventTaskAssigned, n.handleTaskAssigned)
	n.dispatcher.Subscribe(events.EventTaskOverdue, n.handleTaskOverdue)
}

// handleTokenIssued mails a confirmation or recovery link. The token itself
// must never reach the logs.
func (n *NotificationService) handleTokenIssued(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TokenIssuedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("out-of-band token issued",
		zap.String("event_type", string(event.Type)),
		zap.String("identity_id", event.SubjectID),
		zap.Time("expires_at", payload.ExpiresAt))
	n.sendEmailNotificationStub(ctx, payload.Email, event)
	return nil
}

func (n *NotificationService) handlePropertySubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("PropertySubmitted", zap.String("property_id", event.SubjectID), zap.String("submitted_by", event.ActorID))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePropertyReviewed(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.PropertyReviewedPayload)
	n.logger.Info("PropertyReviewed",
		zap.String("property_id", event.SubjectID),
		zap.String("status", string(payload.Status)))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTaskAssigned(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TaskAssignedPayload)
	n.logger.Info("TaskAssigned",
		zap.String("task_id", event.SubjectID),
		zap.String("assigned_to", payload.AssignedTo),
		zap.String("priority", string(payload.Priority)))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTaskOverdue(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TaskOverduePayload)
	n.logger.Warn("TaskOverdue",
		zap.String("task_id", event.SubjectID),
		zap.String("assigned_to", payload.AssignedTo),
		zap.Time("due_date", payload.DueDate))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, to string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}
