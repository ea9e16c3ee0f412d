package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/property-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

// Auth-state events mirror the credential provider's session lifecycle.
const (
	EventSignedIn         EventType = "signed_in"
	EventSignedOut        EventType = "signed_out"
	EventTokenRefreshed   EventType = "token_refreshed"
	EventPasswordRecovery EventType = "password_recovery"
	EventUserUpdated      EventType = "user_updated"
)

// Out-of-band delivery requests; a notification handler owns delivery.
const (
	EventEmailConfirmationRequested EventType = "email_confirmation_requested"
	EventPasswordRecoveryRequested  EventType = "password_recovery_requested"
)

// Listing and task workflow events.
const (
	EventPropertySubmitted EventType = "property_submitted"
	EventPropertyReviewed  EventType = "property_reviewed"
	EventTaskAssigned      EventType = "task_assigned"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventTaskOverdue       EventType = "task_overdue"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New builds an event stamped with a fresh id and the current time.
func New(eventType EventType, subjectID, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionPayload accompanies auth-state events. Session is nil on sign-out.
type SessionPayload struct {
	Session *domain.Session `json:"-"`
}

// TokenIssuedPayload carries a single-use token for out-of-band delivery.
type TokenIssuedPayload struct {
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PropertySubmittedPayload payload.
type PropertySubmittedPayload struct {
	Title       string             `json:"title"`
	ListingType domain.ListingType `json:"listing_type"`
}

// PropertyReviewedPayload payload.
type PropertyReviewedPayload struct {
	SubmittedBy *string               `json:"submitted_by,omitempty"`
	Status      domain.ApprovalStatus `json:"status"`
	Reason      *string               `json:"reason,omitempty"`
}

// TaskAssignedPayload payload.
type TaskAssignedPayload struct {
	AssignedTo string              `json:"assigned_to"`
	Title      string              `json:"title"`
	Priority   domain.TaskPriority `json:"priority"`
	DueDate    *time.Time          `json:"due_date,omitempty"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	NewStatus domain.TaskStatus `json:"new_status"`
}

// TaskOverduePayload is emitted by the overdue scan, once per task per scan.
type TaskOverduePayload struct {
	AssignedTo string    `json:"assigned_to"`
	Title      string    `json:"title"`
	DueDate    time.Time `json:"due_date"`
}
