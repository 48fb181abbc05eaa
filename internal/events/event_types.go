package events

import (
	"time"

	"github.com/deskforge/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReopened      EventType = "ticket_reopened"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventResponseAdded       EventType = "response_added"
	EventSubscriptionChanged EventType = "subscription_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	OrganizationID string    `json:"organization_id"`
	TicketID       string    `json:"ticket_id,omitempty"`
	Actor          Actor     `json:"actor"`
	Timestamp      time.Time `json:"timestamp"`
	Payload        any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CreatedBy string                `json:"created_by"`
	Priority  domain.TicketPriority `json:"priority"`
	Title     string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	CreatedBy string              `json:"created_by"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo *string `json:"assigned_to,omitempty"`
}

// ResponseAddedPayload payload. Internal responses are never routed to the
// ticket's creator.
type ResponseAddedPayload struct {
	ResponseID  string `json:"response_id"`
	AuthorID    string `json:"author_id"`
	CreatedBy   string `json:"created_by"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// SubscriptionChangedPayload payload.
type SubscriptionChangedPayload struct {
	PlanID   string                    `json:"plan_id,omitempty"`
	Status   domain.SubscriptionStatus `json:"status"`
	MaxUsers int                       `json:"max_users"`
}
