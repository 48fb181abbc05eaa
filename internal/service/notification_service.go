package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/config"
	"github.com/deskforge/helpdesk/internal/events"
)

// Notification is one message routed to a channel.
type Notification struct {
	Recipient      string
	EventType      events.EventType
	OrganizationID string
	TicketID       string
	Summary        string
}

// Channel delivers notifications.
type Channel interface {
	Send(ctx context.Context, n Notification) error
}

// NotificationService turns domain events into notifications. The customer
// channel reaches ticket creators; the staff channel reaches the help desk.
// Internal notes only ever go to the staff channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	customer   Channel
	staff      Channel
}

// NotificationOption customizes the service.
type NotificationOption func(*NotificationService)

// WithCustomerChannel replaces the e-mail stub.
func WithCustomerChannel(ch Channel) NotificationOption {
	return func(n *NotificationService) { n.customer = ch }
}

// WithStaffChannel replaces the webhook stub.
func WithStaffChannel(ch Channel) NotificationOption {
	return func(n *NotificationService) { n.staff = ch }
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, opts ...NotificationOption) *NotificationService {
	logger = nopIfNil(logger)
	n := &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		customer:   emailStub{from: strings.TrimSpace(cfg.EmailFrom), logger: logger},
		staff:      webhookStub{url: strings.TrimSpace(cfg.WebhookURL), logger: logger},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventResponseAdded, n.handleResponseAdded)
	n.dispatcher.Subscribe(events.EventSubscriptionChanged, n.handleSubscriptionChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.staff.Send(ctx, notificationFor(event, "", fmt.Sprintf("new %s ticket: %s", payload.Priority, payload.Title)))
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	summary := fmt.Sprintf("ticket status changed from %s to %s", payload.OldStatus, payload.NewStatus)
	if payload.CreatedBy == event.Actor.UserID {
		return n.staff.Send(ctx, notificationFor(event, "", summary))
	}
	return n.customer.Send(ctx, notificationFor(event, payload.CreatedBy, summary))
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	if payload.AssignedTo == nil {
		return n.staff.Send(ctx, notificationFor(event, "", "ticket unassigned"))
	}
	return n.staff.Send(ctx, notificationFor(event, *payload.AssignedTo, "ticket assigned to you"))
}

func (n *NotificationService) handleResponseAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ResponseAddedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	if payload.IsInternal {
		return n.staff.Send(ctx, notificationFor(event, "", "internal note: "+payload.BodyPreview))
	}
	if payload.AuthorID == payload.CreatedBy {
		return n.staff.Send(ctx, notificationFor(event, "", "customer replied: "+payload.BodyPreview))
	}
	return n.customer.Send(ctx, notificationFor(event, payload.CreatedBy, "new reply: "+payload.BodyPreview))
}

func (n *NotificationService) handleSubscriptionChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SubscriptionChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	summary := fmt.Sprintf("subscription %s, user limit %d", payload.Status, payload.MaxUsers)
	return n.staff.Send(ctx, notificationFor(event, "", summary))
}

func notificationFor(event events.Event, recipient, summary string) Notification {
	return Notification{
		Recipient:      recipient,
		EventType:      event.Type,
		OrganizationID: event.OrganizationID,
		TicketID:       event.TicketID,
		Summary:        summary,
	}
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}

type emailStub struct {
	from   string
	logger *zap.Logger
}

func (e emailStub) Send(_ context.Context, n Notification) error {
	if e.from == "" {
		return nil
	}
	e.logger.Debug("sendEmailNotificationStub",
		zap.String("from", e.from),
		zap.String("recipient_id", n.Recipient),
		zap.String("ticket_id", n.TicketID),
		zap.String("event_type", string(n.EventType)))
	return nil
}

type webhookStub struct {
	url    string
	logger *zap.Logger
}

func (w webhookStub) Send(_ context.Context, n Notification) error {
	if w.url == "" {
		return nil
	}
	w.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", w.url),
		zap.String("org_id", n.OrganizationID),
		zap.String("ticket_id", n.TicketID),
		zap.String("event_type", string(n.EventType)))
	return nil
}
