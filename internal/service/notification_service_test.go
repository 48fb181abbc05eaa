package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/config"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/events"
)

type recordingChannel struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingChannel) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingChannel) notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

func newNotificationHarness(t *testing.T) (events.Dispatcher, *recordingChannel, *recordingChannel) {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	customer := &recordingChannel{}
	staff := &recordingChannel{}
	svc := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{},
		WithCustomerChannel(customer), WithStaffChannel(staff))
	svc.RegisterHandlers()
	return dispatcher, customer, staff
}

func TestInternalNoteNeverReachesCustomer(t *testing.T) {
	dispatcher, customer, staff := newNotificationHarness(t)
	ctx := context.Background()

	err := dispatcher.Publish(ctx, events.Event{
		Type:     events.EventResponseAdded,
		TicketID: "t-1",
		Actor:    events.Actor{UserID: "agent-1", Role: domain.RoleAgent},
		Payload: events.ResponseAddedPayload{
			AuthorID:    "agent-1",
			CreatedBy:   "cust-1",
			IsInternal:  true,
			BodyPreview: "customer is on the legacy plan",
		},
	})
	require.NoError(t, err)

	assert.Empty(t, customer.notifications())
	require.Len(t, staff.notifications(), 1)
	assert.Equal(t, "t-1", staff.notifications()[0].TicketID)
}

func TestPublicReplyRouting(t *testing.T) {
	dispatcher, customer, staff := newNotificationHarness(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventResponseAdded,
		Payload: events.ResponseAddedPayload{AuthorID: "agent-1", CreatedBy: "cust-1", BodyPreview: "try again"},
	}))
	require.Len(t, customer.notifications(), 1)
	assert.Equal(t, "cust-1", customer.notifications()[0].Recipient)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventResponseAdded,
		Payload: events.ResponseAddedPayload{AuthorID: "cust-1", CreatedBy: "cust-1", BodyPreview: "thanks"},
	}))
	assert.Len(t, customer.notifications(), 1)
	assert.Len(t, staff.notifications(), 1)
}

func TestStatusChangeRouting(t *testing.T) {
	dispatcher, customer, staff := newNotificationHarness(t)
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:  events.EventTicketStatusChanged,
		Actor: events.Actor{UserID: "agent-1", Role: domain.RoleAgent},
		Payload: events.TicketStatusChangedPayload{
			CreatedBy: "cust-1",
			OldStatus: domain.TicketStatusOpen,
			NewStatus: domain.TicketStatusResolved,
		},
	}))
	require.Len(t, customer.notifications(), 1)
	assert.Equal(t, "cust-1", customer.notifications()[0].Recipient)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:  events.EventTicketReopened,
		Actor: events.Actor{UserID: "cust-1", Role: domain.RoleCustomer},
		Payload: events.TicketStatusChangedPayload{
			CreatedBy: "cust-1",
			OldStatus: domain.TicketStatusResolved,
			NewStatus: domain.TicketStatusOpen,
		},
	}))
	assert.Len(t, customer.notifications(), 1)
	require.Len(t, staff.notifications(), 1)
	assert.Equal(t, events.EventTicketReopened, staff.notifications()[0].EventType)
}

func TestAssignmentNotifiesAssignee(t *testing.T) {
	dispatcher, customer, staff := newNotificationHarness(t)
	assignee := "agent-7"

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTicketAssigned,
		Payload: events.TicketAssignedPayload{AssignedTo: &assignee},
	}))
	assert.Empty(t, customer.notifications())
	require.Len(t, staff.notifications(), 1)
	assert.Equal(t, assignee, staff.notifications()[0].Recipient)
}

func TestUnexpectedPayloadFails(t *testing.T) {
	dispatcher, _, _ := newNotificationHarness(t)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTicketCreated,
		Payload: "not a payload",
	})
	assert.Error(t, err)
}
