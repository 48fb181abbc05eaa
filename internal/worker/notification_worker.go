package worker

import (
	"context"

	"github.com/deskforge/helpdesk/internal/events"
	"github.com/deskforge/helpdesk/internal/observability"
	"github.com/deskforge/helpdesk/internal/service"
)

var allEventTypes = []events.EventType{
	events.EventTicketCreated,
	events.EventTicketUpdated,
	events.EventTicketStatusChanged,
	events.EventTicketReopened,
	events.EventTicketAssigned,
	events.EventResponseAdded,
	events.EventSubscriptionChanged,
}

// StartNotificationWorker registers notification handlers and counts every
// dispatched event.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, metrics *observability.Metrics) {
	if dispatcher == nil {
		return
	}
	if metrics != nil {
		for _, eventType := range allEventTypes {
			dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
				metrics.RecordEvent(string(event.Type))
				return nil
			})
		}
	}
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
}
