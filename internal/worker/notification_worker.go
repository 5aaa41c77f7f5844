package worker

import (
	"github.com/studiodesk/support-tickets/internal/events"
	"github.com/studiodesk/support-tickets/internal/service"
)

// StartEventSubscribers attaches the consumers of ticket events: staff
// notifications and the Kafka stream. Either may be nil. Both run inline on
// the publishing request; the Kafka writer only enqueues.
func StartEventSubscribers(dispatcher events.Dispatcher, notifications *service.NotificationService, publisher *events.KafkaPublisher) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	publisher.Register(dispatcher)
}
