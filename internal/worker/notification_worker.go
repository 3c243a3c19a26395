package worker

import (
	"github.com/spec-kit/waitlist-service/internal/events"
	"github.com/spec-kit/waitlist-service/internal/notify"
)

// StartNotificationWorker subscribes the notification dispatcher to the
// queue event bus.
func StartNotificationWorker(dispatcher *notify.Dispatcher, bus events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.RegisterHandlers(bus)
}
