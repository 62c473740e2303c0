package providers

import (
	"context"

	"github.com/cibounipi/mensabot/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to data
// refresh events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.DataRefreshEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.DataRefreshEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelDataRefreshed is the default channel scraping jobs publish to
// after rewriting a document
const EventChannelDataRefreshed = "canteen:data:refreshed"
