package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Domain event types published after a successful commit.
const (
	EventRatesBulkAdjusted = "rates.bulk_adjusted"
	EventQuoteCreated      = "quote.created"
	EventQuoteConverted    = "quote.converted"
	EventOrderCreated      = "order.created"
)

// Event is a domain fact. Key groups related events (e.g. a quote number) so a
// partitioned transport keeps them in order.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// EventPublisher delivers events to whatever is listening. Implementations live
// in internal/events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// publishAfterCommit sends evt and only logs on failure: the data is already
// committed and the request must not fail because a listener is unreachable.
func publishAfterCommit(ctx context.Context, pub EventPublisher, evt Event) {
	if pub == nil {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	if err := pub.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).Str("event", evt.Type).Str("key", evt.Key).Msg("failed to publish event")
	}
}
