package audit

import "context"

// Sink is a write-only destination for audit events. Streaming sinks (Kafka)
// implement just this.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store persists audit events durably and supports the compliance read path.
// Swap with concrete storage without touching the publisher.
type Store interface {
	Sink
	ListByCustomer(ctx context.Context, customerID string) ([]Event, error)
}
