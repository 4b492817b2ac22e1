package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher captures structured audit events. Writes to the store are
// synchronous (the store is the source of truth); streaming sinks are fed
// through an optional fan-out channel drained by a Worker, so a slow broker
// never blocks the orchestration path.
type Publisher struct {
	store  Store
	inbox  chan<- Event
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithFanout attaches a buffered channel feeding streaming sinks.
func WithFanout(inbox chan<- Event) Option {
	return func(p *Publisher) { p.inbox = inbox }
}

// WithLogger sets a logger for fan-out overflow reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit durably records an audit event. ID and timestamp are assigned when
// absent so call sites stay terse.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit fan-out buffer full, event not streamed",
					"action", event.Action,
					"customer_id", event.CustomerID,
				)
			}
		}
	}
	return nil
}

// List returns the audit trail for one customer.
func (p *Publisher) List(ctx context.Context, customerID string) ([]Event, error) {
	return p.store.ListByCustomer(ctx, customerID)
}
