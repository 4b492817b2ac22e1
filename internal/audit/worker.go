package audit

import (
	"context"
	"log/slog"
)

// Worker drains the fan-out channel into a streaming sink. Sink failures are
// logged and skipped: the durable store already holds the event, so the
// stream is best-effort by design of the fan-out path.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.ErrorContext(ctx, "audit stream append failed",
						"action", event.Action,
						"customer_id", event.CustomerID,
						"error", err,
					)
				}
			}
		}
	}
}
