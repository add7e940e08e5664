package timeline

import (
	"context"
	"log/slog"

	pkgerrors "trrhub/pkg/errors"
)

// Worker consumes timeline events from a channel and persists them. It
// keeps background processing testable without wiring queue
// implementations yet.
type Worker struct {
	publisher *Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(publisher *Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Emit(ctx, event); err != nil {
				// A malformed event is a programmer error; dropping it
				// must not stall the queue behind it.
				if pkgerrors.HasCode(err, pkgerrors.CodeInternal) {
					w.logger.ErrorContext(ctx, "dropping invalid timeline event",
						"event_id", event.EventID, "error", err)
					continue
				}
				return err
			}
		}
	}
}
