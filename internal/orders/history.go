package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bookcourier/pkg/eventstore"
)

const aggregateType = "order"

// history keeps each order's lifecycle as an event stream. The order row is
// the source of truth; history is written after it and may lag on failure.
type history struct {
	events eventstore.Store
	log    *slog.Logger
}

func newHistory(es eventstore.Store, log *slog.Logger) *history {
	return &history{events: es, log: log}
}

func (h *history) record(ctx context.Context, id uuid.UUID, eventType string, data any) {
	if h.events == nil {
		return
	}
	if err := eventstore.Append(ctx, h.events, id, aggregateType, eventType, data); err != nil {
		h.log.Warn("failed to record order event", "order_id", id, "event", eventType, "err", err)
	}
}

func (h *history) load(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error) {
	if h.events == nil {
		return []eventstore.Event{}, nil
	}
	events, err := h.events.LoadEvents(ctx, id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load history of order %s: %w", id, err)
	}
	if events == nil {
		events = []eventstore.Event{}
	}
	return events, nil
}
