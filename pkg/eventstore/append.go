package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

const maxAppendTries = 5

// Append records a single event at the aggregate's next version. A concurrent
// writer taking that version causes a re-read and retry; any other failure is
// returned as is.
func Append(ctx context.Context, s Store, aggregateID uuid.UUID, aggregateType, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		version, err := s.GetCurrentVersion(ctx, aggregateID)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		err = s.AppendEvents(ctx, aggregateID, aggregateType, version, []Event{{
			EventType: eventType,
			EventData: payload,
		}})
		if errors.Is(err, ErrConcurrencyConflict) {
			return struct{}{}, err
		}
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxAppendTries))
	return err
}
