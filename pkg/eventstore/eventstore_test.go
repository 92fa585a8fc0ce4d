package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcourier/internal/storetest"
)

// setupTestDB attempts to connect to a PostgreSQL database for testing.
// It skips the test if the connection cannot be established.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("could not connect to postgres: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			aggregate_id UUID NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data JSONB NOT NULL,
			metadata JSONB,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (aggregate_id, version)
		);
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

type testEvent struct {
	Message string `json:"message"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemoryStore()}
	if os.Getenv("TEST_DATABASE_URL") != "" {
		db := setupTestDB(t)
		t.Cleanup(func() { db.Close() })
		out["postgres"] = NewEventStore(db)
	}
	if os.Getenv("TEST_MONGO_URI") != "" {
		out["mongo"] = NewMongoStore(storetest.Mongo(t))
	}
	return out
}

func TestAppendEventsVersioning(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()
			data, _ := json.Marshal(testEvent{Message: "placed"})

			require.NoError(t, store.AppendEvents(ctx, id, "order", 0, []Event{{EventType: "OrderPlaced", EventData: data}}))
			err := store.AppendEvents(ctx, id, "order", 0, []Event{{EventType: "OrderPlaced", EventData: data}})
			assert.ErrorIs(t, err, ErrConcurrencyConflict)

			require.NoError(t, store.AppendEvents(ctx, id, "order", 1, []Event{
				{EventType: "OrderStatusChanged", EventData: data},
				{EventType: "OrderPaymentChanged", EventData: data},
			}))

			version, err := store.GetCurrentVersion(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 3, version)

			events, err := store.LoadEvents(ctx, id, 2, 0)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, "OrderStatusChanged", events[0].EventType)
			assert.Equal(t, 3, events[1].Version)

			assert.ErrorIs(t, store.AppendEvents(ctx, id, "order", -1, nil), ErrInvalidVersion)
		})
	}
}

func TestAppendRetriesConcurrentWriters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- Append(ctx, store, id, "order", "OrderStatusChanged", testEvent{Message: fmt.Sprintf("writer %d", i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	events, err := store.LoadEvents(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	for i, event := range events {
		assert.Equal(t, i+1, event.Version)
	}
}

func BenchmarkAppendEvents(b *testing.B) {
	db := setupTestDB(b)
	defer db.Close()
	store := NewEventStore(db)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		aggregateID := uuid.New()
		eventData, _ := json.Marshal(testEvent{Message: fmt.Sprintf("event %d", i)})
		events := []Event{{EventType: "OrderPlaced", EventData: eventData}}
		b.StartTimer()

		if err := store.AppendEvents(context.Background(), aggregateID, "order", 0, events); err != nil {
			b.Fatalf("AppendEvents failed: %v", err)
		}
	}
}
