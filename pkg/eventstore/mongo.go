package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// EventsCollection needs a unique index on {aggregateId, version}; that
	// index is what turns a lost race into ErrConcurrencyConflict.
	EventsCollection   = "events"
	CountersCollection = "counters"

	eventSequence = "events"
)

type eventDocument struct {
	ID            int64                  `bson:"_id"`
	AggregateID   string                 `bson:"aggregateId"`
	AggregateType string                 `bson:"aggregateType"`
	EventType     string                 `bson:"eventType"`
	EventData     string                 `bson:"eventData"`
	Metadata      map[string]interface{} `bson:"metadata,omitempty"`
	Version       int                    `bson:"version"`
	CreatedAt     time.Time              `bson:"createdAt"`
}

func (d eventDocument) event() (Event, error) {
	id, err := uuid.Parse(d.AggregateID)
	if err != nil {
		return Event{}, fmt.Errorf("decode aggregate id of event %d: %w", d.ID, err)
	}
	return Event{
		ID:            d.ID,
		AggregateID:   id,
		AggregateType: d.AggregateType,
		EventType:     d.EventType,
		EventData:     json.RawMessage(d.EventData),
		Metadata:      d.Metadata,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
	}, nil
}

// MongoStore is the MongoDB-backed Store. Event ids come from a counter
// document so histories read the same as from Postgres.
type MongoStore struct {
	events   *mongo.Collection
	counters *mongo.Collection
	tracer   trace.Tracer
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		events:   db.Collection(EventsCollection),
		counters: db.Collection(CountersCollection),
		tracer:   otel.Tracer("bookcourier/eventstore"),
	}
}

// AppendEvents checks expectedVersion and inserts the batch in one ordered
// insert. A concurrent writer that already took expectedVersion+1 trips the
// unique index on the first document, so nothing of the batch is written.
func (m *MongoStore) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	if expectedVersion < 0 {
		return ErrInvalidVersion
	}
	ctx, span := m.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	current, err := m.GetCurrentVersion(ctx, aggregateID)
	if err != nil {
		return err
	}
	if current != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", current),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}
	if len(events) == 0 {
		return nil
	}

	last, err := m.reserveIDs(ctx, len(events))
	if err != nil {
		return err
	}
	first := last - int64(len(events)) + 1
	now := time.Now().UTC()
	docs := make([]interface{}, len(events))
	for i, event := range events {
		docs[i] = eventDocument{
			ID:            first + int64(i),
			AggregateID:   aggregateID.String(),
			AggregateType: aggregateType,
			EventType:     event.EventType,
			EventData:     string(event.EventData),
			Metadata:      event.Metadata,
			Version:       expectedVersion + i + 1,
			CreatedAt:     now,
		}
	}

	if _, err := m.events.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("insert events: %w", err)
	}
	return nil
}

// reserveIDs advances the event sequence by n and returns its new value.
func (m *MongoStore) reserveIDs(ctx context.Context, n int) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := m.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: eventSequence}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(n)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("reserve event ids: %w", err)
	}
	return counter.Seq, nil
}

// LoadEvents returns an aggregate's events ordered by version. A toVersion of
// zero means no upper bound.
func (m *MongoStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	ctx, span := m.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	versions := bson.D{{Key: "$gte", Value: fromVersion}}
	if toVersion > 0 {
		versions = append(versions, bson.E{Key: "$lte", Value: toVersion})
	}
	filter := bson.D{
		{Key: "aggregateId", Value: aggregateID.String()},
		{Key: "version", Value: versions},
	}
	cur, err := m.events.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer cur.Close(ctx)

	var events []Event
	for cur.Next(ctx) {
		var doc eventDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		event, err := doc.event()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetCurrentVersion returns the latest version for an aggregate
func (m *MongoStore) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	var doc struct {
		Version int `bson:"version"`
	}
	err := m.events.FindOne(ctx,
		bson.D{{Key: "aggregateId", Value: aggregateID.String()}},
		options.FindOne().
			SetSort(bson.D{{Key: "version", Value: -1}}).
			SetProjection(bson.D{{Key: "version", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query version: %w", err)
	}
	return doc.Version, nil
}
