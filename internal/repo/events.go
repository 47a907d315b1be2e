package repo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jobelinc/stocktrack/internal/events"
	"github.com/jobelinc/stocktrack/internal/tenant"
)

// EventsRepo persists domain events for the event bus.
type EventsRepo struct {
	DB *DB
}

// InsertDomainEvent writes one event row and returns it with its generated
// id and timestamp. The tenant slug is stored alongside so the worker can
// route alerts without re-resolving context.
func (r EventsRepo) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload json.RawMessage) (events.Event, error) {
	slug, _ := tenant.From(ctx)
	ev := events.Event{Topic: topic, AggregateID: aggregateID, Payload: payload}
	err := r.DB.q(ctx).QueryRow(ctx, `
		INSERT INTO domain_events (tenant_slug, topic, aggregate_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, occurred_at`,
		slug, topic, aggregateID, payload).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return events.Event{}, err
	}
	return ev, nil
}

// ListByTopic returns recent events for one topic, newest first.
func (r EventsRepo) ListByTopic(ctx context.Context, topic string, limit int32) ([]events.Event, error) {
	slug, _ := tenant.From(ctx)
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT id, topic, aggregate_id, payload, occurred_at
		FROM domain_events
		WHERE tenant_slug = $1 AND topic = $2
		ORDER BY occurred_at DESC
		LIMIT $3`, slug, topic, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var ev events.Event
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

var _ events.EventStore = EventsRepo{}
