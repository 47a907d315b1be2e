package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jobelinc/stocktrack/internal/lock"
	"github.com/jobelinc/stocktrack/internal/resilience"
	"github.com/jobelinc/stocktrack/internal/tenant"
)

// Worker consumes notify tasks and sends the alert emails. A distributed
// lock per event keeps duplicate deliveries out when multiple workers run,
// and an optional circuit breaker sheds load when the mail relay misbehaves.
type Worker struct {
	Alerter EmailAlerter
	Locker  lock.Locker
	Breaker *resilience.Breaker
	LockTTL time.Duration
	Log     zerolog.Logger
}

// Handle processes one asynq task.
func (w Worker) Handle(ctx context.Context, task *asynq.Task) error {
	var payload eventTask
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("notify worker: decode task: %w", err)
	}
	ctx = tenant.With(ctx, payload.Tenant)

	ttl := w.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key := fmt.Sprintf("lock:notify:%s", payload.Event.ID)
	err := w.Locker.WithLock(ctx, key, ttl, func(ctx context.Context) error {
		if w.Breaker != nil && !w.Breaker.Allow(ctx) {
			return resilience.ErrOpenCircuit
		}
		sendErr := w.Alerter.Notify(ctx, payload.Event)
		if w.Breaker != nil {
			w.Breaker.Report(ctx, sendErr == nil)
		}
		return sendErr
	})
	if err != nil {
		w.Log.Error().Err(err).
			Str("topic", payload.Event.Topic).
			Str("event_id", payload.Event.ID.String()).
			Msg("alert delivery failed")
		return err
	}
	w.Log.Info().
		Str("topic", payload.Event.Topic).
		Str("event_id", payload.Event.ID.String()).
		Msg("alert delivered")
	return nil
}
