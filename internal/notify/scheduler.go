package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jobelinc/stocktrack/internal/events"
	"github.com/jobelinc/stocktrack/internal/tenant"
)

// TaskTypeEvent is the asynq task type carrying one domain event.
const TaskTypeEvent = "notify:event"

// QueueName is the asynq queue alert tasks are routed to.
const QueueName = "notify"

// eventTask is the wire payload handed to the worker. The tenant slug rides
// along because the worker processes tasks outside any request scope.
type eventTask struct {
	Tenant string       `json:"tenant"`
	Event  events.Event `json:"event"`
}

// Scheduler enqueues emitted events onto asynq for asynchronous delivery.
type Scheduler struct {
	Client     *asynq.Client
	MaxRetry   int
	TopicAllow map[string]bool
}

// Schedule implements the events.Scheduler interface.
func (s Scheduler) Schedule(ctx context.Context, event events.Event) error {
	if s.Client == nil {
		return nil
	}
	if s.TopicAllow != nil && !s.TopicAllow[event.Topic] {
		return nil
	}
	slug, _ := tenant.From(ctx)
	payload, err := json.Marshal(eventTask{Tenant: slug, Event: event})
	if err != nil {
		return err
	}
	maxRetry := s.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	task := asynq.NewTask(TaskTypeEvent, payload)
	_, err = s.Client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(maxRetry),
		asynq.TaskID(event.ID.String()),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// already enqueued for this event, nothing to do
		return nil
	}
	return err
}

var _ events.Scheduler = Scheduler{}
