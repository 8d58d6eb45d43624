package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TypeOffersRefresh reloads the offer snapshot from the database into the cache.
const TypeOffersRefresh = "offers:refresh"

// Queue names.
const (
	QueueDefault = "default"
	QueueOffers  = "offers"
)

// RefreshPayload describes why a refresh was requested. asynq derives the
// uniqueness key from the payload, so it carries no timestamps.
type RefreshPayload struct {
	Reason string `json:"reason"`
}

// NewOffersRefreshTask builds a refresh task. Tasks with the same reason
// enqueued within the unique window collapse into one.
func NewOffersRefreshTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(RefreshPayload{Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("marshal refresh payload: %w", err)
	}
	return asynq.NewTask(TypeOffersRefresh, payload,
		asynq.Queue(QueueOffers),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Unique(30*time.Second),
	), nil
}

// Reloader reloads offers from the source of truth.
type Reloader interface {
	Reload(ctx context.Context) error
}

// HandleOffersRefresh returns the asynq handler for TypeOffersRefresh.
func HandleOffersRefresh(reloader Reloader, logger zerolog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p RefreshPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &p); err != nil {
				return fmt.Errorf("decode refresh payload: %v: %w", err, asynq.SkipRetry)
			}
		}
		if err := reloader.Reload(ctx); err != nil {
			logger.Error().Err(err).Str("reason", p.Reason).Msg("offer refresh task failed")
			return err
		}
		logger.Info().Str("reason", p.Reason).Msg("offer snapshot reloaded")
		return nil
	}
}

// NewServeMux routes every task type the worker understands.
func NewServeMux(reloader Reloader, logger zerolog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeOffersRefresh, HandleOffersRefresh(reloader, logger))
	return mux
}

// RegisterSchedule enqueues a refresh task on cronspec, e.g. "@every 1m".
func RegisterSchedule(s *asynq.Scheduler, cronspec string) (string, error) {
	task, err := NewOffersRefreshTask("schedule")
	if err != nil {
		return "", err
	}
	id, err := s.Register(cronspec, task)
	if err != nil {
		return "", fmt.Errorf("register %s schedule %q: %w", TypeOffersRefresh, cronspec, err)
	}
	return id, nil
}

// Enqueuer publishes refresh requests.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueRefresh asks the worker to reload offers. A refresh that is already
// queued is not an error.
func (e Enqueuer) EnqueueRefresh(ctx context.Context, reason string) error {
	task, err := NewOffersRefreshTask(reason)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", TypeOffersRefresh, err)
	}
	return nil
}
