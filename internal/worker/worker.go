// Package worker dispatches queued notification intents. Delivery here
// means handing the intent to the downstream notifier and recording the
// outcome; the admission and moderation transactions have long since
// committed by the time a job is picked up.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/notifications"
	"github.com/gatherly/backend/pkg/queue"
)

// Sender delivers one notification to its recipient. The default
// implementation only logs; real deployments plug in an email provider.
type Sender interface {
	Send(ctx context.Context, payload queue.NotificationPayload) error
}

// LogSender logs deliveries instead of sending them.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the would-be delivery.
func (s LogSender) Send(_ context.Context, payload queue.NotificationPayload) error {
	s.Logger.Info("notification delivered",
		zap.String("kind", payload.Kind),
		zap.String("recipient", payload.RecipientEmail),
		zap.String("event_id", payload.EventID.String()),
	)
	return nil
}

// Dispatcher processes notification jobs: send, then record in the delivery
// log. Failed jobs are retried with backoff and parked in the DLQ.
type Dispatcher struct {
	queue  *queue.Queue
	repo   *notifications.Repository
	sender Sender
	logger *zap.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(q *queue.Queue, repo *notifications.Repository, sender Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	return &Dispatcher{queue: q, repo: repo, sender: sender, logger: logger}
}

// Process executes one notification job.
func (d *Dispatcher) Process(ctx context.Context, job *queue.Job) error {
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	log := &models.NotificationLog{
		EventID:        &payload.EventID,
		EntryID:        payload.EntryID,
		Kind:           payload.Kind,
		RecipientEmail: payload.RecipientEmail,
	}
	if err := d.sender.Send(ctx, payload); err != nil {
		now := time.Now().UTC()
		log.Status = models.NotificationStatusFailed
		log.SentAt = &now
		log.ErrorMessage = err.Error()
		if logErr := d.repo.Insert(ctx, log); logErr != nil {
			d.logger.Error("record failed delivery", zap.Error(logErr))
		}
		return fmt.Errorf("send notification: %w", err)
	}

	now := time.Now().UTC()
	log.Status = models.NotificationStatusSent
	log.SentAt = &now
	if err := d.repo.Insert(ctx, log); err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		d.logger.Debug("processing job", zap.String("job_id", job.ID))
		if err := d.Process(ctx, job); err != nil {
			d.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := d.queue.Retry(ctx, job); reErr != nil {
				d.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
