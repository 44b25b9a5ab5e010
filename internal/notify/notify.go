// Package notify emits fire-and-forget delivery intents to the external
// notifier. Emit failures are logged and never propagated: notification
// delivery must not block or roll back an admission or moderation
// transaction.
package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/queue"
)

// Emitter publishes notification intents.
type Emitter interface {
	WaitlistJoined(ctx context.Context, eventID, entryID uuid.UUID, email string)
	StatusChanged(ctx context.Context, eventID uuid.UUID, entryID *uuid.UUID, email string)
}

// QueueEmitter publishes intents onto the Redis job queue.
type QueueEmitter struct {
	queue  *queue.Queue
	logger *zap.Logger
}

// NewQueueEmitter creates a queue-backed emitter.
func NewQueueEmitter(q *queue.Queue, logger *zap.Logger) *QueueEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueEmitter{queue: q, logger: logger}
}

// WaitlistJoined enqueues a waitlist-joined intent.
func (e *QueueEmitter) WaitlistJoined(ctx context.Context, eventID, entryID uuid.UUID, email string) {
	e.emit(ctx, queue.NotificationPayload{
		Kind:           models.NotificationWaitlistJoined,
		EventID:        eventID,
		EntryID:        &entryID,
		RecipientEmail: email,
	})
}

// StatusChanged enqueues a status-changed intent.
func (e *QueueEmitter) StatusChanged(ctx context.Context, eventID uuid.UUID, entryID *uuid.UUID, email string) {
	e.emit(ctx, queue.NotificationPayload{
		Kind:           models.NotificationStatusChanged,
		EventID:        eventID,
		EntryID:        entryID,
		RecipientEmail: email,
	})
}

func (e *QueueEmitter) emit(ctx context.Context, payload queue.NotificationPayload) {
	if err := e.queue.EnqueueNotification(ctx, payload); err != nil {
		e.logger.Warn("notification intent dropped",
			zap.String("kind", payload.Kind),
			zap.String("event_id", payload.EventID.String()),
			zap.Error(err),
		)
	}
}

// Nop discards all intents. Used when Redis is not configured and in tests.
type Nop struct{}

func (Nop) WaitlistJoined(context.Context, uuid.UUID, uuid.UUID, string) {}

func (Nop) StatusChanged(context.Context, uuid.UUID, *uuid.UUID, string) {}
