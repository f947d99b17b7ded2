package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/jobs"
	"github.com/noah-isme/lab-ops-api/pkg/middleware/requestid"
)

const notificationJobType = "notification.dispatch"

// Publisher delivers an event to live connections. *realtime.Hub publishes to
// the local registry; *realtime.RedisRelay fans out across instances.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

type dropRecorder interface {
	EventDropped()
}

// NotificationConfig sizes the dispatch worker pool.
type NotificationConfig struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService decouples state changes from delivery. Notify never
// blocks the caller and never fails it: a saturated queue drops the event.
type NotificationService struct {
	queue     *jobs.Queue
	publisher Publisher
	metrics   dropRecorder
	logger    *zap.Logger
}

// NewNotificationService wires a worker queue in front of publisher. metrics may be nil.
func NewNotificationService(publisher Publisher, cfg NotificationConfig, metrics dropRecorder, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{publisher: publisher, metrics: metrics, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		JobTimeout: 10 * time.Second,
		Logger:     logger,
	})
	return svc
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the workers to exit. Undelivered events are discarded.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Stats exposes queue counters.
func (s *NotificationService) Stats() jobs.Stats {
	return s.queue.Stats()
}

// Notify enqueues event for delivery. Events without targets are ignored.
func (s *NotificationService) Notify(ctx context.Context, event models.Event) {
	if len(event.TargetUserIDs) == 0 {
		return
	}
	err := s.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: notificationJobType, Payload: event})
	if err == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.EventDropped()
	}
	level := s.logger.Warn
	if errors.Is(err, jobs.ErrQueueStopped) {
		level = s.logger.Debug
	}
	level("notification dropped",
		zap.String("event_type", string(event.Type)),
		zap.Int("targets", len(event.TargetUserIDs)),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.Error(err),
	)
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.Event)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
