package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/observability"
)

// LocalDispatcher delivers an event to this instance's connections.
type LocalDispatcher interface {
	Dispatch(ctx context.Context, event models.Event) (DeliveryReport, error)
}

// RedisRelay publishes events on a Redis channel and dispatches every event
// received on it to the local registry, so a user connected to any instance
// receives events produced on any other.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   LocalDispatcher
	logger  *zap.Logger
}

type relayEnvelope struct {
	Type          models.EventType `json:"type"`
	Payload       json.RawMessage  `json:"payload"`
	TargetUserIDs []string         `json:"target_user_ids"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewRedisRelay constructs a relay over client.
func NewRedisRelay(client *redis.Client, channel string, local LocalDispatcher, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "lab-ops:notifications"
	}
	return &RedisRelay{client: client, channel: channel, local: local, logger: logger}
}

// Publish sends event to every subscribed instance, including this one.
func (r *RedisRelay) Publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}
	return nil
}

// Run subscribes to the channel and dispatches incoming events until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("notification relay subscribed", zap.String("channel", r.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, raw string) {
	event, err := decodeRelayEvent([]byte(raw))
	if err != nil {
		observability.CaptureErr(err)
		r.logger.Warn("dropping malformed relay event", zap.Error(err))
		return
	}
	if _, err := r.local.Dispatch(ctx, event); err != nil {
		r.logger.Warn("relay dispatch failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func decodeRelayEvent(raw []byte) (models.Event, error) {
	var env relayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Event{}, fmt.Errorf("decode relay event: %w", err)
	}
	event := models.Event{Type: env.Type, TargetUserIDs: env.TargetUserIDs, CreatedAt: env.CreatedAt}
	if len(env.Payload) > 0 {
		event.Payload = env.Payload
	}
	return event, nil
}
