package realtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

// Metrics receives dispatch and connection counters.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	EventDispatched(eventType string, delivered int)
	DeliveryFailed()
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened()           {}
func (noopMetrics) ConnectionClosed()           {}
func (noopMetrics) EventDispatched(string, int) {}
func (noopMetrics) DeliveryFailed()             {}

// DeliveryReport summarises one dispatch.
type DeliveryReport struct {
	EventType models.EventType `json:"event_type"`
	Targets   int              `json:"targets"`
	Delivered int              `json:"delivered"`
	Failed    int              `json:"failed"`
}

// Dispatcher fans events out to the registry's live connections.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
	metrics  Metrics
}

// NewDispatcher constructs a dispatcher over registry.
func NewDispatcher(registry *Registry, logger *zap.Logger, metrics Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Dispatcher{registry: registry, logger: logger, metrics: metrics}
}

// Dispatch encodes event once and offers the same frame to every live
// connection of every target. A connection that cannot accept the frame is
// closed and unregistered; the failure is logged and counted, never returned.
// The only error is an event that cannot be encoded.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.Event) (DeliveryReport, error) {
	report := DeliveryReport{EventType: event.Type, Targets: len(event.TargetUserIDs)}
	frame, err := encode(Message{Type: string(event.Type), Payload: event.Payload})
	if err != nil {
		return report, fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	for _, userID := range event.TargetUserIDs {
		if ctx.Err() != nil {
			break
		}
		for _, conn := range d.registry.Connections(userID) {
			if err := conn.Offer(frame); err != nil {
				report.Failed++
				d.drop(userID, conn, event.Type, err)
				continue
			}
			report.Delivered++
		}
	}
	d.metrics.EventDispatched(string(event.Type), report.Delivered)
	return report, nil
}

func (d *Dispatcher) drop(userID string, conn Connection, eventType models.EventType, cause error) {
	conn.Close()
	if d.registry.Unregister(userID, conn) {
		d.metrics.ConnectionClosed()
	}
	d.metrics.DeliveryFailed()
	d.logger.Warn("notification delivery failed",
		zap.String("user_id", userID),
		zap.Uint64("conn_id", conn.ID()),
		zap.String("event_type", string(eventType)),
		zap.Error(appErrors.Wrap(cause, appErrors.ErrTransientDelivery.Code, appErrors.ErrTransientDelivery.Status, "connection dropped")),
	)
}
