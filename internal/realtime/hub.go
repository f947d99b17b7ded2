package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

// ErrHubClosed is returned by Serve after Shutdown.
var ErrHubClosed = errors.New("realtime hub closed")

// Hub owns the registry and dispatcher for the lifetime of the process.
type Hub struct {
	registry   *Registry
	dispatcher *Dispatcher
	connCfg    ConnConfig
	logger     *zap.Logger
	metrics    Metrics

	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewHub constructs a hub. metrics may be nil.
func NewHub(connCfg ConnConfig, logger *zap.Logger, metrics Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	registry := NewRegistry()
	return &Hub{
		registry:   registry,
		dispatcher: NewDispatcher(registry, logger, metrics),
		connCfg:    connCfg.withDefaults(),
		logger:     logger,
		metrics:    metrics,
	}
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Serve registers socket for userID and blocks while it is live. The
// connection is unregistered when either pump exits.
func (h *Hub) Serve(userID string, socket Socket) error {
	if h.closed.Load() {
		_ = socket.Close()
		return ErrHubClosed
	}
	h.wg.Add(1)
	defer h.wg.Done()

	conn := NewConn(userID, socket, h.connCfg, h.logger)
	h.registry.Register(userID, conn)
	h.metrics.ConnectionOpened()
	if h.closed.Load() {
		conn.Close()
	}
	h.logger.Debug("socket connected", zap.String("user_id", userID), zap.Uint64("conn_id", conn.ID()))

	conn.Run()

	if h.registry.Unregister(userID, conn) {
		h.metrics.ConnectionClosed()
	}
	h.logger.Debug("socket disconnected", zap.String("user_id", userID), zap.Uint64("conn_id", conn.ID()))
	return nil
}

// Dispatch delivers an event to the local registry.
func (h *Hub) Dispatch(ctx context.Context, event models.Event) (DeliveryReport, error) {
	return h.dispatcher.Dispatch(ctx, event)
}

// Publish satisfies the notification publisher contract for single-instance deployments.
func (h *Hub) Publish(ctx context.Context, event models.Event) error {
	report, err := h.Dispatch(ctx, event)
	if err != nil {
		return err
	}
	h.logger.Debug("event dispatched",
		zap.String("event_type", string(report.EventType)),
		zap.Int("targets", report.Targets),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
	)
	return nil
}

// Shutdown refuses new connections, closes live ones and waits for their
// pumps to exit or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	closed := h.registry.CloseAll()
	for i := 0; i < closed; i++ {
		h.metrics.ConnectionClosed()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.logger.Info("realtime hub stopped", zap.Int("connections_closed", closed))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
