package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
)

// OrderChecker polls one platform for new orders. Implemented by the order
// service.
type OrderChecker interface {
	CheckOrders(ctx context.Context, platform channel.PlatformCode) (int, error)
}

// OrderPollTriggerConfig holds configuration for the order poll trigger
type OrderPollTriggerConfig struct {
	// Interval is how often watched platforms are polled
	Interval time.Duration
}

// DefaultOrderPollTriggerConfig returns default order poll trigger configuration
func DefaultOrderPollTriggerConfig() OrderPollTriggerConfig {
	return OrderPollTriggerConfig{Interval: time.Hour}
}

// OrderPollTrigger periodically invokes CheckOrders for every pollable
// platform whose watching flag is set. The flag is persisted, so polling
// resumes across restarts without re-arming.
type OrderPollTrigger struct {
	config   OrderPollTriggerConfig
	registry *channel.Registry
	marks    channel.WatermarkStore
	checker  OrderChecker
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewOrderPollTrigger creates a new order poll trigger
func NewOrderPollTrigger(
	config OrderPollTriggerConfig,
	registry *channel.Registry,
	marks channel.WatermarkStore,
	checker OrderChecker,
	logger *zap.Logger,
) *OrderPollTrigger {
	if config.Interval <= 0 {
		config.Interval = DefaultOrderPollTriggerConfig().Interval
	}
	return &OrderPollTrigger{
		config:   config,
		registry: registry,
		marks:    marks,
		checker:  checker,
		logger:   logger.Named("order_poll"),
	}
}

// Start starts the poll loop
func (t *OrderPollTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("order poll trigger started",
		zap.Duration("interval", t.config.Interval))
	return nil
}

// Stop stops the poll loop, waiting for an in-flight tick to finish
func (t *OrderPollTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("order poll trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *OrderPollTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// tick polls every watched, pollable platform once
func (t *OrderPollTrigger) tick(ctx context.Context) {
	for _, connector := range t.registry.List() {
		if _, ok := connector.(channel.OrderPoller); !ok {
			continue
		}
		platform := connector.Platform()

		watching, err := t.marks.Watching(ctx, platform)
		if err != nil {
			t.logger.Error("failed to read watching flag",
				zap.String("platform", platform.String()),
				zap.Error(err))
			continue
		}
		if !watching || !connector.Ready() {
			continue
		}

		count, err := t.checker.CheckOrders(ctx, platform)
		if err != nil {
			t.logger.Error("order poll failed",
				zap.String("platform", platform.String()),
				zap.Error(err))
			continue
		}
		if count > 0 {
			t.logger.Info("orders polled",
				zap.String("platform", platform.String()),
				zap.Int("count", count))
		}
	}
}
