package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
)

// defaultLookback bounds the first order poll when no watermark is stored
const defaultLookback = 24 * time.Hour

// Pusher writes the canonical ledger out to one platform. Implemented by
// the reconciliation engine.
type Pusher interface {
	Push(ctx context.Context, platform channel.PlatformCode) ([]channel.WriteResult, error)
}

// FanoutResult is the outcome of propagating an order to one connector
type FanoutResult struct {
	// Platform is the connector the ledger was pushed to
	Platform channel.PlatformCode `json:"platform"`
	// Results are the per-record write outcomes
	Results []channel.WriteResult `json:"results,omitempty"`
	// Error holds the push failure, when the whole push failed
	Error string `json:"error,omitempty"`
}

// Service accepts orders from webhooks, manual entry and polling. Every
// accepted order is appended to the audit trail, decremented from the
// canonical ledger with quantities clamped at zero, and fanned out to every
// ready connector. Fan-out failures are collected, never rolled back.
type Service struct {
	registry *channel.Registry
	ledger   channel.LedgerRepository
	audit    channel.OrderLog
	marks    channel.WatermarkStore
	pusher   Pusher
	logger   *zap.Logger
	now      func() time.Time
	lookback time.Duration
}

// NewService creates a new order service
func NewService(
	registry *channel.Registry,
	ledger channel.LedgerRepository,
	audit channel.OrderLog,
	marks channel.WatermarkStore,
	pusher Pusher,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry: registry,
		ledger:   ledger,
		audit:    audit,
		marks:    marks,
		pusher:   pusher,
		logger:   logger.Named("orders"),
		now:      time.Now,
		lookback: defaultLookback,
	}
}

// Accept translates a raw platform payload and processes the order.
func (s *Service) Accept(ctx context.Context, source channel.PlatformCode, raw []byte) ([]FanoutResult, error) {
	connector, err := s.registry.Get(source)
	if err != nil {
		return nil, err
	}
	order, err := connector.TranslateOrder(raw)
	if err != nil {
		return nil, err
	}
	return s.process(ctx, order)
}

// AcceptManual processes an operator-entered order. Items without a sku
// are dropped, matching platform order translation.
func (s *Service) AcceptManual(ctx context.Context, source channel.PlatformCode, items []channel.OrderItem, raw json.RawMessage) ([]FanoutResult, error) {
	kept := make([]channel.OrderItem, 0, len(items))
	for _, item := range items {
		if item.SKU != "" {
			kept = append(kept, item)
		}
	}
	return s.process(ctx, &channel.Order{
		Source:    source,
		OrderedAt: s.now(),
		Items:     kept,
		Raw:       raw,
	})
}

// Cancel records a cancelled order in the audit trail. Cancellations never
// restock: the decrement, if any happened, stands.
func (s *Service) Cancel(ctx context.Context, source channel.PlatformCode, raw []byte) error {
	connector, err := s.registry.Get(source)
	if err != nil {
		return err
	}
	order, err := connector.TranslateOrder(raw)
	if err != nil {
		return err
	}

	s.logger.Info("order cancelled",
		zap.String("source", source.String()),
		zap.Int("items", len(order.Items)))
	return s.audit.Append(ctx, []channel.OrderLogEntry{
		channel.NewOrderLogEntry(channel.OrderActionCancelled, order),
	})
}

// CheckOrders polls one platform for orders placed since the stored
// watermark and funnels each through the accept flow. The watermark is
// advanced before any order is processed, so a crash mid-batch drops the
// batch rather than processing it twice. Returns the number of orders seen.
func (s *Service) CheckOrders(ctx context.Context, platform channel.PlatformCode) (int, error) {
	connector, err := s.registry.Get(platform)
	if err != nil {
		return 0, err
	}
	poller, ok := connector.(channel.OrderPoller)
	if !ok {
		return 0, channel.ErrOrderPollUnsupported
	}

	since, err := s.marks.LoadWatermark(ctx, platform)
	if errors.Is(err, channel.ErrWatermarkNotFound) {
		since = s.now().Add(-s.lookback)
	} else if err != nil {
		return 0, err
	}

	if err := s.marks.SaveWatermark(ctx, platform, s.now()); err != nil {
		return 0, err
	}

	found, err := poller.FetchOrders(ctx, since)
	if err != nil {
		return 0, err
	}

	for i := range found {
		if _, err := s.process(ctx, &found[i]); err != nil {
			s.logger.Error("polled order failed",
				zap.String("platform", platform.String()),
				zap.Error(err))
		}
	}
	return len(found), nil
}

func (s *Service) process(ctx context.Context, order *channel.Order) ([]FanoutResult, error) {
	if err := s.audit.Append(ctx, []channel.OrderLogEntry{
		channel.NewOrderLogEntry(channel.OrderActionCreated, order),
	}); err != nil {
		return nil, err
	}

	canonical, err := s.ledger.GetInventory(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.ReplaceInventory(ctx, decrement(canonical, order.Items)); err != nil {
		return nil, err
	}

	s.logger.Info("order accepted",
		zap.String("source", order.Source.String()),
		zap.Int("items", len(order.Items)))
	return s.fanout(ctx), nil
}

// decrement subtracts the ordered quantities from the snapshot, clamping
// each resulting quantity at zero.
func decrement(snapshot *channel.Snapshot, items []channel.OrderItem) *channel.Snapshot {
	records := make([]channel.InventoryRecord, len(snapshot.Records))
	copy(records, snapshot.Records)
	for _, item := range items {
		for i := range records {
			if records[i].SKU != item.SKU {
				continue
			}
			records[i].Quantity -= item.Quantity
			if records[i].Quantity < 0 {
				records[i].Quantity = 0
			}
		}
	}
	return channel.NewSnapshot(snapshot.Source, records)
}

// fanout pushes the ledger to every ready connector concurrently, collecting
// one result per connector. A failing connector never blocks the others.
func (s *Service) fanout(ctx context.Context) []FanoutResult {
	ready := s.registry.ListReady()
	results := make([]FanoutResult, len(ready))

	p := pool.New().WithContext(ctx)
	for i, connector := range ready {
		i, platform := i, connector.Platform()
		p.Go(func(ctx context.Context) error {
			writes, err := s.pusher.Push(ctx, platform)
			results[i] = FanoutResult{Platform: platform, Results: writes}
			if err != nil {
				results[i].Error = err.Error()
				s.logger.Warn("order fan-out push failed",
					zap.String("platform", platform.String()),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = p.Wait()
	return results
}
