package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
)

// Engine reconciles connector snapshots against the canonical ledger. The
// ledger is authoritative only for the skus it tracks; remote-only and
// unmanaged records are never created, deleted or resized by the engine.
type Engine struct {
	ledger   channel.LedgerRepository
	registry *channel.Registry
	logger   *zap.Logger
}

// NewEngine creates a new reconciliation engine
func NewEngine(ledger channel.LedgerRepository, registry *channel.Registry, logger *zap.Logger) *Engine {
	return &Engine{
		ledger:   ledger,
		registry: registry,
		logger:   logger.Named("reconcile"),
	}
}

// Diff computes the per-sku changes needed to move remote toward canonical.
// Only skus present on both sides are compared; zero-change entries are
// dropped, so a remote already matching the ledger yields an empty delta.
func Diff(canonical, remote *channel.Snapshot) channel.Delta {
	var delta channel.Delta
	for _, record := range remote.Records {
		if !record.Managed() {
			continue
		}
		want, tracked := canonical.Find(record.SKU)
		if !tracked || want.Quantity == record.Quantity {
			continue
		}
		delta = append(delta, channel.DeltaEntry{
			SKU:    record.SKU,
			Target: want.Quantity,
			Change: want.Quantity - record.Quantity,
		})
	}
	return delta
}

// View fetches a connector's current snapshot without touching the ledger.
func (e *Engine) View(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error) {
	connector, err := e.registry.Get(platform)
	if err != nil {
		return nil, err
	}
	return connector.FetchSnapshot(ctx)
}

// Sync pulls a connector's snapshot and overwrites the canonical ledger
// with its managed records.
func (e *Engine) Sync(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error) {
	connector, err := e.registry.Get(platform)
	if err != nil {
		return nil, err
	}

	remote, err := connector.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := remote.Validate(); err != nil {
		return nil, err
	}
	if err := e.ledger.ReplaceInventory(ctx, remote); err != nil {
		return nil, err
	}

	e.logger.Info("ledger synced from connector",
		zap.String("platform", platform.String()),
		zap.Int("records", len(remote.Records)))
	return remote, nil
}

// Push diffs the canonical ledger against a connector's snapshot and writes
// the resulting delta to the platform. A second push with no canonical
// change yields zero writes.
func (e *Engine) Push(ctx context.Context, platform channel.PlatformCode) ([]channel.WriteResult, error) {
	connector, err := e.registry.Get(platform)
	if err != nil {
		return nil, err
	}

	canonical, err := e.ledger.GetInventory(ctx)
	if err != nil {
		return nil, err
	}
	remote, err := connector.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	delta := Diff(canonical, remote)
	if delta.Empty() {
		e.logger.Info("push is a no-op", zap.String("platform", platform.String()))
		return []channel.WriteResult{}, nil
	}

	results, err := connector.ApplyDelta(ctx, delta)
	if err != nil {
		return nil, err
	}

	e.logger.Info("delta pushed to connector",
		zap.String("platform", platform.String()),
		zap.Int("changes", len(delta)))
	return results, nil
}

// Pull archives a connector's snapshot to the ledger history without
// touching the canonical rows.
func (e *Engine) Pull(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error) {
	connector, err := e.registry.Get(platform)
	if err != nil {
		return nil, err
	}

	remote, err := connector.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Archive(ctx, remote); err != nil {
		return nil, err
	}

	e.logger.Info("connector snapshot archived",
		zap.String("platform", platform.String()),
		zap.Int("records", len(remote.Records)))
	return remote, nil
}
