package service

import (
	"context"
	"encoding/json"

	"retail-order-service/internal/broker"
	"retail-order-service/internal/models"
	"retail-order-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// The snapshot consumers replicate catalog aggregates into the local cache.
// Each handles one envelope at a time per partition key. Events are dropped
// without applying when the id was already processed (duplicate delivery)
// or when the envelope version is not newer than the cached snapshot
// (stale); both are counted, neither is an error. Processing failures are
// swallowed: the event is counted as failed and acknowledged, relying on a
// later, newer event to correct the cache.

// seen returns true when the event id is already in the processed ledger.
// A ledger read failure counts as a processing failure.
func seen(ctx context.Context, ledger ProcessedLedger, env *models.Envelope, domain string) (bool, bool) {
	processed, err := ledger.IsEventProcessed(ctx, env.EventID)
	if err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		return false, false
	}
	if processed {
		util.SnapshotEventsDuplicate.WithLabelValues(domain).Inc()
		return true, true
	}
	return false, true
}

func markProcessed(ctx context.Context, ledger ProcessedLedger, env *models.Envelope, logger *zap.Logger) {
	if err := ledger.MarkEventProcessed(ctx, env.EventID, env.EventType); err != nil {
		// the event was applied; a lost dedup mark only risks a future
		// duplicate, which the version gate turns into a stale no-op
		logger.Error("Failed to mark event processed",
			zap.String("event_id", env.EventID), zap.Error(err))
	}
}

// ProductEventConsumer applies product snapshot events
type ProductEventConsumer struct {
	cache  ProductCache
	ledger ProcessedLedger
	logger *zap.Logger
}

// NewProductEventConsumer creates a product snapshot consumer
func NewProductEventConsumer(cache ProductCache, ledger ProcessedLedger) *ProductEventConsumer {
	return &ProductEventConsumer{cache: cache, ledger: ledger, logger: util.GetLogger()}
}

// Handle applies one product envelope. Always returns nil: failures are
// swallowed by policy.
func (c *ProductEventConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	const domain = "products"

	env, err := broker.DecodeEnvelope(msg.Value)
	if err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Undecodable product event", zap.Error(err))
		return nil
	}

	if dup, ok := seen(ctx, c.ledger, env, domain); dup || !ok {
		return nil
	}

	var payload models.ProductSnapshot
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Undecodable product payload",
			zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	payload.Version = env.Version

	existing, found, err := c.cache.GetProduct(ctx, payload.SKU)
	if err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Product snapshot lookup failed",
			zap.String("sku", payload.SKU), zap.Error(err))
		return nil
	}

	if found && env.Version <= existing.Version {
		util.SnapshotEventsIgnoredStale.WithLabelValues(domain).Inc()
	} else {
		if err := c.cache.SaveProduct(ctx, &payload); err != nil {
			util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
			c.logger.Error("Product snapshot write failed",
				zap.String("sku", payload.SKU), zap.Error(err))
			return nil
		}
		util.SnapshotEventsConsumed.WithLabelValues(domain).Inc()
	}

	markProcessed(ctx, c.ledger, env, c.logger)
	return nil
}

// CategoryEventConsumer applies category snapshot events
type CategoryEventConsumer struct {
	cache  CategoryCache
	ledger ProcessedLedger
	logger *zap.Logger
}

// NewCategoryEventConsumer creates a category snapshot consumer
func NewCategoryEventConsumer(cache CategoryCache, ledger ProcessedLedger) *CategoryEventConsumer {
	return &CategoryEventConsumer{cache: cache, ledger: ledger, logger: util.GetLogger()}
}

// Handle applies one category envelope
func (c *CategoryEventConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	const domain = "categories"

	env, err := broker.DecodeEnvelope(msg.Value)
	if err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Undecodable category event", zap.Error(err))
		return nil
	}

	if dup, ok := seen(ctx, c.ledger, env, domain); dup || !ok {
		return nil
	}

	var payload models.CategorySnapshot
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Undecodable category payload",
			zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	payload.Version = env.Version

	existing, found, err := c.cache.GetCategory(ctx, payload.Name)
	if err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Category snapshot lookup failed",
			zap.String("name", payload.Name), zap.Error(err))
		return nil
	}

	if found && env.Version <= existing.Version {
		util.SnapshotEventsIgnoredStale.WithLabelValues(domain).Inc()
	} else {
		if err := c.cache.SaveCategory(ctx, &payload); err != nil {
			util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
			c.logger.Error("Category snapshot write failed",
				zap.String("name", payload.Name), zap.Error(err))
			return nil
		}
		util.SnapshotEventsConsumed.WithLabelValues(domain).Inc()
	}

	markProcessed(ctx, c.ledger, env, c.logger)
	return nil
}

// InventoryEventConsumer applies inventory snapshot events
type InventoryEventConsumer struct {
	cache  InventoryCache
	ledger ProcessedLedger
	logger *zap.Logger
}

// NewInventoryEventConsumer creates an inventory snapshot consumer
func NewInventoryEventConsumer(cache InventoryCache, ledger ProcessedLedger) *InventoryEventConsumer {
	return &InventoryEventConsumer{cache: cache, ledger: ledger, logger: util.GetLogger()}
}

// Handle applies one inventory envelope
func (c *InventoryEventConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	const domain = "inventory"

	env, err := broker.DecodeEnvelope(msg.Value)
	if err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Undecodable inventory event", zap.Error(err))
		return nil
	}

	if dup, ok := seen(ctx, c.ledger, env, domain); dup || !ok {
		return nil
	}

	var payload models.InventorySnapshot
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Undecodable inventory payload",
			zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	payload.Version = env.Version

	existing, found, err := c.cache.GetInventory(ctx, payload.ProductSKU)
	if err != nil {
		util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
		c.logger.Error("Inventory snapshot lookup failed",
			zap.String("sku", payload.ProductSKU), zap.Error(err))
		return nil
	}

	if found && env.Version <= existing.Version {
		util.SnapshotEventsIgnoredStale.WithLabelValues(domain).Inc()
	} else {
		if err := c.cache.SaveInventory(ctx, &payload); err != nil {
			util.SnapshotEventsFailed.WithLabelValues(domain).Inc()
			c.logger.Error("Inventory snapshot write failed",
				zap.String("sku", payload.ProductSKU), zap.Error(err))
			return nil
		}
		util.SnapshotEventsConsumed.WithLabelValues(domain).Inc()
	}

	markProcessed(ctx, c.ledger, env, c.logger)
	return nil
}
