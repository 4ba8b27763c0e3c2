package snapcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"retail-order-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Cache is the local snapshot store: a Redis-backed read cache holding the
// last-applied replicated state per aggregate, keyed by natural key. It is
// written by the event consumers and the snapshot-backed client, and read by
// the order saga. Snapshots are never deleted here; a newer version simply
// overwrites the old one.
type Cache struct {
	rdb *redis.Client
}

// NewCache connects to Redis and verifies the connection
func NewCache(addr, password string, db int) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Cache{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Cache) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("snapshot read failed for %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("snapshot decode failed for %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) save(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshot encode failed for %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("snapshot write failed for %s: %w", key, err)
	}
	return nil
}

// GetProduct returns the cached product snapshot for a SKU, or found=false
func (c *Cache) GetProduct(ctx context.Context, sku string) (*models.ProductSnapshot, bool, error) {
	var snap models.ProductSnapshot
	found, err := c.get(ctx, "snapshot:product:"+sku, &snap)
	if !found || err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

// SaveProduct upserts a product snapshot
func (c *Cache) SaveProduct(ctx context.Context, snap *models.ProductSnapshot) error {
	return c.save(ctx, "snapshot:product:"+snap.SKU, snap)
}

// GetCategory returns the cached category snapshot for a name, or found=false
func (c *Cache) GetCategory(ctx context.Context, name string) (*models.CategorySnapshot, bool, error) {
	var snap models.CategorySnapshot
	found, err := c.get(ctx, "snapshot:category:"+name, &snap)
	if !found || err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

// SaveCategory upserts a category snapshot
func (c *Cache) SaveCategory(ctx context.Context, snap *models.CategorySnapshot) error {
	return c.save(ctx, "snapshot:category:"+snap.Name, snap)
}

// GetInventory returns the cached inventory snapshot for a SKU, or found=false
func (c *Cache) GetInventory(ctx context.Context, productSKU string) (*models.InventorySnapshot, bool, error) {
	var snap models.InventorySnapshot
	found, err := c.get(ctx, "snapshot:inventory:"+productSKU, &snap)
	if !found || err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

// SaveInventory upserts an inventory snapshot
func (c *Cache) SaveInventory(ctx context.Context, snap *models.InventorySnapshot) error {
	return c.save(ctx, "snapshot:inventory:"+snap.ProductSKU, snap)
}
