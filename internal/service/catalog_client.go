package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"retail-order-service/internal/models"
	"retail-order-service/internal/resilience"
	"retail-order-service/internal/util"

	"go.uber.org/zap"
)

// CatalogClient reads replicated aggregates owned by the inventory service.
// Reads are cache-first: a hit returns immediately with no network call; a
// miss goes through a per-operation circuit breaker + retry executor, and a
// wrapper fallback serves the last cached copy or a sentinel-version
// snapshot. Callers must check for negative (sentinel) versions before
// trusting a snapshot for pricing or availability.
type CatalogClient struct {
	baseURL string
	http    *http.Client

	products   ProductCache
	categories CategoryCache
	inventory  InventoryCache

	productExec   *resilience.Executor
	categoryExec  *resilience.Executor
	inventoryExec *resilience.Executor

	logger *zap.Logger
}

// NewCatalogClient creates a catalog client. Each executor holds the shared
// breaker for its remote operation.
func NewCatalogClient(
	baseURL string,
	timeout time.Duration,
	products ProductCache,
	categories CategoryCache,
	inventory InventoryCache,
	productExec, categoryExec, inventoryExec *resilience.Executor,
) *CatalogClient {
	return &CatalogClient{
		baseURL:       baseURL,
		http:          &http.Client{Timeout: timeout},
		products:      products,
		categories:    categories,
		inventory:     inventory,
		productExec:   productExec,
		categoryExec:  categoryExec,
		inventoryExec: inventoryExec,
		logger:        util.GetLogger(),
	}
}

func (c *CatalogClient) fetchJSON(ctx context.Context, url string, dest interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("catalog returned %d for %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return false, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return true, nil
}

// classifySnapshotFetch treats not-found as a definitive business outcome
// and everything else that errored as technical.
func classifySnapshotFetch(err error) resilience.Class {
	if err == nil {
		return resilience.ClassSuccess
	}
	var nf *ProductNotFoundError
	if errors.As(err, &nf) {
		return resilience.ClassBusiness
	}
	return resilience.ClassTechnical
}

// GetProductBySKU returns the product snapshot for a SKU. On wrapper
// fallback the cache is consulted once more (a consumer may have populated
// it meanwhile); failing that a sentinel snapshot is synthesized.
func (c *CatalogClient) GetProductBySKU(ctx context.Context, sku string) (*models.ProductSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.GetProductBySKU")
	defer span.End()

	if snap, found, err := c.products.GetProduct(ctx, sku); err == nil && found {
		util.SnapshotCacheHits.WithLabelValues("products").Inc()
		return snap, nil
	} else if err != nil {
		c.logger.Warn("Product cache read failed", zap.String("sku", sku), zap.Error(err))
	}

	op := func(ctx context.Context) (*models.ProductSnapshot, error) {
		var snap models.ProductSnapshot
		found, err := c.fetchJSON(ctx, c.baseURL+"/api/products/"+sku, &snap)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &ProductNotFoundError{SKU: sku}
		}
		return &snap, nil
	}

	classify := func(_ *models.ProductSnapshot, err error) resilience.Class {
		return classifySnapshotFetch(err)
	}

	fallback := func(ctx context.Context, reason error) (*models.ProductSnapshot, error) {
		util.SnapshotFallbacks.WithLabelValues("products").Inc()
		c.logger.Warn("Product fetch degraded", zap.String("sku", sku), zap.Error(reason))

		snap, found, err := c.products.GetProduct(ctx, sku)
		if err != nil {
			return &models.ProductSnapshot{SKU: sku, Version: models.VersionCacheFailure}, nil
		}
		if found {
			return snap, nil
		}
		return &models.ProductSnapshot{SKU: sku, Version: models.VersionServiceUnavailable}, nil
	}

	snap, err := resilience.Execute(ctx, c.productExec, op, classify, fallback)
	if err != nil {
		return nil, err
	}

	if snap.Version >= 0 {
		if err := c.products.SaveProduct(ctx, snap); err != nil {
			c.logger.Warn("Product cache write failed", zap.String("sku", sku), zap.Error(err))
		}
	}
	return snap, nil
}

// GetCategoryByName returns the category snapshot for a name
func (c *CatalogClient) GetCategoryByName(ctx context.Context, name string) (*models.CategorySnapshot, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.GetCategoryByName")
	defer span.End()

	if snap, found, err := c.categories.GetCategory(ctx, name); err == nil && found {
		util.SnapshotCacheHits.WithLabelValues("categories").Inc()
		return snap, nil
	} else if err != nil {
		c.logger.Warn("Category cache read failed", zap.String("name", name), zap.Error(err))
	}

	op := func(ctx context.Context) (*models.CategorySnapshot, error) {
		var snap models.CategorySnapshot
		found, err := c.fetchJSON(ctx, c.baseURL+"/api/categories/"+name, &snap)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("category not found: %s", name)
		}
		return &snap, nil
	}

	classify := func(_ *models.CategorySnapshot, err error) resilience.Class {
		if err == nil {
			return resilience.ClassSuccess
		}
		return resilience.ClassTechnical
	}

	fallback := func(ctx context.Context, reason error) (*models.CategorySnapshot, error) {
		util.SnapshotFallbacks.WithLabelValues("categories").Inc()
		c.logger.Warn("Category fetch degraded", zap.String("name", name), zap.Error(reason))

		snap, found, err := c.categories.GetCategory(ctx, name)
		if err != nil {
			return &models.CategorySnapshot{Name: name, Version: models.VersionCacheFailure}, nil
		}
		if found {
			return snap, nil
		}
		return &models.CategorySnapshot{Name: name, Version: models.VersionServiceUnavailable}, nil
	}

	snap, err := resilience.Execute(ctx, c.categoryExec, op, classify, fallback)
	if err != nil {
		return nil, err
	}

	if snap.Version >= 0 {
		if err := c.categories.SaveCategory(ctx, snap); err != nil {
			c.logger.Warn("Category cache write failed", zap.String("name", name), zap.Error(err))
		}
	}
	return snap, nil
}

// GetInventoryBySKU returns the inventory snapshot for a product SKU
func (c *CatalogClient) GetInventoryBySKU(ctx context.Context, productSKU string) (*models.InventorySnapshot, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.GetInventoryBySKU")
	defer span.End()

	if snap, found, err := c.inventory.GetInventory(ctx, productSKU); err == nil && found {
		util.SnapshotCacheHits.WithLabelValues("inventory").Inc()
		return snap, nil
	} else if err != nil {
		c.logger.Warn("Inventory cache read failed", zap.String("sku", productSKU), zap.Error(err))
	}

	op := func(ctx context.Context) (*models.InventorySnapshot, error) {
		var snap models.InventorySnapshot
		found, err := c.fetchJSON(ctx, c.baseURL+"/api/inventory/"+productSKU, &snap)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("inventory not found: %s", productSKU)
		}
		return &snap, nil
	}

	classify := func(_ *models.InventorySnapshot, err error) resilience.Class {
		if err == nil {
			return resilience.ClassSuccess
		}
		return resilience.ClassTechnical
	}

	fallback := func(ctx context.Context, reason error) (*models.InventorySnapshot, error) {
		util.SnapshotFallbacks.WithLabelValues("inventory").Inc()
		c.logger.Warn("Inventory fetch degraded", zap.String("sku", productSKU), zap.Error(reason))

		snap, found, err := c.inventory.GetInventory(ctx, productSKU)
		if err != nil {
			return &models.InventorySnapshot{ProductSKU: productSKU, Version: models.VersionCacheFailure}, nil
		}
		if found {
			return snap, nil
		}
		return &models.InventorySnapshot{ProductSKU: productSKU, Version: models.VersionServiceUnavailable}, nil
	}

	snap, err := resilience.Execute(ctx, c.inventoryExec, op, classify, fallback)
	if err != nil {
		return nil, err
	}

	if snap.Version >= 0 {
		if err := c.inventory.SaveInventory(ctx, snap); err != nil {
			c.logger.Warn("Inventory cache write failed", zap.String("sku", productSKU), zap.Error(err))
		}
	}
	return snap, nil
}
