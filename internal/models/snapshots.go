package models

import (
	"encoding/json"
	"time"
)

// Reserved snapshot versions. Real versions issued by the ledger are
// strictly positive; a negative version marks a synthesized snapshot that
// must never be used for pricing or availability decisions.
const (
	// VersionServiceUnavailable: owning service unreachable and no cached copy.
	VersionServiceUnavailable int64 = -1
	// VersionCacheFailure: the local snapshot cache itself failed.
	VersionCacheFailure int64 = -2
)

// ProductSnapshot is the locally replicated view of a catalog product,
// keyed by SKU. Price is in the smallest currency unit.
type ProductSnapshot struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       int64           `json:"price"`
	Attributes  json.RawMessage `json:"attributes,omitempty"`
	Version     int64           `json:"version"`
}

// CategorySnapshot is the locally replicated view of a catalog category,
// keyed by name.
type CategorySnapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     int64  `json:"version"`
}

// InventorySnapshot is the locally replicated stock level for a product
type InventorySnapshot struct {
	ProductSKU string    `json:"product_sku"`
	Quantity   int       `json:"quantity"`
	Location   string    `json:"location"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// Degraded reports whether the snapshot carries a reserved sentinel version
func (p *ProductSnapshot) Degraded() bool { return p.Version < 0 }
