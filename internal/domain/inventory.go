package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the catalog status of a product row.
type ProductStatus string

const (
	ProductActive   ProductStatus = "Active"
	ProductInactive ProductStatus = "Inactive"
)

// TransactionType encodes the direction of a stock movement.
type TransactionType string

const (
	TransactionIn  TransactionType = "IN"
	TransactionOut TransactionType = "OUT"
)

// Product is the canonical catalog row. ID is the SKU key every component joins on.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Stock    int             `json:"stock"`
	MinStock int             `json:"min_stock"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
	Location string          `json:"location"`
	Category string          `json:"category"`
	Status   ProductStatus   `json:"status"`
}

// IsActive reports whether the product is not explicitly inactive.
func (p Product) IsActive() bool {
	return p.Status != ProductInactive
}

// Transaction is one logged stock movement. Qty is positive; Type carries the direction.
type Transaction struct {
	Date       time.Time       `json:"date"`
	SKU        string          `json:"sku"`
	Qty        int             `json:"qty"`
	Type       TransactionType `json:"type"`
	BatchID    string          `json:"batch_id,omitempty"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	DocRef     string          `json:"doc_ref,omitempty"`
	Owner      string          `json:"owner,omitempty"`
}

// IsInbound reports whether the transaction is a receipt.
func (t Transaction) IsInbound() bool { return t.Type == TransactionIn }

// IsOutbound reports whether the transaction is an issue.
func (t Transaction) IsOutbound() bool { return t.Type == TransactionOut }

// DamageRecord is a write-off logged outside the regular transaction log.
type DamageRecord struct {
	Date   time.Time `json:"date"`
	SKU    string    `json:"sku"`
	Qty    int       `json:"qty"`
	Reason string    `json:"reason,omitempty"`
}

// CycleCount is one physical count compared against the system quantity.
type CycleCount struct {
	Date       time.Time `json:"date"`
	SKU        string    `json:"sku"`
	Location   string    `json:"location,omitempty"`
	SystemQty  int       `json:"system_qty"`
	CountedQty int       `json:"counted_qty"`
}

// Variance is counted minus system quantity.
func (c CycleCount) Variance() int {
	return c.CountedQty - c.SystemQty
}

// ProductIndex maps product id to product.
func ProductIndex(products []Product) map[string]Product {
	idx := make(map[string]Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}
