package connectors

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire types for the Etsy v3 API.

// etsyPageSize is the limit used for offset pagination
const etsyPageSize = 100

type etsyPrice struct {
	Amount  int64 `json:"amount"`
	Divisor int64 `json:"divisor"`
}

// Decimal returns the price as a single decimal amount
func (p etsyPrice) Decimal() decimal.Decimal {
	if p.Divisor == 0 {
		return decimal.NewFromInt(p.Amount)
	}
	return decimal.NewFromInt(p.Amount).Div(decimal.NewFromInt(p.Divisor))
}

type etsyListing struct {
	ListingID         int64     `json:"listing_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	State             string    `json:"state"`
	Quantity          int64     `json:"quantity"`
	Price             etsyPrice `json:"price"`
	TaxonomyID        int64     `json:"taxonomy_id"`
	NonTaxable        bool      `json:"non_taxable"`
	ListingType       string    `json:"listing_type"`
	WhoMade           string    `json:"who_made"`
	WhenMade          string    `json:"when_made"`
	ShippingProfileID int64     `json:"shipping_profile_id"`
	ShouldAutoRenew   bool      `json:"should_auto_renew"`
}

type etsyListingsPage struct {
	Count   int64         `json:"count"`
	Results []etsyListing `json:"results"`
}

type etsyPropertyValue struct {
	PropertyID   int64    `json:"property_id"`
	PropertyName string   `json:"property_name"`
	ScaleID      *int64   `json:"scale_id"`
	ValueIDs     []int64  `json:"value_ids"`
	Values       []string `json:"values"`
}

type etsyOffering struct {
	Price     etsyPrice `json:"price"`
	Quantity  int64     `json:"quantity"`
	IsEnabled bool      `json:"is_enabled"`
}

type etsyProduct struct {
	ProductID      int64               `json:"product_id"`
	SKU            string              `json:"sku"`
	PropertyValues []etsyPropertyValue `json:"property_values"`
	Offerings      []etsyOffering      `json:"offerings"`
}

type etsyInventoryDoc struct {
	Products []etsyProduct `json:"products"`
}

// etsyOfferingUpdate is the massaged offering shape the inventory PUT wants:
// the price collapses from amount/divisor to a plain number
type etsyOfferingUpdate struct {
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	IsEnabled bool    `json:"is_enabled"`
}

type etsyProductUpdate struct {
	SKU            string               `json:"sku"`
	PropertyValues []etsyPropertyValue  `json:"property_values"`
	Offerings      []etsyOfferingUpdate `json:"offerings"`
}

type etsyInventoryUpdate struct {
	Products []etsyProductUpdate `json:"products"`
}

type etsyReceipt struct {
	ReceiptID       int64 `json:"receipt_id"`
	CreateTimestamp int64 `json:"create_timestamp"`
}

// etsyReceiptsPage keeps each receipt's raw JSON so orders can carry the
// untouched platform payload
type etsyReceiptsPage struct {
	Count   int64             `json:"count"`
	Results []json.RawMessage `json:"results"`
}

type etsyTransaction struct {
	ListingID int64  `json:"listing_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	SKU       string `json:"sku"`
}

type etsyTransactionsPage struct {
	Results []etsyTransaction `json:"results"`
}
