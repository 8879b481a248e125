package domain

import "time"

// SupplierStatus describes the connection state of a supplier.
type SupplierStatus string

const (
	SupplierActive       SupplierStatus = "active"
	SupplierDisconnected SupplierStatus = "disconnected"
	SupplierSuspended    SupplierStatus = "suspended"
)

// ScoreBreakdown holds the normalized [0,100] sub-scores of a supplier.
type ScoreBreakdown struct {
	Quality     float64 `json:"quality"`
	Speed       float64 `json:"speed"`
	Price       float64 `json:"price"`
	Reliability float64 `json:"reliability"`
	Support     float64 `json:"support"`
}

// Supplier is a registered product source.
type Supplier struct {
	ID             string         `json:"id" yaml:"id"`
	OwnerID        string         `json:"ownerId,omitempty" yaml:"ownerId"`
	Name           string         `json:"name" yaml:"name"`
	Country        string         `json:"country,omitempty" yaml:"country"`
	Status         SupplierStatus `json:"status" yaml:"status"`
	QualityScore   float64        `json:"qualityScore" yaml:"qualityScore"`
	Breakdown      ScoreBreakdown `json:"breakdown" yaml:"-"`
	ShippingDays   int            `json:"shippingDays,omitempty" yaml:"shippingDays"`
	FeedURL        string         `json:"feedUrl,omitempty" yaml:"feedUrl"`
	FeedType       SourceType     `json:"feedType,omitempty" yaml:"feedType"`
	Auth           Credentials    `json:"auth" yaml:"auth"`
	LastSyncAt     time.Time      `json:"lastSyncAt,omitempty" yaml:"-"`
	LastSyncStatus RunState       `json:"lastSyncStatus,omitempty" yaml:"-"`
}

// SupplierFilter narrows supplier listings.
type SupplierFilter struct {
	OwnerID string
	Status  SupplierStatus
}

// SupplierScore is the outcome of a scoring run.
type SupplierScore struct {
	SupplierID string         `json:"supplierId"`
	Score      float64        `json:"score"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	Orders     int            `json:"orders"`
	ComputedAt time.Time      `json:"computedAt"`
}

// OrderStats aggregates the historical order data a supplier is scored on.
type OrderStats struct {
	TotalOrders         int
	OnTimeOrders        int
	AvgFulfillmentHours float64
	// PriceRatio is the supplier's average price divided by the category
	// median; 1.0 means exactly at median.
	PriceRatio           float64
	Complaints           int
	Returns              int
	AvgSupportReplyHours float64
}
