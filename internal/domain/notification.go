package domain

import "time"

// NotificationType names an alert category.
type NotificationType string

const (
	NotifyStockOut      NotificationType = "stock.out"
	NotifyStockLow      NotificationType = "stock.low"
	NotifyLowScore      NotificationType = "supplier.low_score"
	NotifySyncFailed    NotificationType = "sync.failed"
	NotifyImportFailure NotificationType = "import.failed"
)

// Notification is a fire-and-forget alert.
type Notification struct {
	Type     NotificationType `json:"type"`
	Payload  map[string]any   `json:"payload"`
	IssuedAt time.Time        `json:"issuedAt"`
}
