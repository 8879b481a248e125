package domain

import "time"

// SyncType selects which fields a sync run reconciles.
type SyncType string

const (
	SyncFull      SyncType = "full"
	SyncPrices    SyncType = "prices"
	SyncInventory SyncType = "inventory"
)

// ParseSyncType maps free text onto a SyncType, defaulting to full.
func ParseSyncType(s string) SyncType {
	switch SyncType(s) {
	case SyncPrices:
		return SyncPrices
	case SyncInventory:
		return SyncInventory
	default:
		return SyncFull
	}
}

// RunState is the lifecycle state of a sync run.
type RunState string

const (
	RunIdle                RunState = "idle"
	RunFetching            RunState = "fetching"
	RunDiffing             RunState = "diffing"
	RunApplying            RunState = "applying"
	RunCompleted           RunState = "completed"
	RunCompletedWithErrors RunState = "completedWithErrors"
	RunFailed              RunState = "failed"
)

// ChangeType classifies a SyncDiff.
type ChangeType string

const (
	ChangePrice    ChangeType = "price"
	ChangeStock    ChangeType = "stock"
	ChangeDisabled ChangeType = "disabled"
	ChangeNew      ChangeType = "new"
)

// SyncDiff is one detected field change between stored and live state.
type SyncDiff struct {
	ProductID  string     `json:"productId"`
	SKU        string     `json:"sku"`
	Field      string     `json:"field"`
	OldValue   any        `json:"oldValue"`
	NewValue   any        `json:"newValue"`
	ChangeType ChangeType `json:"changeType"`
}

// ApplyFailure records a per-product write that did not succeed.
type ApplyFailure struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku"`
	Error     string `json:"error"`
}

// SyncResult summarizes a reconciliation run.
type SyncResult struct {
	RunID      string         `json:"runId"`
	SupplierID string         `json:"supplierId"`
	Type       SyncType       `json:"type"`
	State      RunState       `json:"state"`
	Success    bool           `json:"success"`
	Total      int            `json:"total"`
	Updated    int            `json:"updated"`
	Disabled   int            `json:"disabled"`
	Created    int            `json:"created"`
	Unchanged  int            `json:"unchanged"`
	Errors     int            `json:"errors"`
	Diffs      []SyncDiff     `json:"diffs,omitempty"`
	Failures   []ApplyFailure `json:"failures,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}
