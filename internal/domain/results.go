package domain

import "time"

// DuplicateStrategy decides how an incoming duplicate is merged.
type DuplicateStrategy string

const (
	DuplicateUpdate  DuplicateStrategy = "update"
	DuplicateSkip    DuplicateStrategy = "skip"
	DuplicateReplace DuplicateStrategy = "replace"
)

// ParseDuplicateStrategy maps free text onto a strategy, defaulting to skip.
func ParseDuplicateStrategy(s string) DuplicateStrategy {
	switch DuplicateStrategy(s) {
	case DuplicateUpdate:
		return DuplicateUpdate
	case DuplicateReplace:
		return DuplicateReplace
	default:
		return DuplicateSkip
	}
}

// ImportResult summarizes an ingestion run.
type ImportResult struct {
	RunID      string         `json:"runId"`
	Success    bool           `json:"success"`
	Source     Detection      `json:"source"`
	Total      int            `json:"total"`
	Imported   int            `json:"imported"`
	Updated    int            `json:"updated"`
	Skipped    int            `json:"skipped"`
	Errors     int            `json:"errors"`
	Duplicates int            `json:"duplicates"`
	Rejections map[string]int `json:"rejections,omitempty"`
	ErrorList  []string       `json:"errorList,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// BackupCriteria constrains alternate supplier selection.
type BackupCriteria struct {
	MinScore        float64  `json:"minScore" yaml:"minScore"`
	MaxShippingDays int      `json:"maxShippingDays" yaml:"maxShippingDays"`
	Countries       []string `json:"countries,omitempty" yaml:"countries"`
}

// BackupResult ranks alternate suppliers for a product.
type BackupResult struct {
	ProductKey     string     `json:"productKey"`
	Found          bool       `json:"found"`
	Candidates     []Supplier `json:"candidates"`
	Recommendation *Supplier  `json:"recommendation,omitempty"`
}
