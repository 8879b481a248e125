package ports

import (
	"context"
	"time"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
)

// CatalogStore persists canonical products.
type CatalogStore interface {
	// Read returns nil and no error when the key is unknown.
	Read(ctx context.Context, key domain.IdentityKey) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product, policy domain.ConflictPolicy) error
	BulkInsert(ctx context.Context, products []domain.Product) (int, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
}

// SupplierRegistry exposes registered suppliers.
type SupplierRegistry interface {
	List(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error)
	Get(ctx context.Context, id string) (domain.Supplier, error)
	UpdateScore(ctx context.Context, id string, score domain.SupplierScore) error
	RecordSync(ctx context.Context, id string, at time.Time, state domain.RunState) error
}

// OrderHistory aggregates historical orders per supplier for scoring.
type OrderHistory interface {
	SupplierStats(ctx context.Context, supplierID string) (domain.OrderStats, error)
}

// FetchRequest describes one remote retrieval.
type FetchRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Auth    domain.Credentials
	Timeout time.Duration
}

// FetchResponse is a successful remote retrieval.
type FetchResponse struct {
	Status int
	Body   []byte
	URL    string
}

// Fetcher retrieves remote documents; failures are *domain.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// SourceCollector runs the extractor registered for a source type.
type SourceCollector interface {
	Collect(ctx context.Context, src extract.Source) ([]extract.Record, error)
	CollectAll(ctx context.Context, sources []extract.Source) []extract.SourceRecords
}

// Notifier delivers alerts fire-and-forget; it never reports failures.
type Notifier interface {
	Emit(ctx context.Context, n domain.Notification)
}

// DynamicPricer computes a price for dynamic pricing rules.
type DynamicPricer interface {
	Price(ctx context.Context, product domain.Product, rule domain.PricingRule) (float64, error)
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
