package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

// MemoryCatalog keeps products in process. It backs tests and single-node
// runs without a database.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// MemorySuppliers keeps suppliers and their order aggregates in process.
type MemorySuppliers struct {
	mu        sync.RWMutex
	suppliers map[string]domain.Supplier
	stats     map[string]domain.OrderStats
}

var (
	_ ports.CatalogStore     = (*MemoryCatalog)(nil)
	_ ports.SupplierRegistry = (*MemorySuppliers)(nil)
	_ ports.OrderHistory     = (*MemorySuppliers)(nil)
)

// NewMemoryCatalog builds an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{products: map[string]domain.Product{}}
}

// NewMemorySuppliers builds a registry seeded with suppliers.
func NewMemorySuppliers(seed ...domain.Supplier) *MemorySuppliers {
	m := &MemorySuppliers{
		suppliers: map[string]domain.Supplier{},
		stats:     map[string]domain.OrderStats{},
	}
	for _, s := range seed {
		m.suppliers[s.ID] = s
	}
	return m
}

// Read returns a copy of the product stored under key.
func (m *MemoryCatalog) Read(_ context.Context, key domain.IdentityKey) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[key.String()]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

// Upsert writes product, resolving an identity-key collision with policy.
func (m *MemoryCatalog) Upsert(_ context.Context, product domain.Product, policy domain.ConflictPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := domain.KeyOf(product).String()
	cur, exists := m.products[key]
	if !exists {
		m.products[key] = prepareInsert(product)
		return nil
	}

	switch policy {
	case domain.ConflictSkip:
		return nil
	case domain.ConflictUpdate:
		m.products[key] = mergeMutable(cur, product)
	default:
		next := product.Clone()
		next.ID = cur.ID
		next.ImportedAt = cur.ImportedAt
		if next.UpdatedAt.IsZero() {
			next.UpdatedAt = time.Now().UTC()
		}
		m.products[key] = next
	}
	return nil
}

// BulkInsert adds products whose identity key is free and reports how many
// were written.
func (m *MemoryCatalog) BulkInsert(_ context.Context, products []domain.Product) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, p := range products {
		key := domain.KeyOf(p).String()
		if _, ok := m.products[key]; ok {
			continue
		}
		m.products[key] = prepareInsert(p)
		inserted++
	}
	return inserted, nil
}

// List returns matching products ordered by identity key.
func (m *MemoryCatalog) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.products))
	for k, p := range m.products {
		if filter.Matches(p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]domain.Product, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.products[k].Clone())
	}
	return out, nil
}

// PutSupplier registers or replaces a supplier.
func (m *MemorySuppliers) PutSupplier(s domain.Supplier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppliers[s.ID] = s
}

// PutOrderStats sets the order history aggregate of a supplier.
func (m *MemorySuppliers) PutOrderStats(supplierID string, stats domain.OrderStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[supplierID] = stats
}

// Get returns one supplier.
func (m *MemorySuppliers) Get(_ context.Context, id string) (domain.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.suppliers[id]
	if !ok {
		return domain.Supplier{}, fmt.Errorf("get supplier %s: %w", id, domain.ErrSupplierNotFound)
	}
	return s, nil
}

// List returns suppliers matching filter ordered by id.
func (m *MemorySuppliers) List(_ context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		if filter.OwnerID != "" && filter.OwnerID != s.OwnerID {
			continue
		}
		if filter.Status != "" && filter.Status != s.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateScore stores a supplier's latest score.
func (m *MemorySuppliers) UpdateScore(_ context.Context, id string, score domain.SupplierScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.suppliers[id]
	if !ok {
		return fmt.Errorf("update score %s: %w", id, domain.ErrSupplierNotFound)
	}
	s.QualityScore = score.Score
	s.Breakdown = score.Breakdown
	m.suppliers[id] = s
	return nil
}

// RecordSync stores the outcome of a sync run.
func (m *MemorySuppliers) RecordSync(_ context.Context, id string, at time.Time, state domain.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.suppliers[id]
	if !ok {
		return fmt.Errorf("record sync %s: %w", id, domain.ErrSupplierNotFound)
	}
	s.LastSyncAt = at
	s.LastSyncStatus = state
	m.suppliers[id] = s
	return nil
}

// SupplierStats returns the order aggregate; unknown suppliers have none.
func (m *MemorySuppliers) SupplierStats(_ context.Context, supplierID string) (domain.OrderStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats[supplierID], nil
}

func prepareInsert(p domain.Product) domain.Product {
	out := p.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if out.ImportedAt.IsZero() {
		out.ImportedAt = now
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = out.ImportedAt
	}
	return out
}

// mergeMutable applies the fields a supplier feed owns onto the stored row.
func mergeMutable(cur, in domain.Product) domain.Product {
	out := cur.Clone()
	if in.Price != nil {
		out.Price = domain.Float(*in.Price)
	}
	if in.Cost != nil {
		out.Cost = domain.Float(*in.Cost)
	}
	out.Stock = in.Stock
	if in.Status != "" {
		out.Status = in.Status
	}
	out.UpdatedAt = in.UpdatedAt
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = time.Now().UTC()
	}
	return out
}
