// Package dedup partitions incoming products into new and duplicate records
// and resolves duplicates with a configured strategy.
package dedup

import (
	"context"
	"time"

	"CatalogSync/internal/domain"
)

// Reader looks up stored products by identity key.
type Reader interface {
	Read(ctx context.Context, key domain.IdentityKey) (*domain.Product, error)
}

// Item is one incoming product after partitioning. Product is the record to
// persist: the incoming draft for unique items, the resolved merge for
// duplicates of stored products.
type Item struct {
	Index    int
	Key      domain.IdentityKey
	Incoming domain.Product
	Product  domain.Product
	Existing *domain.Product
	// InBatch marks a duplicate of an earlier record in the same batch; it was
	// folded into that record and is not written on its own.
	InBatch bool
}

// Failure is a record whose stored counterpart could not be read.
type Failure struct {
	Index int
	Key   domain.IdentityKey
	Err   error
}

// Result is the partition of one batch.
type Result struct {
	Unique     []Item
	Duplicates []Item
	Failed     []Failure
}

type slot struct {
	unique bool
	pos    int
}

// Partition walks products in order. The first record of each identity key
// is checked against the store; later records with the same key merge into
// it.
func Partition(ctx context.Context, store Reader, products []domain.Product, strategy domain.DuplicateStrategy) Result {
	var res Result
	seen := map[domain.IdentityKey]slot{}

	for i, p := range products {
		key := domain.KeyOf(p)

		if s, ok := seen[key]; ok {
			target := &res.Duplicates[s.pos]
			if s.unique {
				target = &res.Unique[s.pos]
			}
			target.Product = Resolve(target.Product, p, strategy)
			res.Duplicates = append(res.Duplicates, Item{Index: i, Key: key, Incoming: p, Product: p, InBatch: true})
			continue
		}

		existing, err := store.Read(ctx, key)
		if err != nil {
			res.Failed = append(res.Failed, Failure{Index: i, Key: key, Err: err})
			continue
		}

		if existing == nil {
			seen[key] = slot{unique: true, pos: len(res.Unique)}
			res.Unique = append(res.Unique, Item{Index: i, Key: key, Incoming: p, Product: p})
			continue
		}

		seen[key] = slot{pos: len(res.Duplicates)}
		res.Duplicates = append(res.Duplicates, Item{
			Index:    i,
			Key:      key,
			Incoming: p,
			Product:  Resolve(*existing, p, strategy),
			Existing: existing,
		})
	}
	return res
}

// Resolve merges incoming into existing.
//
//   - skip keeps existing untouched.
//   - update applies the incoming cost, stock and availability; the selling
//     price follows the incoming price only while it was never repriced
//     away from the old cost.
//   - replace overwrites everything but the stored identity and import time.
func Resolve(existing, incoming domain.Product, strategy domain.DuplicateStrategy) domain.Product {
	switch strategy {
	case domain.DuplicateReplace:
		out := incoming.Clone()
		out.ID = existing.ID
		if !existing.ImportedAt.IsZero() {
			out.ImportedAt = existing.ImportedAt
		}
		out.UpdatedAt = now(incoming, existing)
		return out
	case domain.DuplicateUpdate:
		out := existing.Clone()
		if incoming.Cost != nil {
			if FollowsCost(existing) {
				out.Price = cloneFloat(incoming.Price)
			}
			out.Cost = cloneFloat(incoming.Cost)
		} else if incoming.Price != nil && FollowsCost(existing) {
			out.Price = cloneFloat(incoming.Price)
		}
		out.Stock = incoming.Stock
		out.Status = incoming.Status
		if out.Status == "" {
			out.Status = existing.Status
		}
		out.UpdatedAt = now(incoming, existing)
		return out
	default:
		return existing.Clone()
	}
}

// FollowsCost reports whether p's selling price still equals its cost, so a
// cost change may carry the price along.
func FollowsCost(p domain.Product) bool {
	switch {
	case p.Price == nil:
		return true
	case p.Cost == nil:
		return false
	}
	return *p.Price == *p.Cost
}

func now(incoming, existing domain.Product) time.Time {
	if !incoming.UpdatedAt.IsZero() {
		return incoming.UpdatedAt
	}
	return existing.UpdatedAt
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
