package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/infrastructure/storage"
)

var supplier = domain.Supplier{ID: "sup-1", OwnerID: "owner", Status: domain.SupplierActive}

func seeded(t *testing.T, products ...domain.Product) *storage.MemoryCatalog {
	t.Helper()
	store := storage.NewMemoryCatalog()
	for _, p := range products {
		p.OwnerID = supplier.OwnerID
		p.SupplierID = supplier.ID
		if err := store.Upsert(context.Background(), p, domain.ConflictReplace); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func staticFeed(products ...domain.Product) LiveFeed {
	return func(context.Context) ([]domain.Product, error) {
		return products, nil
	}
}

func product(sku string, cost float64, stock int) domain.Product {
	return domain.Product{
		SKU:    sku,
		Title:  "Item " + sku,
		Price:  domain.Float(cost),
		Cost:   domain.Float(cost),
		Stock:  stock,
		Status: domain.StatusActive,
	}
}

func TestRunDiffsAndApplies(t *testing.T) {
	t.Parallel()

	store := seeded(t, product("A", 10, 5), product("B", 20, 5), product("C", 30, 5))
	r := New(store, Config{MaxConcurrency: 2}, nil)

	out, err := r.Run(context.Background(), supplier, domain.SyncFull, staticFeed(
		product("A", 12, 5),
		product("B", 20, 0),
		product("D", 7, 3),
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	res := out.Result
	if res.State != domain.RunCompleted || !res.Success {
		t.Fatalf("unexpected state %s", res.State)
	}
	if res.Updated != 2 || res.Disabled != 1 || res.Created != 1 || res.Unchanged != 0 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Diffs) != 4 {
		t.Fatalf("expected 4 diffs, got %+v", res.Diffs)
	}

	a, _ := store.Read(context.Background(), domain.IdentityKey{Owner: "owner", Supplier: "sup-1", SKU: "a"})
	if a == nil || *a.Cost != 12 || *a.Price != 12 {
		t.Fatalf("price not applied: %+v", a)
	}
	c, _ := store.Read(context.Background(), domain.IdentityKey{Owner: "owner", Supplier: "sup-1", SKU: "c"})
	if c == nil || c.Stock != 0 || c.Status != domain.StatusOutOfStock {
		t.Fatalf("missing product not marked unavailable: %+v", c)
	}
	if len(out.OutOfStock) != 2 {
		t.Fatalf("expected B and C out of stock, got %d", len(out.OutOfStock))
	}

	want := []domain.RunState{domain.RunIdle, domain.RunFetching, domain.RunDiffing, domain.RunApplying, domain.RunCompleted}
	if len(out.States) != len(want) {
		t.Fatalf("unexpected states %v", out.States)
	}
	for i := range want {
		if out.States[i] != want[i] {
			t.Fatalf("state %d: expected %s, got %s", i, want[i], out.States[i])
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	store := seeded(t, product("A", 10, 5), product("B", 20, 5))
	r := New(store, Config{}, nil)
	feed := staticFeed(product("A", 11, 4), product("B", 20, 5))

	first, err := r.Run(context.Background(), supplier, domain.SyncFull, feed)
	if err != nil || len(first.Result.Diffs) == 0 {
		t.Fatalf("first run: %v, diffs %d", err, len(first.Result.Diffs))
	}

	second, err := r.Run(context.Background(), supplier, domain.SyncFull, feed)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Result.Diffs) != 0 || second.Result.Unchanged != 2 {
		t.Fatalf("expected no diffs on rerun, got %+v", second.Result.Diffs)
	}
}

func TestRunIgnoresUnknownLiveStock(t *testing.T) {
	t.Parallel()

	store := seeded(t, product("A", 10, 5))
	r := New(store, Config{}, nil)

	live := product("A", 12, 0)
	live.StockUnknown = true
	out, err := r.Run(context.Background(), supplier, domain.SyncFull, staticFeed(live))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.OutOfStock) != 0 {
		t.Fatalf("unknown stock must not raise stock-out, got %+v", out.OutOfStock)
	}
	for _, d := range out.Result.Diffs {
		if d.ChangeType == domain.ChangeStock {
			t.Fatalf("unexpected stock diff %+v", d)
		}
	}

	a, _ := store.Read(context.Background(), domain.IdentityKey{Owner: "owner", Supplier: "sup-1", SKU: "a"})
	if a == nil || a.Stock != 5 || a.Status != domain.StatusActive || *a.Cost != 12 {
		t.Fatalf("stored stock must survive a price update: %+v", a)
	}
}

func TestRunRespectsSyncType(t *testing.T) {
	t.Parallel()

	store := seeded(t, product("A", 10, 5), product("B", 20, 5))
	r := New(store, Config{}, nil)
	feed := staticFeed(product("A", 15, 1))

	out, err := r.Run(context.Background(), supplier, domain.SyncPrices, feed)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.Result.Diffs) != 1 || out.Result.Diffs[0].ChangeType != domain.ChangePrice {
		t.Fatalf("prices sync should only touch prices: %+v", out.Result.Diffs)
	}

	out, err = r.Run(context.Background(), supplier, domain.SyncInventory, feed)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, d := range out.Result.Diffs {
		if d.ChangeType == domain.ChangePrice {
			t.Fatalf("inventory sync emitted a price diff: %+v", d)
		}
	}
	if out.Result.Disabled != 1 || out.Result.Updated != 1 {
		t.Fatalf("unexpected inventory counts %+v", out.Result)
	}
}

func TestRunKeepsRepricedSellingPrice(t *testing.T) {
	t.Parallel()

	p := product("A", 10, 5)
	p.Price = domain.Float(18)
	store := seeded(t, p)

	out, err := New(store, Config{}, nil).Run(context.Background(), supplier, domain.SyncPrices, staticFeed(product("A", 11, 5)))
	if err != nil || out.Result.Updated != 1 {
		t.Fatalf("run: %v %+v", err, out.Result)
	}
	got, _ := store.Read(context.Background(), domain.IdentityKey{Owner: "owner", Supplier: "sup-1", SKU: "a"})
	if *got.Cost != 11 || *got.Price != 18 {
		t.Fatalf("expected cost 11 and price 18, got %v %v", *got.Cost, *got.Price)
	}
}

func TestRunDisconnectedSupplierSkipsFetch(t *testing.T) {
	t.Parallel()

	var called atomic.Bool
	feed := func(context.Context) ([]domain.Product, error) {
		called.Store(true)
		return nil, nil
	}
	sup := supplier
	sup.Status = domain.SupplierDisconnected

	out, err := New(storage.NewMemoryCatalog(), Config{}, nil).Run(context.Background(), sup, domain.SyncFull, feed)
	if !errors.Is(err, domain.ErrSupplierDisconnected) {
		t.Fatalf("expected disconnected error, got %v", err)
	}
	if called.Load() {
		t.Fatalf("feed must not be called for a disconnected supplier")
	}
	if out.Result.State != domain.RunFailed {
		t.Fatalf("expected failed state, got %s", out.Result.State)
	}
}

type flakyStore struct {
	*storage.MemoryCatalog
	failSKU string
}

func (f flakyStore) Upsert(ctx context.Context, p domain.Product, policy domain.ConflictPolicy) error {
	if strings.HasPrefix(p.SKU, f.failSKU) {
		return errors.New("write rejected")
	}
	return f.MemoryCatalog.Upsert(ctx, p, policy)
}

func TestRunCollectsApplyFailures(t *testing.T) {
	t.Parallel()

	base := seeded(t, product("A", 10, 5), product("B", 10, 5), product("X", 10, 5))
	feed := staticFeed(product("A", 11, 5), product("B", 11, 5), product("X", 11, 5))

	out, err := New(flakyStore{MemoryCatalog: base, failSKU: "X"}, Config{FailureThreshold: 0.5}, nil).
		Run(context.Background(), supplier, domain.SyncFull, feed)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Result.State != domain.RunCompletedWithErrors || out.Result.Errors != 1 || out.Result.Updated != 2 {
		t.Fatalf("unexpected result %+v", out.Result)
	}
	if len(out.Result.Failures) != 1 || out.Result.Failures[0].SKU != "X" {
		t.Fatalf("unexpected failures %+v", out.Result.Failures)
	}

	base = seeded(t, product("A", 10, 5), product("X1", 10, 5), product("X2", 10, 5))
	feed = staticFeed(product("A", 11, 5), product("X1", 11, 5), product("X2", 11, 5))
	out, err = New(flakyStore{MemoryCatalog: base, failSKU: "X"}, Config{FailureThreshold: 0.5}, nil).
		Run(context.Background(), supplier, domain.SyncFull, feed)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Result.State != domain.RunFailed || out.Result.Success {
		t.Fatalf("expected failed run above threshold, got %s", out.Result.State)
	}
	if out.Result.Updated != 1 {
		t.Fatalf("successful writes must stay applied, got %d", out.Result.Updated)
	}
}

func TestRunFeedFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("unreachable")
	out, err := New(storage.NewMemoryCatalog(), Config{}, nil).Run(context.Background(), supplier, domain.SyncFull,
		func(context.Context) ([]domain.Product, error) { return nil, boom })
	if !errors.Is(err, boom) || out.Result.State != domain.RunFailed {
		t.Fatalf("expected feed failure, got %v %s", err, out.Result.State)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	store := seeded(t, product("A", 10, 5))
	ctx, cancel := context.WithCancel(context.Background())
	feed := func(context.Context) ([]domain.Product, error) {
		cancel()
		return []domain.Product{product("A", 12, 5)}, nil
	}

	out, err := New(store, Config{}, nil).Run(ctx, supplier, domain.SyncFull, feed)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Result.State != domain.RunFailed {
		t.Fatalf("cancelled run should fail, got %s", out.Result.State)
	}
}
