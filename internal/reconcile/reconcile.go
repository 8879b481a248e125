// Package reconcile diffs stored catalog state against a live supplier feed
// and applies the changes.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"CatalogSync/internal/dedup"
	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

// Config bounds a reconciliation run.
type Config struct {
	MaxConcurrency int
	// FailureThreshold is the fraction of planned writes that may fail before
	// the run is marked failed.
	FailureThreshold  float64
	LowStockThreshold int
}

// LiveFeed retrieves the current supplier catalog.
type LiveFeed func(ctx context.Context) ([]domain.Product, error)

// Outcome is a finished run plus the products whose stock changed notably.
type Outcome struct {
	Result     domain.SyncResult
	States     []domain.RunState
	OutOfStock []domain.Product
	LowStock   []domain.Product
}

// Reconciler runs sync passes for one supplier at a time.
type Reconciler struct {
	store  ports.CatalogStore
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New builds a reconciler.
func New(store ports.CatalogStore, cfg Config, logger *slog.Logger) *Reconciler {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "reconciler"),
		now:    time.Now,
	}
}

type plan struct {
	product domain.Product
	diffs   []domain.SyncDiff
	kind    domain.ChangeType
}

// Run reconciles sup's stored products with the feed. A disconnected supplier
// fails before the feed is called. The returned error is non-nil only when
// the run could not start or the feed failed.
func (r *Reconciler) Run(ctx context.Context, sup domain.Supplier, syncType domain.SyncType, feed LiveFeed) (Outcome, error) {
	out := Outcome{Result: domain.SyncResult{
		RunID:      uuid.NewString(),
		SupplierID: sup.ID,
		Type:       syncType,
		StartedAt:  r.now(),
	}}
	enter := func(s domain.RunState) {
		out.States = append(out.States, s)
		out.Result.State = s
		r.logger.Debug("sync state", "supplier", sup.ID, "run", out.Result.RunID, "state", s)
	}
	fail := func(err error) (Outcome, error) {
		enter(domain.RunFailed)
		out.Result.FinishedAt = r.now()
		return out, err
	}

	enter(domain.RunIdle)
	if sup.Status == domain.SupplierDisconnected {
		return fail(fmt.Errorf("sync supplier %s: %w", sup.ID, domain.ErrSupplierDisconnected))
	}

	enter(domain.RunFetching)
	live, err := feed(ctx)
	if err != nil {
		return fail(fmt.Errorf("fetch live feed: %w", err))
	}
	existing, err := r.store.List(ctx, domain.ProductFilter{OwnerID: sup.OwnerID, SupplierID: sup.ID})
	if err != nil {
		return fail(fmt.Errorf("list stored products: %w", err))
	}

	enter(domain.RunDiffing)
	plans, unchanged := r.diff(sup, syncType, existing, live)
	out.Result.Total = len(existing)
	out.Result.Unchanged = unchanged
	for _, p := range plans {
		out.Result.Diffs = append(out.Result.Diffs, p.diffs...)
	}

	enter(domain.RunApplying)
	r.apply(ctx, plans, &out)

	switch {
	case ctx.Err() != nil:
		enter(domain.RunFailed)
	case float64(out.Result.Errors) > r.cfg.FailureThreshold*float64(len(plans)):
		enter(domain.RunFailed)
	case out.Result.Errors > 0:
		enter(domain.RunCompletedWithErrors)
	default:
		enter(domain.RunCompleted)
	}
	out.Result.Success = out.Result.State != domain.RunFailed
	out.Result.FinishedAt = r.now()
	return out, nil
}

func (r *Reconciler) diff(sup domain.Supplier, syncType domain.SyncType, existing, live []domain.Product) ([]plan, int) {
	checkPrice := syncType == domain.SyncFull || syncType == domain.SyncPrices
	checkStock := syncType == domain.SyncFull || syncType == domain.SyncInventory

	liveByKey := make(map[domain.IdentityKey]domain.Product, len(live))
	var liveOrder []domain.IdentityKey
	for _, p := range live {
		p.OwnerID = sup.OwnerID
		p.SupplierID = sup.ID
		key := domain.KeyOf(p)
		if _, dup := liveByKey[key]; dup {
			continue
		}
		liveByKey[key] = p
		liveOrder = append(liveOrder, key)
	}

	stored := append([]domain.Product(nil), existing...)
	sort.SliceStable(stored, func(i, j int) bool {
		return domain.KeyOf(stored[i]).String() < domain.KeyOf(stored[j]).String()
	})

	var plans []plan
	unchanged := 0
	matched := map[domain.IdentityKey]bool{}

	for _, cur := range stored {
		key := domain.KeyOf(cur)
		lp, ok := liveByKey[key]
		if !ok {
			if checkStock && !(cur.Stock == 0 && cur.Status != domain.StatusActive) {
				next := cur.Clone()
				next.Stock = 0
				if next.Status != domain.StatusDisabled {
					next.Status = domain.StatusOutOfStock
				}
				plans = append(plans, plan{product: next, kind: domain.ChangeDisabled, diffs: []domain.SyncDiff{{
					ProductID:  cur.ID,
					SKU:        cur.SKU,
					Field:      "status",
					OldValue:   string(cur.Status),
					NewValue:   string(next.Status),
					ChangeType: domain.ChangeDisabled,
				}}})
				continue
			}
			unchanged++
			continue
		}
		matched[key] = true

		next := cur.Clone()
		var diffs []domain.SyncDiff
		if checkPrice && lp.Cost != nil && !sameAmount(cur.Cost, lp.Cost) {
			diffs = append(diffs, domain.SyncDiff{
				ProductID:  cur.ID,
				SKU:        cur.SKU,
				Field:      "price",
				OldValue:   value(cur.Cost),
				NewValue:   *lp.Cost,
				ChangeType: domain.ChangePrice,
			})
			if dedup.FollowsCost(cur) {
				next.Price = domain.Float(*lp.Cost)
			}
			next.Cost = domain.Float(*lp.Cost)
		}
		// A live record without any stock signal leaves stored stock alone.
		if checkStock && !lp.StockUnknown {
			status := liveStatus(cur, lp)
			if cur.Stock != lp.Stock || cur.Status != status {
				diffs = append(diffs, domain.SyncDiff{
					ProductID:  cur.ID,
					SKU:        cur.SKU,
					Field:      "stock",
					OldValue:   cur.Stock,
					NewValue:   lp.Stock,
					ChangeType: domain.ChangeStock,
				})
				next.Stock = lp.Stock
				next.Status = status
			}
		}
		if len(diffs) == 0 {
			unchanged++
			continue
		}
		plans = append(plans, plan{product: next, diffs: diffs, kind: diffs[0].ChangeType})
	}

	if syncType == domain.SyncFull {
		for _, key := range liveOrder {
			if matched[key] {
				continue
			}
			p := liveByKey[key]
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			if p.ImportedAt.IsZero() {
				p.ImportedAt = r.now()
			}
			plans = append(plans, plan{product: p, kind: domain.ChangeNew, diffs: []domain.SyncDiff{{
				ProductID:  p.ID,
				SKU:        p.SKU,
				Field:      "product",
				NewValue:   p.Title,
				ChangeType: domain.ChangeNew,
			}}})
		}
	}
	return plans, unchanged
}

// apply writes each plan as one upsert so price and stock land together.
func (r *Reconciler) apply(ctx context.Context, plans []plan, out *Outcome) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.cfg.MaxConcurrency)
	now := r.now()

	for _, pl := range plans {
		pl := pl
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				r.record(&mu, out, pl, err)
				return nil
			}
			pl.product.UpdatedAt = now
			policy := domain.ConflictReplace
			if pl.kind == domain.ChangeNew {
				policy = domain.ConflictSkip
			}
			err := r.store.Upsert(ctx, pl.product, policy)
			r.record(&mu, out, pl, err)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(out.Result.Failures, func(i, j int) bool {
		return out.Result.Failures[i].SKU < out.Result.Failures[j].SKU
	})
}

func (r *Reconciler) record(mu *sync.Mutex, out *Outcome, pl plan, err error) {
	mu.Lock()
	defer mu.Unlock()

	if err != nil {
		out.Result.Errors++
		out.Result.Failures = append(out.Result.Failures, domain.ApplyFailure{
			ProductID: pl.product.ID,
			SKU:       pl.product.SKU,
			Error:     err.Error(),
		})
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn("sync apply failed", "product", pl.product.ID, "sku", pl.product.SKU, "error", err)
		}
		return
	}

	switch pl.kind {
	case domain.ChangeDisabled:
		out.Result.Disabled++
	case domain.ChangeNew:
		out.Result.Created++
	default:
		out.Result.Updated++
	}

	if pl.kind == domain.ChangeNew {
		return
	}
	switch {
	case pl.product.Stock == 0 && stockChanged(pl):
		out.OutOfStock = append(out.OutOfStock, pl.product)
	case pl.product.Stock > 0 && pl.product.Stock <= r.cfg.LowStockThreshold && stockChanged(pl):
		out.LowStock = append(out.LowStock, pl.product)
	}
}

func stockChanged(pl plan) bool {
	for _, d := range pl.diffs {
		if d.ChangeType == domain.ChangeStock || d.ChangeType == domain.ChangeDisabled {
			return true
		}
	}
	return false
}

func liveStatus(cur, live domain.Product) domain.ProductStatus {
	if cur.Status == domain.StatusDisabled {
		return domain.StatusDisabled
	}
	switch {
	case live.Stock > 0:
		return domain.StatusActive
	case live.Status == domain.StatusOutOfStock:
		return domain.StatusOutOfStock
	case cur.Stock > 0:
		// The feed reports zero units for a product stored as in stock.
		return domain.StatusOutOfStock
	}
	return cur.Status
}

func sameAmount(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return math.Abs(*a-*b) < 1e-9
}

func value(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
