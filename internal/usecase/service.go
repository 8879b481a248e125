package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CatalogSync/internal/backup"
	"CatalogSync/internal/detector"
	"CatalogSync/internal/domain"
	"CatalogSync/internal/mapper"
	"CatalogSync/internal/metrics"
	"CatalogSync/internal/ports"
	"CatalogSync/internal/pricing"
	"CatalogSync/internal/quality"
	"CatalogSync/internal/reconcile"
	"CatalogSync/internal/scoring"
)

const defaultMaxErrorList = 50

// Settings are the policy knobs of the operation surface.
type Settings struct {
	DuplicateStrategy domain.DuplicateStrategy
	Criteria          quality.Criteria
	ProductWeights    scoring.ProductWeights
	SupplierWeights   scoring.SupplierWeights
	LowScoreThreshold float64
	PricingRules      []domain.PricingRule
	Backup            domain.BackupCriteria
	MaxErrorList      int
	// FeedAPIKey authenticates token-based feeds that carry no own token.
	FeedAPIKey string
	// AllowLocalFiles lets import locators name local files. Registered
	// supplier feeds may always do so.
	AllowLocalFiles bool
}

// ServiceDeps wires all driven adapters into the operation surface.
type ServiceDeps struct {
	Detector   *detector.Detector
	Collector  ports.SourceCollector
	Mapper     *mapper.Mapper
	Catalog    ports.CatalogStore
	Suppliers  ports.SupplierRegistry
	Orders     ports.OrderHistory
	Reconciler *reconcile.Reconciler
	Pricing    *pricing.Engine
	Notifier   ports.Notifier
	Settings   Settings
	Logger     *slog.Logger
}

// Service implements detection, import, sync, scoring, pricing and backup
// selection on top of the driven adapters.
type Service struct {
	detector   *detector.Detector
	collector  ports.SourceCollector
	mapper     *mapper.Mapper
	catalog    ports.CatalogStore
	suppliers  ports.SupplierRegistry
	orders     ports.OrderHistory
	reconciler *reconcile.Reconciler
	pricing    *pricing.Engine
	notifier   ports.Notifier
	settings   Settings
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the operation surface. Missing policy components
// fall back to their defaults.
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := deps.Settings
	if settings.DuplicateStrategy == "" {
		settings.DuplicateStrategy = domain.DuplicateSkip
	}
	if settings.ProductWeights == (scoring.ProductWeights{}) {
		settings.ProductWeights = scoring.DefaultProductWeights
	}
	if settings.SupplierWeights == (scoring.SupplierWeights{}) {
		settings.SupplierWeights = scoring.DefaultSupplierWeights
	}
	if settings.MaxErrorList <= 0 {
		settings.MaxErrorList = defaultMaxErrorList
	}

	s := &Service{
		detector:   deps.Detector,
		collector:  deps.Collector,
		mapper:     deps.Mapper,
		catalog:    deps.Catalog,
		suppliers:  deps.Suppliers,
		orders:     deps.Orders,
		reconciler: deps.Reconciler,
		pricing:    deps.Pricing,
		notifier:   deps.Notifier,
		settings:   settings,
		logger:     logger.With("component", "service"),
		now:        time.Now,
	}
	if s.detector == nil {
		s.detector = detector.New(nil)
	}
	if s.mapper == nil {
		s.mapper = mapper.New(mapper.Options{}, logger)
	}
	if s.reconciler == nil && s.catalog != nil {
		s.reconciler = reconcile.New(s.catalog, reconcile.Config{}, logger)
	}
	if s.pricing == nil {
		s.pricing = pricing.NewEngine(0, nil, logger)
	}
	return s
}

// DetectSource classifies a locator.
func (s *Service) DetectSource(locator string) domain.Detection {
	return s.detector.Detect(locator)
}

// ScoreSupplier recomputes and stores the composite score of a supplier.
func (s *Service) ScoreSupplier(ctx context.Context, supplierID string) (domain.SupplierScore, error) {
	const op = "scoreSupplier"

	sup, err := s.suppliers.Get(ctx, supplierID)
	if err != nil {
		return domain.SupplierScore{}, wrap(op, err)
	}

	var stats domain.OrderStats
	if s.orders != nil {
		stats, err = s.orders.SupplierStats(ctx, sup.ID)
		if err != nil {
			return domain.SupplierScore{}, wrap(op, fmt.Errorf("load order stats: %w", err))
		}
	}

	composite, breakdown := scoring.ScoreSupplier(stats, s.settings.SupplierWeights)
	score := domain.SupplierScore{
		SupplierID: sup.ID,
		Score:      composite,
		Breakdown:  breakdown,
		Orders:     stats.TotalOrders,
		ComputedAt: s.now().UTC(),
	}

	if err := s.suppliers.UpdateScore(ctx, sup.ID, score); err != nil {
		return domain.SupplierScore{}, wrap(op, fmt.Errorf("store score: %w", err))
	}
	metrics.SetSupplierScore(sup.ID, composite)
	s.logger.Info("supplier scored", "supplier", sup.ID, "score", composite, "orders", stats.TotalOrders)

	if s.settings.LowScoreThreshold > 0 && composite < s.settings.LowScoreThreshold {
		s.emit(ctx, domain.NotifyLowScore, map[string]any{
			"supplierId": sup.ID,
			"supplier":   sup.Name,
			"score":      composite,
			"threshold":  s.settings.LowScoreThreshold,
		})
	}
	return score, nil
}

// ApplyPricingRules reprices the products in scope and persists the
// changed selling prices. Empty rules fall back to the configured ones.
func (s *Service) ApplyPricingRules(ctx context.Context, rules []domain.PricingRule, scope domain.PricingScope) (domain.PricingResult, error) {
	const op = "applyPricingRules"

	if len(rules) == 0 {
		rules = s.settings.PricingRules
	}

	products, err := s.catalog.List(ctx, domain.ProductFilter{
		OwnerID:    scope.OwnerID,
		SupplierID: scope.SupplierID,
		Category:   scope.Category,
		IDs:        scope.ProductIDs,
	})
	if err != nil {
		return domain.PricingResult{}, wrap(op, fmt.Errorf("list products: %w", err))
	}

	res := s.pricing.Apply(ctx, products, rules)

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	applied := res.Updates[:0]
	for _, u := range res.Updates {
		p := byID[u.ProductID]
		p.Price = domain.Float(u.NewPrice)
		p.UpdatedAt = s.now().UTC()
		if err := s.catalog.Upsert(ctx, p, domain.ConflictReplace); err != nil {
			res.Errors++
			res.ErrorList = s.appendError(res.ErrorList, fmt.Sprintf("%s: %v", u.SKU, err))
			s.logger.Warn("persist price failed", "product", u.ProductID, "error", err)
			continue
		}
		applied = append(applied, u)
	}
	res.Updates = applied
	res.Updated = len(applied)
	res.Success = res.Errors == 0 || res.Updated > 0

	metrics.RecordPriceUpdates(res.Updated)
	s.logger.Info("pricing applied", "total", res.Total, "updated", res.Updated, "unchanged", res.Unchanged, "skipped", res.Skipped, "errors", res.Errors)
	return res, nil
}

// FindBackupSupplier ranks alternate suppliers for the product stored under
// productKey. Nil criteria use the configured defaults.
func (s *Service) FindBackupSupplier(ctx context.Context, productKey string, criteria *domain.BackupCriteria) (domain.BackupResult, error) {
	const op = "findBackupSupplier"

	key, ok := domain.ParseIdentityKey(productKey)
	if !ok {
		return domain.BackupResult{}, wrap(op, fmt.Errorf("parse key %q: %w", productKey, domain.ErrProductNotFound))
	}
	product, err := s.catalog.Read(ctx, key)
	if err != nil {
		return domain.BackupResult{}, wrap(op, fmt.Errorf("read product: %w", err))
	}
	if product == nil {
		return domain.BackupResult{}, wrap(op, fmt.Errorf("product %s: %w", productKey, domain.ErrProductNotFound))
	}

	c := s.settings.Backup
	if criteria != nil {
		c = *criteria
	}
	res, err := s.rankBackups(ctx, *product, c)
	if err != nil {
		return domain.BackupResult{}, wrap(op, err)
	}
	return res, nil
}

func (s *Service) rankBackups(ctx context.Context, product domain.Product, criteria domain.BackupCriteria) (domain.BackupResult, error) {
	pool, err := s.suppliers.List(ctx, domain.SupplierFilter{Status: domain.SupplierActive})
	if err != nil {
		return domain.BackupResult{}, fmt.Errorf("list suppliers: %w", err)
	}
	return backup.Rank(product, pool, criteria), nil
}

func (s *Service) emit(ctx context.Context, t domain.NotificationType, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(ctx, domain.Notification{Type: t, Payload: payload, IssuedAt: s.now().UTC()})
}

func (s *Service) appendError(list []string, msg string) []string {
	if len(list) >= s.settings.MaxErrorList {
		return list
	}
	return append(list, msg)
}

func wrap(op string, err error) error {
	var opErr *domain.OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &domain.OperationError{Op: op, Err: err}
}
