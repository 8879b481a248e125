package usecase

import (
	"context"
	"fmt"
	"strings"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/metrics"
	"CatalogSync/internal/scoring"
)

// SyncSupplier reconciles the stored catalog of a supplier against its live
// feed and raises stock and failure alerts.
func (s *Service) SyncSupplier(ctx context.Context, supplierID string, syncType domain.SyncType) (domain.SyncResult, error) {
	const op = "syncSupplier"

	sup, err := s.suppliers.Get(ctx, supplierID)
	if err != nil {
		return domain.SyncResult{}, wrap(op, err)
	}
	if syncType == "" {
		syncType = domain.SyncFull
	}

	outcome, runErr := s.reconciler.Run(ctx, sup, syncType, s.liveFeed(sup))
	res := outcome.Result

	if err := s.suppliers.RecordSync(ctx, sup.ID, s.now().UTC(), res.State); err != nil {
		s.logger.Warn("record sync failed", "supplier", sup.ID, "error", err)
	}

	metrics.RecordSync(string(syncType), string(res.State), diffCounts(res.Diffs))

	if res.State == domain.RunFailed {
		payload := map[string]any{
			"supplierId": sup.ID,
			"supplier":   sup.Name,
			"syncType":   string(syncType),
			"errors":     res.Errors,
		}
		if runErr != nil {
			payload["error"] = runErr.Error()
		}
		s.emit(ctx, domain.NotifySyncFailed, payload)
	}

	for _, p := range outcome.OutOfStock {
		s.alertStockOut(ctx, p)
	}
	for _, p := range outcome.LowStock {
		s.emit(ctx, domain.NotifyStockLow, map[string]any{
			"productId":  p.ID,
			"sku":        p.SKU,
			"supplierId": p.SupplierID,
			"stock":      p.Stock,
		})
	}

	if runErr != nil {
		return res, wrap(op, runErr)
	}
	return res, nil
}

func (s *Service) alertStockOut(ctx context.Context, p domain.Product) {
	payload := map[string]any{
		"productId":  p.ID,
		"sku":        p.SKU,
		"title":      p.Title,
		"supplierId": p.SupplierID,
	}

	res, err := s.rankBackups(ctx, p, s.settings.Backup)
	if err != nil {
		s.logger.Warn("backup lookup failed", "product", p.ID, "error", err)
	} else if res.Recommendation != nil {
		payload["backupSupplierId"] = res.Recommendation.ID
		payload["backupSupplier"] = res.Recommendation.Name
		payload["backupScore"] = res.Recommendation.QualityScore
	}
	s.emit(ctx, domain.NotifyStockOut, payload)
}

// liveFeed reads and maps the supplier's feed into catalog products.
func (s *Service) liveFeed(sup domain.Supplier) func(ctx context.Context) ([]domain.Product, error) {
	return func(ctx context.Context) ([]domain.Product, error) {
		src, _, err := s.resolveSource(extract.Source{
			Locator: sup.FeedURL,
			Type:    sup.FeedType,
			Auth:    sup.Auth,
		}, true)
		if err != nil {
			return nil, err
		}

		records, err := s.collector.Collect(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("collect feed: %w", err)
		}

		products := make([]domain.Product, 0, len(records))
		for _, rec := range records {
			p := s.mapper.Map(rec).Product
			if strings.TrimSpace(p.SKU) == "" && strings.TrimSpace(p.Title) == "" {
				continue
			}
			p.OwnerID = sup.OwnerID
			p.SupplierID = sup.ID
			p.SourceType = src.Type
			if p.SourceURL == "" {
				p.SourceURL = src.Locator
			}
			p.QualityScore = scoring.ScoreProduct(p, s.settings.ProductWeights)
			p.SupplierScore = sup.QualityScore
			products = append(products, p)
		}
		return products, nil
	}
}

func diffCounts(diffs []domain.SyncDiff) map[string]int {
	out := map[string]int{}
	for _, d := range diffs {
		out[string(d.ChangeType)]++
	}
	return out
}
