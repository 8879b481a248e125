package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"CatalogSync/internal/dedup"
	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/metrics"
	"CatalogSync/internal/quality"
	"CatalogSync/internal/scoring"
)

// ImportRequest describes one ingestion run.
type ImportRequest struct {
	Source     extract.Source
	OwnerID    string
	SupplierID string
	// Country is the origin checked by the quality filter; it defaults to
	// the registered supplier's country.
	Country  string
	Strategy domain.DuplicateStrategy
	Criteria *quality.Criteria
}

// ImportOutcome pairs a result with the fatal error of its run, if any.
type ImportOutcome struct {
	Result domain.ImportResult
	Err    error
}

// ImportFromSource detects, extracts, maps, filters, scores and stores the
// products of one source. Only a fatal source failure returns an error.
func (s *Service) ImportFromSource(ctx context.Context, req ImportRequest) (domain.ImportResult, error) {
	res := s.newImportResult()

	src, det, err := s.resolveSource(req.Source, s.settings.AllowLocalFiles)
	res.Source = det
	if err != nil {
		return s.failImport(ctx, req, res, err)
	}

	records, err := s.collector.Collect(ctx, src)
	if err != nil {
		return s.failImport(ctx, req, res, err)
	}

	s.ingest(ctx, req, src, records, &res)
	return res, nil
}

// ImportFromSources reads every source concurrently and then stores the
// batches one after another in request order.
func (s *Service) ImportFromSources(ctx context.Context, reqs []ImportRequest) []ImportOutcome {
	out := make([]ImportOutcome, len(reqs))

	var (
		sources []extract.Source
		pending []int
	)
	for i, req := range reqs {
		res := s.newImportResult()
		src, det, err := s.resolveSource(req.Source, s.settings.AllowLocalFiles)
		res.Source = det
		out[i].Result = res
		if err != nil {
			out[i].Result, out[i].Err = s.failImport(ctx, req, res, err)
			continue
		}
		sources = append(sources, src)
		pending = append(pending, i)
	}

	for j, collected := range s.collector.CollectAll(ctx, sources) {
		i := pending[j]
		if collected.Err != nil {
			out[i].Result, out[i].Err = s.failImport(ctx, reqs[i], out[i].Result, collected.Err)
			continue
		}
		s.ingest(ctx, reqs[i], collected.Source, collected.Records, &out[i].Result)
	}
	return out
}

func (s *Service) newImportResult() domain.ImportResult {
	return domain.ImportResult{
		RunID:      uuid.NewString(),
		Rejections: map[string]int{},
		StartedAt:  s.now().UTC(),
	}
}

// resolveSource fills the source type, platform and mapping from detection.
// Request values win over detected ones. Locators that are not http(s) URLs
// are refused unless allowLocal is set.
func (s *Service) resolveSource(src extract.Source, allowLocal bool) (extract.Source, domain.Detection, error) {
	det := s.detector.Detect(src.Locator)
	if strings.TrimSpace(src.Locator) == "" {
		return src, det, &domain.SourceError{Locator: src.Locator, Stage: "detect", Err: domain.ErrInvalidLocator}
	}
	src.AllowLocal = false
	if !IsRemoteLocator(src.Locator) {
		if !allowLocal {
			return src, det, &domain.SourceError{Locator: src.Locator, Stage: "detect", Err: domain.ErrInvalidLocator}
		}
		src.AllowLocal = true
	}

	if src.Type == "" || src.Type == domain.SourceUnknown {
		src.Type = det.Type
	} else {
		det.Type = src.Type
	}
	if src.Type == domain.SourceUnknown {
		return src, det, &domain.SourceError{Locator: src.Locator, Stage: "detect", Err: domain.ErrInvalidLocator}
	}
	if src.Platform == "" {
		src.Platform = det.Platform
	}
	if src.Auth.Mode == "" {
		src.Auth.Mode = det.AuthMode
	}
	if (src.Auth.Mode == domain.AuthBearer || src.Auth.Mode == domain.AuthAPIKey) && src.Auth.Token == "" {
		src.Auth.Token = s.settings.FeedAPIKey
	}

	mapping := make(map[string]string, len(det.SuggestedMapping)+len(src.Mapping))
	for k, v := range det.SuggestedMapping {
		mapping[k] = v
	}
	for k, v := range src.Mapping {
		mapping[k] = v
	}
	src.Mapping = mapping
	return src, det, nil
}

// IsRemoteLocator reports whether locator is an absolute http(s) URL.
func IsRemoteLocator(locator string) bool {
	u, err := url.Parse(strings.TrimSpace(locator))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *Service) failImport(ctx context.Context, req ImportRequest, res domain.ImportResult, err error) (domain.ImportResult, error) {
	var srcErr *domain.SourceError
	if !errors.As(err, &srcErr) {
		err = &domain.SourceError{Locator: req.Source.Locator, Stage: "extract", Err: err}
	}

	res.Success = false
	res.ErrorList = s.appendError(res.ErrorList, err.Error())
	res.FinishedAt = s.now().UTC()

	s.logger.Error("import failed", "run", res.RunID, "locator", req.Source.Locator, "error", err)
	s.emit(ctx, domain.NotifyImportFailure, map[string]any{
		"runId":      res.RunID,
		"locator":    req.Source.Locator,
		"supplierId": req.SupplierID,
		"error":      err.Error(),
	})
	return res, wrap("importFromSource", err)
}

func (s *Service) ingest(ctx context.Context, req ImportRequest, src extract.Source, records []extract.Record, res *domain.ImportResult) {
	logger := s.logger.With("run", res.RunID, "locator", src.Locator)

	strategy := req.Strategy
	if strategy == "" {
		strategy = s.settings.DuplicateStrategy
	}
	criteria := s.settings.Criteria
	if req.Criteria != nil {
		criteria = *req.Criteria
	}
	country, supplierScore := s.supplierContext(ctx, req)

	res.Total = len(records)
	accepted := make([]domain.Product, 0, len(records))
	for i, rec := range records {
		draft := s.mapper.Map(rec)
		p := draft.Product
		p.OwnerID = req.OwnerID
		p.SupplierID = req.SupplierID
		p.SourceType = src.Type
		if p.SourceURL == "" {
			p.SourceURL = src.Locator
		}
		if draft.VariantsTruncated {
			logger.Debug("variant combinations truncated", "index", i, "sku", p.SKU)
		}

		verdict := quality.Evaluate(p, country, criteria)
		if !verdict.Accepted {
			res.Skipped++
			res.Rejections[verdict.Reason]++
			logger.Debug("record rejected", "index", i, "reason", verdict.Reason)
			continue
		}

		p.QualityScore = scoring.ScoreProduct(p, s.settings.ProductWeights)
		p.SupplierScore = supplierScore
		accepted = append(accepted, p)
	}

	part := dedup.Partition(ctx, s.catalog, accepted, strategy)
	res.Duplicates = len(part.Duplicates)
	for _, f := range part.Failed {
		res.Errors++
		res.ErrorList = s.appendError(res.ErrorList, fmt.Sprintf("%s: %v", f.Key, f.Err))
		logger.Warn("dedup lookup failed", "index", f.Index, "key", f.Key.String(), "error", f.Err)
	}

	if len(part.Unique) > 0 {
		fresh := make([]domain.Product, len(part.Unique))
		for i, item := range part.Unique {
			fresh[i] = item.Product
		}
		n, err := s.catalog.BulkInsert(ctx, fresh)
		if err != nil {
			res.Errors += len(fresh)
			res.ErrorList = s.appendError(res.ErrorList, fmt.Sprintf("bulk insert: %v", err))
			logger.Warn("bulk insert failed", "count", len(fresh), "error", err)
		} else {
			res.Imported = n
			// Rows claimed by a concurrent writer between read and insert.
			res.Duplicates += len(fresh) - n
		}
	}

	if strategy != domain.DuplicateSkip {
		for _, item := range part.Duplicates {
			if item.InBatch || item.Existing == nil {
				continue
			}
			if err := s.catalog.Upsert(ctx, item.Product, domain.ConflictReplace); err != nil {
				res.Errors++
				res.ErrorList = s.appendError(res.ErrorList, fmt.Sprintf("%s: %v", item.Key, err))
				logger.Warn("update duplicate failed", "index", item.Index, "key", item.Key.String(), "error", err)
				continue
			}
			res.Updated++
		}
	}

	res.Success = res.Errors == 0 || res.Imported+res.Updated > 0
	res.FinishedAt = s.now().UTC()
	if len(res.Rejections) == 0 {
		res.Rejections = nil
	}

	metrics.RecordImport(res.Imported, res.Updated, res.Skipped, res.Duplicates, res.Errors, res.Rejections)
	logger.Info("import finished",
		"total", res.Total,
		"imported", res.Imported,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"duplicates", res.Duplicates,
		"errors", res.Errors,
	)
}

func (s *Service) supplierContext(ctx context.Context, req ImportRequest) (string, float64) {
	country := req.Country
	if req.SupplierID == "" || s.suppliers == nil {
		return country, 0
	}
	sup, err := s.suppliers.Get(ctx, req.SupplierID)
	if err != nil {
		s.logger.Debug("supplier not registered", "supplier", req.SupplierID, "error", err)
		return country, 0
	}
	if country == "" {
		country = sup.Country
	}
	return country, sup.QualityScore
}
