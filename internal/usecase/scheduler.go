package usecase

import (
	"context"
	"log/slog"
	"time"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

// Scheduler wires the interval driver with periodic supplier syncs.
type Scheduler struct {
	driver  ports.Scheduler
	service *Service
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring syncs.
func NewScheduler(driver ports.Scheduler, service *Service, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, service: service, logger: logger.With("component", "scheduler")}
}

// Start registers the full sync of every active supplier with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.service == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.SyncAll(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// SyncAll runs a full sync for each active supplier in turn. Failures are
// logged and do not stop the remaining suppliers.
func (s *Scheduler) SyncAll(ctx context.Context, trigger time.Time) {
	suppliers, err := s.service.suppliers.List(ctx, domain.SupplierFilter{Status: domain.SupplierActive})
	if err != nil {
		s.logger.Error("list suppliers", "error", err)
		return
	}

	s.logger.Info("scheduled sync", "trigger", trigger, "suppliers", len(suppliers))
	for _, sup := range suppliers {
		if ctx.Err() != nil {
			return
		}
		if sup.FeedURL == "" {
			continue
		}
		res, err := s.service.SyncSupplier(ctx, sup.ID, domain.SyncFull)
		if err != nil {
			s.logger.Warn("scheduled sync failed", "supplier", sup.ID, "error", err)
			continue
		}
		s.logger.Info("scheduled sync done", "supplier", sup.ID, "state", res.State, "diffs", len(res.Diffs))
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
