package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"CatalogSync/internal/config"
	"CatalogSync/internal/detector"
	"CatalogSync/internal/httpapi"
	"CatalogSync/internal/infrastructure/fetch"
	"CatalogSync/internal/infrastructure/notify"
	"CatalogSync/internal/infrastructure/oracle"
	"CatalogSync/internal/infrastructure/parser"
	"CatalogSync/internal/infrastructure/scheduler"
	"CatalogSync/internal/infrastructure/storage"
	"CatalogSync/internal/infrastructure/telegram"
	"CatalogSync/internal/logging"
	"CatalogSync/internal/mapper"
	"CatalogSync/internal/ports"
	"CatalogSync/internal/pricing"
	"CatalogSync/internal/reconcile"
	"CatalogSync/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	service   *usecase.Service
	scheduler *usecase.Scheduler
	db        *sql.DB
	redis     *redis.Client
}

// New builds a runnable application. With an empty database DSN the catalog
// lives in memory and the supplier registry is seeded from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	catalog, suppliers, orders, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher := fetch.NewClient(fetch.Config{
		Timeout:   cfg.Fetch.Timeout,
		Retries:   cfg.Fetch.Retries,
		Backoff:   cfg.Fetch.Backoff,
		RPS:       cfg.Fetch.RPS,
		Burst:     cfg.Fetch.Burst,
		UserAgent: cfg.Fetch.UserAgent,
	}, baseLogger)

	registry := parser.NewRegistry(fetcher, parser.Config{
		MaxPages: cfg.Import.MaxPages,
		Tabular: parser.TabularConfig{
			Encoding:    cfg.Import.Tabular.Encoding,
			Delimiter:   cfg.Import.Tabular.Delimiter,
			ItemElement: cfg.Import.Tabular.ItemElement,
		},
		Selectors: cfg.Import.Selectors,
	}, baseLogger)

	var dynamic ports.DynamicPricer
	if cfg.Pricing.OracleURL != "" {
		dynamic = oracle.NewClient(cfg.Pricing.OracleURL, cfg.Pricing.OracleAPIKey, cfg.Pricing.OracleTimeout)
	}

	a.service = usecase.NewService(usecase.ServiceDeps{
		Detector:  detector.New(cfg.Platforms),
		Collector: parser.NewStrategySource(registry, cfg.Import.Parallel, baseLogger),
		Mapper: mapper.New(mapper.Options{
			AssumedInStockQuantity: cfg.Import.AssumedInStockQuantity,
			MaxVariantCombinations: cfg.Import.MaxVariantCombinations,
			DefaultCurrency:        cfg.Import.DefaultCurrency,
		}, baseLogger),
		Catalog:   catalog,
		Suppliers: suppliers,
		Orders:    orders,
		Reconciler: reconcile.New(catalog, reconcile.Config{
			MaxConcurrency:    cfg.Sync.MaxConcurrency,
			FailureThreshold:  cfg.Sync.FailureThreshold,
			LowStockThreshold: cfg.Sync.LowStockThreshold,
		}, baseLogger),
		Pricing:  pricing.NewEngine(cfg.Pricing.CompetitiveFactor, dynamic, baseLogger),
		Notifier: notifier,
		Settings: usecase.Settings{
			DuplicateStrategy: cfg.Import.DuplicateStrategy,
			Criteria:          cfg.Import.Criteria,
			ProductWeights:    cfg.Scoring.Product,
			SupplierWeights:   cfg.Scoring.Supplier,
			LowScoreThreshold: cfg.Scoring.LowScoreThreshold,
			PricingRules:      cfg.Pricing.Rules,
			Backup:            cfg.Backup,
			MaxErrorList:      cfg.Import.MaxErrorList,
			FeedAPIKey:        cfg.Import.FeedAPIKey,
			AllowLocalFiles:   cfg.Import.AllowLocalFiles,
		},
		Logger: baseLogger,
	})

	if cfg.Scheduler.Enabled {
		a.scheduler = usecase.NewScheduler(scheduler.NewIntervalScheduler(cfg.Scheduler.Interval), a.service, baseLogger)
	}
	return a, nil
}

// Service exposes the operation surface for one-shot commands.
func (a *Application) Service() *usecase.Service {
	return a.service
}

// Handler returns the HTTP router.
func (a *Application) Handler() http.Handler {
	return httpapi.NewRouter(a.service, a.logger)
}

// Serve runs the HTTP listener and, when enabled, the sync scheduler until
// ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: a.Handler()}

	g, ctx := errgroup.WithContext(ctx)

	// The scheduler starts first so a failure here leaves no listener behind.
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)
	}

	g.Go(func() error {
		a.logger.Info("http listening", "addr", a.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if a.scheduler != nil {
			if err := a.scheduler.Stop(shutdownCtx); err != nil {
				a.logger.Warn("scheduler stop", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the database and redis connections.
func (a *Application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
}

func (a *Application) openStores(ctx context.Context) (ports.CatalogStore, ports.SupplierRegistry, ports.OrderHistory, error) {
	if a.cfg.Database.DSN == "" {
		suppliers := storage.NewMemorySuppliers(a.cfg.Suppliers...)
		a.logger.Info("using in-memory catalog", "suppliers", len(a.cfg.Suppliers))
		return storage.NewMemoryCatalog(), suppliers, suppliers, nil
	}

	db, err := sql.Open("postgres", a.cfg.Database.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if a.cfg.Database.Migrate {
		if err := storage.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	a.db = db

	suppliers := storage.NewPostgresSuppliers(db)
	return storage.NewPostgresCatalog(db), suppliers, suppliers, nil
}

func (a *Application) buildNotifier(ctx context.Context) (ports.Notifier, error) {
	notifiers := notify.Multi{notify.NewLog(a.logger)}

	if tg := a.cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifiers = append(notifiers, telegram.NewNotifier(tg.BotToken, tg.ChatID, a.logger))
	}

	if a.cfg.Redis.URL != "" {
		client, err := notify.NewRedisClient(ctx, notify.RedisConfig{
			URL:         a.cfg.Redis.URL,
			Channel:     a.cfg.Redis.Channel,
			DialTimeout: a.cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.redis = client
		notifiers = append(notifiers, notify.NewPublisher(client, a.cfg.Redis.Channel, a.logger))
	}
	return notifiers, nil
}
