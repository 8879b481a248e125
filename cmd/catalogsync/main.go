package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"CatalogSync/internal/app"
	"CatalogSync/internal/config"
	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/logging"
	"CatalogSync/internal/usecase"
)

const usage = `usage: catalogsync <command> [flags]

commands:
  serve                       run the HTTP API and scheduler
  detect  -locator URL        classify a source
  import  -locator URL|PATH   ingest one source (local files allowed)
  sync    -supplier ID        reconcile a supplier against its feed
  score   -supplier ID        recompute a supplier score
  price   [-owner ID]         apply configured pricing rules
  backup  -product KEY        rank alternate suppliers`

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: cannot load .env: %v", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	os.Exit(execute(os.Args[1], os.Args[2:]))
}

func execute(cmd string, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	cfg.Import.AllowLocalFiles = cmd != "serve"
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer application.Close()

	if err := run(ctx, application, cfg, cmd, args); err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, application *app.Application, cfg config.Config, cmd string, args []string) error {
	svc := application.Service()
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	switch cmd {
	case "serve":
		return application.Serve(ctx)

	case "detect":
		locator := fs.String("locator", "", "source URL or path")
		_ = fs.Parse(args)
		return printJSON(svc.DetectSource(*locator))

	case "import":
		locator := fs.String("locator", "", "source URL or path")
		sourceType := fs.String("type", "", "source type override (api, json, csv, xml, scraping)")
		owner := fs.String("owner", "", "owning account")
		supplier := fs.String("supplier", "", "supplier id")
		strategy := fs.String("strategy", "", "duplicate strategy (skip, update, replace)")
		_ = fs.Parse(args)

		req := usecase.ImportRequest{
			Source:     extract.Source{Locator: *locator, Type: domain.SourceType(*sourceType)},
			OwnerID:    *owner,
			SupplierID: *supplier,
		}
		if *strategy != "" {
			req.Strategy = domain.ParseDuplicateStrategy(*strategy)
		}
		res, err := svc.ImportFromSource(ctx, req)
		if perr := printJSON(res); perr != nil {
			return perr
		}
		return err

	case "sync":
		supplier := fs.String("supplier", "", "supplier id")
		syncType := fs.String("type", "full", "sync type (full, prices, inventory)")
		_ = fs.Parse(args)

		res, err := svc.SyncSupplier(ctx, *supplier, domain.ParseSyncType(*syncType))
		if perr := printJSON(res); perr != nil {
			return perr
		}
		return err

	case "score":
		supplier := fs.String("supplier", "", "supplier id")
		_ = fs.Parse(args)

		res, err := svc.ScoreSupplier(ctx, *supplier)
		if err != nil {
			return err
		}
		return printJSON(res)

	case "price":
		owner := fs.String("owner", "", "restrict to an owner")
		supplier := fs.String("supplier", "", "restrict to a supplier")
		category := fs.String("category", "", "restrict to a category")
		_ = fs.Parse(args)

		res, err := svc.ApplyPricingRules(ctx, cfg.Pricing.Rules, domain.PricingScope{
			OwnerID:    *owner,
			SupplierID: *supplier,
			Category:   *category,
		})
		if err != nil {
			return err
		}
		return printJSON(res)

	case "backup":
		product := fs.String("product", "", "product identity key")
		_ = fs.Parse(args)

		res, err := svc.FindBackupSupplier(ctx, *product, nil)
		if err != nil {
			return err
		}
		return printJSON(res)
	}

	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
