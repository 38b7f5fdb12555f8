package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"amazon-scraper/api"
	"amazon-scraper/config"
	"amazon-scraper/scheduler"
	"amazon-scraper/scraper/amazon"
	"amazon-scraper/services"
	"amazon-scraper/utils"
)

const usage = `usage:
  amazon-scraper [serve]                 run the schedule evaluator and the admin API
  amazon-scraper scrape <query> [coll]   crawl one query now and print a summary`

var errUsage = errors.New("bad usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := utils.NewLoggerWith(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "scrape":
		err = scrapeOnce(ctx, cfg, logger, args)
	default:
		err = errUsage
	}
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, usage)
		stop()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Amazon Scraping System starting ===")
	logger.Info("Config · storage: %s | browser: %s | pages: %d | items/category: %d | poll: %s | runs: %d",
		cfg.StorageDriver, cfg.Scraper.BrowserDriver, cfg.Scraper.MaxPages, cfg.Scraper.MaxProducts,
		cfg.Scheduler.PollInterval, cfg.Scheduler.MaxConcurrentRuns)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "store", store.Close)

	b, err := openBrowser(cfg)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "browser", b.Close)

	crawler, err := amazon.NewCrawler(cfg, b, store, logger)
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	coordinator := scheduler.NewCoordinator(cfg.Scheduler, store, crawler, notifier, services.NewSummaryService(logger), logger)
	evaluator := scheduler.NewEvaluator(cfg.Scheduler, store, coordinator, logger)
	if cfg.Scheduler.ResetStaleRuns {
		if _, err := evaluator.ResetStale(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(store, crawler, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return evaluator.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("[api] Listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("Shutting down, waiting for in-flight runs")
	evaluator.Wait()
	logger.Info("=== Shutdown complete ===")
	return err
}

func scrapeOnce(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return errUsage
	}
	query := strings.TrimSpace(args[0])
	collection := cfg.Scheduler.Categories[query]
	if len(args) > 1 {
		collection = args[1]
	}
	if collection == "" {
		collection = strings.ToLower(query) + "_collection"
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "store", store.Close)

	b, err := openBrowser(cfg)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "browser", b.Close)

	crawler, err := amazon.NewCrawler(cfg, b, store, logger)
	if err != nil {
		return err
	}

	res, err := crawler.Crawl(ctx, query, collection)
	if res != nil {
		summary := services.NewSummaryService(logger)
		summary.Print(os.Stdout, summary.Generate(query, collection, res.Listings))
	}
	if err != nil {
		return fmt.Errorf("scrape %q: %w", query, err)
	}
	return nil
}

func closeLogged(logger *utils.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("Can't close %s: %v", name, err)
	}
}
