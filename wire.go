package main

import (
	"context"
	"fmt"
	"net/http"

	amqp "github.com/rabbitmq/amqp091-go"

	"amazon-scraper/browser"
	"amazon-scraper/config"
	"amazon-scraper/notify"
	"amazon-scraper/storage"
	"amazon-scraper/utils"
)

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.StorageDriver {
	case "mongo":
		store, err = storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, cfg.ScheduleCollection)
	case "postgres":
		store, err = storage.NewPostgresStore(ctx, cfg.DSN())
	case "memory":
		logger.Warn("[storage] Using in-memory storage, nothing survives a restart")
		store = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (want mongo, postgres or memory)", cfg.StorageDriver)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("[storage] Connected to %s", cfg.StorageDriver)

	if cfg.CSVOutputPath == "" {
		return store, nil
	}
	w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("[storage] Exporting persisted listings to %s", cfg.CSVOutputPath)
	return storage.WithCSV(store, w), nil
}

func openBrowser(cfg *config.Config) (browser.Browser, error) {
	switch cfg.Scraper.BrowserDriver {
	case "chromedp":
		chrome, err := browser.LaunchChrome(browser.ChromeOptions{
			Headless:  cfg.Scraper.Headless,
			ChromeBin: cfg.Scraper.ChromeBin,
			UserAgent: cfg.Scraper.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		return chrome, nil
	case "static":
		client := &http.Client{Timeout: cfg.Scraper.NavTimeout}
		return browser.NewStatic(browser.NewHTTPFetcher(client, cfg.Scraper.UserAgent)), nil
	default:
		return nil, fmt.Errorf("unknown BROWSER_DRIVER %q (want chromedp or static)", cfg.Scraper.BrowserDriver)
	}
}

// newNotifier builds every configured alert channel. The returned func closes them.
func newNotifier(cfg *config.Config, logger *utils.Logger) (notify.Notifier, func(), error) {
	var (
		channels notify.Multi
		closers  []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("[notify] Can't close alert channel: %v", err)
			}
		}
	}

	if cfg.Alerts.SMTPHost != "" {
		email, err := notify.NewEmailNotifier(cfg.Alerts, nil)
		if err != nil {
			return nil, nil, err
		}
		channels = append(channels, email)
		logger.Info("[notify] Failure emails go to %v", cfg.Alerts.To)
	}

	if cfg.Alerts.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.Alerts.RabbitMQURL)
		if err != nil {
			return nil, nil, fmt.Errorf("can't open RabbitMQ connection: %w", err)
		}
		closers = append(closers, conn.Close)

		mq, err := notify.NewRabbitMQ(conn, cfg.Alerts.RabbitMQExchange)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append([]func() error{mq.Close}, closers...)
		channels = append(channels, notify.NewAMQPNotifier(mq, cfg.Alerts.RabbitMQRoutingKey, nil))
		logger.Info("[notify] Failure events published to exchange %s", cfg.Alerts.RabbitMQExchange)
	}

	if len(channels) == 0 {
		logger.Warn("[notify] No alert channel configured, failures are only logged")
		return notify.NewLogNotifier(logger), closeAll, nil
	}
	return channels, closeAll, nil
}
