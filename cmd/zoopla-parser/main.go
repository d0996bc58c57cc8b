package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/bminaiev/zoopla-parser/internal/config"
	"github.com/bminaiev/zoopla-parser/internal/fetch"
	"github.com/bminaiev/zoopla-parser/internal/filter"
	"github.com/bminaiev/zoopla-parser/internal/floorplan"
	"github.com/bminaiev/zoopla-parser/internal/ledger"
	"github.com/bminaiev/zoopla-parser/internal/listing"
	"github.com/bminaiev/zoopla-parser/internal/notify"
	"github.com/bminaiev/zoopla-parser/internal/poller"
	"github.com/bminaiev/zoopla-parser/internal/site"
)

func main() {
	configPath := flag.String("config", "./configs", "directory holding config.yaml")
	checkID := flag.Int("check", 0, "diagnostic mode: process one listing id without ledger writes")
	recheckSkipped := flag.Bool("recheck-skipped", false, "re-fetch listings from the permanently-skipped set")
	flag.Parse()

	// Local .env is optional; viper picks the variables up afterwards.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	log.WithFields(logrus.Fields{
		"site":            cfg.Site,
		"storage_backend": cfg.Storage.Backend,
		"queries":         len(cfg.Queries),
		"subscribers":     len(cfg.Subscribers),
		"recheck_skipped": *recheckSkipped,
	}).Info("Configuration loaded")

	led, err := openLedger(cfg.Storage, log)
	if err != nil {
		log.Fatalf("Failed to initialize ledger storage: %v", err)
	}
	defer func() {
		if err := led.Close(); err != nil {
			log.WithError(err).Error("Error closing ledger")
		}
	}()

	adapter, err := site.ByName(cfg.Site)
	if err != nil {
		log.Fatalf("Failed to resolve site adapter: %v", err)
	}

	httpFetcher := fetch.NewHTTPFetcher(cfg.Fetch.CacheDir, cfg.Fetch.CacheEnabled, log)
	var fetcher fetch.Fetcher = httpFetcher
	if cfg.Fetch.Kind == "rod" {
		fetcher = fetch.NewRodFetcher(log)
	}

	// Images are always downloaded over plain HTTP, whichever fetcher
	// renders the pages.
	area := floorplan.NewReader(httpFetcher,
		floorplan.NewTesseract(cfg.OCR.TesseractBin, cfg.OCR.TessdataPath), log)
	parser := listing.NewParser(fetcher, adapter, area, log)

	policy := notify.DefaultRetryPolicy()
	if cfg.Delivery.RetryAttempts > 0 {
		policy.MaxAttempts = cfg.Delivery.RetryAttempts
	}
	if cfg.Delivery.RetryBackoff > 0 {
		policy.Backoff = cfg.Delivery.RetryBackoff
	}
	client, err := notify.NewClient(cfg.Telegram.Token, policy, cfg.Delivery.MaxPhotos, log)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram client: %v", err)
	}

	p := poller.New(poller.Deps{
		Fetcher:     fetcher,
		Adapter:     adapter,
		Parser:      parser,
		Filter:      filter.Filter{DefaultMinPrice: cfg.Filter.MinPrice, DefaultMaxPrice: cfg.Filter.MaxPrice, MinAreaSqM: cfg.Filter.MinAreaSqM},
		Ledger:      led,
		Deliverer:   client,
		Queries:     cfg.SearchQueries(),
		Subscribers: cfg.SubscriberList(),
		Logger:      log,
	})
	p.RecheckSkipped = *recheckSkipped

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *checkID != 0 {
		if err := runCheck(ctx, p, cfg, *checkID, log); err != nil {
			log.WithError(err).Error("Diagnostic run failed")
			os.Exit(1)
		}
		return
	}

	// Per-listing failures are contained inside the cycle; only
	// interruption reaches here. Exit 0 even when listings were
	// skipped or rejected.
	if err := p.RunCycle(ctx); err != nil {
		log.WithError(err).Error("Poll cycle aborted")
		os.Exit(1)
	}
	log.Info("Poll cycle completed")
}

func runCheck(ctx context.Context, p *poller.Poller, cfg config.Config, id int, log logrus.FieldLogger) error {
	if cfg.Telegram.TestChatID == 0 {
		return fmt.Errorf("telegram.test_chat_id is required for -check")
	}
	log.WithField("listing_id", id).Info("Diagnostic mode: processing one listing, no ledger writes")
	return p.CheckOne(ctx, id, cfg.TestSubscriber())
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func openLedger(cfg config.StorageConfig, log logrus.FieldLogger) (ledger.Ledger, error) {
	switch cfg.Backend {
	case "postgres":
		return ledger.NewPostgresLedger(cfg.PostgresDSN, log)
	default:
		return ledger.NewBadgerLedger(cfg.BadgerPath, log)
	}
}
