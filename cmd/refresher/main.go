package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/smukkama/aqeu-dashboard/internal/cache"
	"github.com/smukkama/aqeu-dashboard/internal/dashboard"
	"github.com/smukkama/aqeu-dashboard/internal/events"
	"github.com/smukkama/aqeu-dashboard/internal/loader"
	"github.com/smukkama/aqeu-dashboard/internal/logging"
	"github.com/smukkama/aqeu-dashboard/internal/timer"
	"github.com/smukkama/aqeu-dashboard/pkg/config"
)

// refresher reloads the configured sources into the shared Redis tier and
// announces each reload so dashboard replicas drop their local copies.
func main() {
	every := flag.Duration("every", 0, "refresh interval; 0 refreshes once and exits (default AQI_REFRESH_INTERVAL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	interval := *every
	if interval == 0 {
		interval = cfg.Sources.RefreshInterval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := loader.NewFetcher(loader.Config{
		Timeout:    cfg.Fetch.Timeout,
		Retries:    cfg.Fetch.Retries,
		RetryDelay: cfg.Fetch.RetryDelay,
	})

	var opts []cache.Option
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		opts = append(opts, cache.WithStore(cache.NewRedisStore(redisClient, cfg.Redis.TTL)))
	} else {
		log.Warn("REDIS_ADDR is not set; refreshes only validate the sources")
	}

	var publisher dashboard.Publisher
	if cfg.Kafka.Enabled() {
		hostname, _ := os.Hostname()
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, "refresher-"+hostname, nil)
		defer producer.Close()
		publisher = producer
	}

	svc := dashboard.NewService(cache.New(fetcher, opts...), publisher, dashboard.Config{
		TimeSeriesURL: cfg.Sources.TimeSeriesURL,
		ThresholdURL:  cfg.Sources.ThresholdURL,
	})

	refresh := func(ctx context.Context) {
		log.Info("--- Running dataset refresh ---")
		start := time.Now()
		refreshed, err := svc.Refresh(ctx)
		if err != nil {
			log.Errorf("Refresh failed: %v", err)
		}
		log.WithFields(log.Fields{"sources": refreshed, "duration": time.Since(start)}).Info("--- Dataset refresh complete ---")
	}

	if interval <= 0 {
		refresh(ctx)
		return
	}

	scheduler := timer.NewScheduler(1)
	scheduler.Start()
	defer scheduler.Stop()

	refresh(ctx)
	if err := scheduler.Every("dataset-refresh", interval, refresh); err != nil {
		log.Fatalf("Failed to schedule refresh: %v", err)
	}
	log.WithField("interval", interval).Info("Refresher is running, press Ctrl+C to stop")

	<-ctx.Done()
	log.Info("Shutting down gracefully...")
}
