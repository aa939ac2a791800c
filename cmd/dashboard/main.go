package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/smukkama/aqeu-dashboard/internal/cache"
	"github.com/smukkama/aqeu-dashboard/internal/dashboard"
	"github.com/smukkama/aqeu-dashboard/internal/events"
	"github.com/smukkama/aqeu-dashboard/internal/loader"
	"github.com/smukkama/aqeu-dashboard/internal/logging"
	"github.com/smukkama/aqeu-dashboard/internal/metrics"
	"github.com/smukkama/aqeu-dashboard/internal/server"
	"github.com/smukkama/aqeu-dashboard/internal/timer"
	"github.com/smukkama/aqeu-dashboard/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	log.Info("Starting AQI dashboard API...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()
	fetcher := loader.NewFetcher(loader.Config{
		Timeout:    cfg.Fetch.Timeout,
		Retries:    cfg.Fetch.Retries,
		RetryDelay: cfg.Fetch.RetryDelay,
	})

	var closers []func() error
	cacheOpts := []cache.Option{cache.WithRecorder(recorder)}

	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warnf("Redis unreachable, continuing without shared cache hits: %v", err)
		}
		cacheOpts = append(cacheOpts, cache.WithStore(cache.NewRedisStore(redisClient, cfg.Redis.TTL)))
		log.WithField("addr", cfg.Redis.Addr).Info("Shared dataset cache enabled")
	}

	datasets := cache.New(fetcher, cacheOpts...)

	hostname, _ := os.Hostname()
	var publisher dashboard.Publisher
	var producer *events.Producer
	if cfg.Kafka.Enabled() {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, hostname, recorder)
		publisher = producer
	}

	svc := dashboard.NewService(datasets, publisher, dashboard.Config{
		TimeSeriesURL: cfg.Sources.TimeSeriesURL,
		ThresholdURL:  cfg.Sources.ThresholdURL,
		OverlayMode:   cfg.Chart.OverlayMode,
	})

	if cfg.Kafka.Enabled() {
		consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, hostname, recorder)
		go func() {
			if err := consumer.Run(ctx, svc.HandleRefreshEvent); err != nil {
				log.Errorf("Refresh event consumer stopped: %v", err)
			}
		}()
		closers = append(closers, consumer.Close, producer.Close)
		log.WithField("topic", cfg.Kafka.Topic).Info("Refresh events enabled")
	}

	// Warm the cache; failures are reported per request later
	for _, source := range svc.Sources() {
		if _, err := datasets.Get(ctx, source); err != nil {
			log.WithField("source", source).Warnf("Initial dataset load failed: %v", err)
		}
	}

	if cfg.Sources.RefreshInterval > 0 {
		scheduler := timer.NewScheduler(1)
		scheduler.Start()
		closers = append(closers, func() error { scheduler.Stop(); return nil })

		err := scheduler.Every("dataset-refresh", cfg.Sources.RefreshInterval, func(ctx context.Context) {
			if _, err := svc.Refresh(ctx); err != nil {
				log.Errorf("Scheduled refresh failed: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("Failed to schedule refresh: %v", err)
		}
		log.WithField("interval", cfg.Sources.RefreshInterval).Info("Scheduled dataset refresh")
	}

	httpServer := server.NewHTTPServer(cfg.HTTP.Addr(), svc, recorder)
	if err := httpServer.Start(); err != nil {
		log.Fatalf("Failed to start HTTP server: %v", err)
	}

	log.Info("AQI dashboard API is running, press Ctrl+C to stop")
	<-ctx.Done()

	log.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown: %v", err)
	}

	var closeErrs *multierror.Error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			closeErrs = multierror.Append(closeErrs, err)
		}
	}
	if err := closeErrs.ErrorOrNil(); err != nil {
		log.Warnf("Errors while closing clients: %v", err)
	}
}
