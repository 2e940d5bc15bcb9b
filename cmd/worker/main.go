package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jchen1/qs/internal/config"
	"github.com/jchen1/qs/internal/credential"
	"github.com/jchen1/qs/internal/fitbit"
	"github.com/jchen1/qs/internal/persistence/postgres"
	"github.com/jchen1/qs/internal/queue"
	httptransport "github.com/jchen1/qs/internal/transport/http"
	"github.com/jchen1/qs/internal/worker"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zone, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		log.Fatalf("invalid DEFAULT_TIMEZONE %q: %v", cfg.DefaultTimezone, err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	taskQueue := queue.NewRedisQueue(redisClient, cfg.QueueName)
	measurements := postgres.NewMeasurementStore(pool)
	credentials := postgres.NewCredentialStore(pool)

	oauthClient := fitbit.NewOAuthClient(cfg.FitbitTokenURL, cfg.FitbitClientID, cfg.FitbitClientSecret)
	refresher := credential.NewRefresher(credentials, map[string]credential.TokenSource{
		fitbit.Source: oauthClient,
	})

	fetcher := fitbit.NewClient(cfg.FitbitAPIURL)
	ingestor := worker.NewIngestor(taskQueue, refresher, fetcher, measurements, zone)

	metricsSrv := httptransport.NewMetricsServer(cfg.MetricsAddress)
	go func() {
		log.Printf("worker metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := uint(0); i < cfg.WorkerCount; i++ {
		loop := worker.NewLoop(taskQueue, ingestor,
			worker.WithPollTimeout(cfg.PollTimeout),
			worker.WithIdleBackoff(cfg.IdleBackoff),
		)

		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			log.Printf("worker %d started (queue=%s)", id, cfg.QueueName)
			if err := loop.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("worker %d stopped with error: %v", id, err)
			}
		}(i)
	}

	<-ctx.Done()
	log.Println("worker shutdown requested")

	wg.Wait()

	if err := httptransport.Shutdown(metricsSrv, 10*time.Second); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}
