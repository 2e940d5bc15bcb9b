package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jchen1/qs/internal/api"
	"github.com/jchen1/qs/internal/auth"
	"github.com/jchen1/qs/internal/config"
	"github.com/jchen1/qs/internal/queue"
	httptransport "github.com/jchen1/qs/internal/transport/http"
)

func main() {
	cfg := config.Load()

	zone, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		log.Fatalf("invalid DEFAULT_TIMEZONE %q: %v", cfg.DefaultTimezone, err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	taskQueue := queue.NewRedisQueue(redisClient, cfg.QueueName)

	handler := api.NewHandler(taskQueue, zone)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(handlers.CombinedLoggingHandler(os.Stdout, router)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh

	if err := httptransport.Shutdown(server, 15*time.Second); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
