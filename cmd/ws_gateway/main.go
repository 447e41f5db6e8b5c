package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/market-intel/internal/cache"
	"github.com/mohamedkhairy/market-intel/internal/config"
	"github.com/mohamedkhairy/market-intel/internal/pubsub"
	"github.com/mohamedkhairy/market-intel/internal/wsgateway"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting WebSocket gateway service",
		logger.Int("port", cfg.WSGateway.Port),
		logger.Int("max_connections", cfg.WSGateway.MaxConnections),
		logger.Bool("auth_enabled", cfg.WSGateway.JWTSecret != ""),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The gateway has nothing to relay without Redis
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis client",
			logger.ErrorField(err),
		)
	}
	defer redisClient.Close()

	publisherCfg := pubsub.DefaultPublisherConfig()
	publisher := pubsub.NewSnapshotPublisher(redisClient, publisherCfg)

	channels := make([]string, 0, len(cfg.Intel.AssetClasses))
	for _, class := range cfg.Intel.AssetClasses {
		channels = append(channels, publisher.Channel(class))
	}
	subscription := redisClient.Subscribe(ctx, channels...)
	defer subscription.Close()

	hub := wsgateway.NewHub(
		cfg.WSGateway,
		wsgateway.NewAuthManager(cfg.WSGateway.JWTSecret),
		publisherCfg.ChannelPrefix,
		publisher,
	)
	if err := hub.Start(subscription); err != nil {
		logger.Fatal("Failed to start WebSocket hub",
			logger.ErrorField(err),
		)
	}

	logger.Info("Subscribed to snapshot channels",
		logger.Any("channels", channels),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WSGateway.Port),
		Handler: setupRouter(hub),
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down WebSocket gateway service")

	// Hijacked WebSocket connections are not closed by Shutdown
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("WebSocket gateway service stopped")
}

func setupRouter(hub *wsgateway.Hub) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/ws", hub.ServeWS)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !hub.IsRunning() {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "alive")
	})

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.GetStats())
	})

	router.Handle("/metrics", promhttp.Handler())

	return router
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
