package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/market-intel/internal/api"
	"github.com/mohamedkhairy/market-intel/internal/cache"
	"github.com/mohamedkhairy/market-intel/internal/config"
	"github.com/mohamedkhairy/market-intel/internal/indicator"
	"github.com/mohamedkhairy/market-intel/internal/intel"
	"github.com/mohamedkhairy/market-intel/internal/market"
	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/internal/news"
	"github.com/mohamedkhairy/market-intel/internal/pubsub"
	"github.com/mohamedkhairy/market-intel/internal/rules"
	"github.com/mohamedkhairy/market-intel/internal/storage"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// service bundles everything one processing pass needs
type service struct {
	cfg       *config.Config
	processor *intel.Processor
	rules     *rules.RuleSet
	publisher *pubsub.SnapshotPublisher // nil when Redis is unavailable or publishing is off
	history   storage.NarrativeStorage  // nil when the database is disabled
	lastRun   atomic.Value              // time.Time of the last completed pass
	ready     atomic.Bool
}

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

	logger.Info("Starting market intelligence service",
		logger.Int("health_port", cfg.Intel.HealthCheckPort),
		logger.Int("asset_classes", len(cfg.Intel.AssetClasses)),
		logger.String("payload_dir", cfg.Intel.PayloadDir),
		logger.Bool("run_once", cfg.Intel.RunOnce),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared state store, Redis when reachable
	store, redisClient := cache.NewStoreFromConfig(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Narrative rules
	var ruleSet *rules.RuleSet
	if cfg.Intel.RulesFile != "" {
		ruleSet, err = rules.LoadRuleSet(cfg.Intel.RulesFile)
	} else {
		ruleSet, err = rules.DefaultRuleSet()
	}
	if err != nil {
		logger.Fatal("Failed to load narrative rules",
			logger.ErrorField(err),
			logger.String("file", cfg.Intel.RulesFile),
		)
	}

	newsClient := news.NewNewsAPIClient(cfg.News, store)
	if cfg.News.APIKey == "" {
		logger.Warn("NEWS_API_KEY not set, news conditions will not match")
	}

	ruleEngine, err := rules.NewEngine(ruleSet, newsClient)
	if err != nil {
		logger.Fatal("Failed to compile narrative rules", logger.ErrorField(err))
	}
	for _, class := range cfg.Intel.AssetClasses {
		logger.Info("Loaded narrative rules",
			logger.String("asset_class", string(class)),
			logger.Int("count", ruleEngine.RuleCount(class)),
		)
	}

	marketCfg := market.DefaultConfig()
	marketCfg.BreadthSeriesLen = cfg.Cache.BreadthSeriesLen
	marketCfg.CacheTTL = cfg.Cache.TTL
	marketCfg.TopMoversTTL = cfg.Cache.TopMoversTTL

	processorCfg := intel.DefaultConfig()
	processorCfg.TopN = cfg.Cache.TopN

	svc := &service{
		cfg:   cfg,
		rules: ruleSet,
		processor: intel.NewProcessor(
			market.NewAggregator(store, cache.SystemClock{}, marketCfg),
			indicator.NewEngine(indicator.DefaultEngineConfig(), nil),
			ruleEngine,
			cache.SystemClock{},
			processorCfg,
		),
	}

	if redisClient != nil && cfg.Intel.Publish {
		publisherCfg := pubsub.DefaultPublisherConfig()
		publisherCfg.LatestTTL = cfg.Cache.SnapshotTTL
		svc.publisher = pubsub.NewSnapshotPublisher(redisClient, publisherCfg)
	}

	// Narrative history is optional; processing continues without it
	if cfg.Database.Enabled {
		history, err := storage.NewPostgresNarrativeStorage(cfg.Database)
		if err != nil {
			logger.Warn("Failed to initialize narrative storage, history will be disabled",
				logger.ErrorField(err),
			)
		} else {
			svc.history = history
			defer history.Close()
		}
	}

	if cfg.Intel.RunOnce {
		svc.runAll(ctx)
		logger.Info("Market intelligence run complete")
		return
	}

	// Setup health and metrics server
	var wg sync.WaitGroup
	healthServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Intel.HealthCheckPort),
		Handler:      setupRouter(svc),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting health and metrics server",
			logger.Int("port", cfg.Intel.HealthCheckPort),
		)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health and metrics server failed",
				logger.ErrorField(err),
			)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.loop(ctx)
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down market intelligence service")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health server shutdown failed", logger.ErrorField(err))
	}

	wg.Wait()

	logger.Info("Market intelligence service stopped")
}

// loop runs a pass immediately and then on every tick until ctx is done
func (s *service) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Intel.Interval)
	defer ticker.Stop()

	s.runAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

// runAll processes every configured asset class once. A failing class is
// logged and does not stop the others.
func (s *service) runAll(ctx context.Context) {
	for _, class := range s.cfg.Intel.AssetClasses {
		if ctx.Err() != nil {
			return
		}
		runCtx := logger.WithRunID(ctx, logger.NewRunID())
		if err := s.runClass(runCtx, class); err != nil {
			logger.WithContext(runCtx).Error("Failed to process asset class",
				logger.String("asset_class", string(class)),
				logger.ErrorField(err),
			)
		}
	}
	s.lastRun.Store(time.Now().UTC())
	s.ready.Store(true)
}

func (s *service) runClass(ctx context.Context, class models.AssetClass) error {
	path := filepath.Join(s.cfg.Intel.PayloadDir, string(class)+".json")
	payload, err := os.ReadFile(path)
	if err != nil {
		logger.ErrorsTotal.WithLabelValues("intel", "payload_read").Inc()
		return fmt.Errorf("failed to read payload %s: %w", path, err)
	}

	snapshot, err := s.processor.ProcessPayload(ctx, payload, s.cfg.Intel.Symbols[class], class)
	if err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, snapshot); err != nil {
			logger.ErrorsTotal.WithLabelValues("intel", "publish").Inc()
			return fmt.Errorf("failed to publish %s snapshot: %w", class, err)
		}
	}

	if s.history != nil && len(snapshot.Narratives) > 0 {
		if err := s.history.WriteNarratives(ctx, snapshot.Narratives); err != nil {
			logger.ErrorsTotal.WithLabelValues("intel", "storage").Inc()
			return fmt.Errorf("failed to store %s narratives: %w", class, err)
		}
	}

	return nil
}

// setupRouter sets up HTTP endpoints for health checks, metrics and the
// read-only API
func setupRouter(s *service) http.Handler {
	router := mux.NewRouter()

	var source api.SnapshotSource
	if s.publisher != nil {
		source = s.publisher
	}
	snapshotHandler := api.NewSnapshotHandler(source, s.cfg.Intel.AssetClasses)
	narrativeHandler := api.NewNarrativeHandler(s.history)
	ruleHandler := api.NewRuleHandler(s.rules)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/snapshots", snapshotHandler.ListSnapshots).Methods("GET")
	v1.HandleFunc("/snapshots/{class}", snapshotHandler.GetSnapshot).Methods("GET")
	v1.HandleFunc("/narratives", narrativeHandler.ListNarratives).Methods("GET")
	v1.HandleFunc("/rules", ruleHandler.ListRules).Methods("GET")
	v1.HandleFunc("/rules/validate", ruleHandler.ValidateRule).Methods("POST")
	v1.HandleFunc("/rules/{class}/{id}", ruleHandler.GetRule).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		healthStatus := map[string]interface{}{
			"status":    "UP",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks": map[string]interface{}{
				"processor": map[string]interface{}{
					"ready":    s.ready.Load(),
					"last_run": s.lastRun.Load(),
				},
				"publisher": map[string]interface{}{
					"enabled": s.publisher != nil,
				},
				"history": map[string]interface{}{
					"enabled": s.history != nil,
				},
			},
		}
		if !s.ready.Load() {
			status = http.StatusServiceUnavailable
			healthStatus["status"] = "STARTING"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(healthStatus)
	}).Methods("GET")

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.ready.Load() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("READY"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT READY"))
		}
	}).Methods("GET")

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("LIVE"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler())

	middlewares := api.ChainMiddleware(
		api.RecoveryMiddleware(),
		api.LoggingMiddleware(),
		api.CORSMiddleware(),
		api.RateLimitMiddleware(s.cfg.Intel.APIRateLimit),
	)
	return middlewares(router)
}
