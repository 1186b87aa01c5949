package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/consilium-ai/consilium/internal/activities"
	"github.com/consilium-ai/consilium/internal/arxiv"
	"github.com/consilium-ai/consilium/internal/auth"
	"github.com/consilium-ai/consilium/internal/config"
	"github.com/consilium-ai/consilium/internal/conversation"
	"github.com/consilium-ai/consilium/internal/db"
	"github.com/consilium-ai/consilium/internal/httpapi"
	"github.com/consilium-ai/consilium/internal/llm"
	_ "github.com/consilium-ai/consilium/internal/metrics" // register collectors
	"github.com/consilium-ai/consilium/internal/pricing"
	"github.com/consilium-ai/consilium/internal/streaming"
	"github.com/consilium-ai/consilium/internal/temporal"
	"github.com/consilium-ai/consilium/internal/tracing"
	"github.com/consilium-ai/consilium/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	watcher, err := config.NewWatcher(logger)
	if err != nil {
		logger.Warn("Config hot-reload unavailable", zap.Error(err))
	} else {
		defer watcher.Stop()
		watcher.OnReload(func(*config.Config) { pricing.Reload() })
	}

	if err := tracing.Initialize(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	}, logger); err != nil {
		logger.Warn("Tracing initialization failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(ctx)
	}()

	// Ports.
	llmClient := llm.NewClient(llm.Config{
		GatewayURL:     cfg.Gateway.URL,
		ModelID:        cfg.Gateway.ModelID,
		TimeoutSeconds: cfg.Gateway.TimeoutSeconds,
		RequestsPerMin: cfg.Gateway.RequestsPerMin,
		TopP:           cfg.Gateway.TopP,
	}, logger)
	arxivClient := arxiv.NewClient(arxiv.Config{
		BaseURL:    cfg.Arxiv.BaseURL,
		MaxResults: cfg.Arxiv.MaxResults,
	}, logger)

	// Optional durable record of completed deliberations.
	var dbClient *db.Client
	if cfg.Postgres.Enabled {
		dbClient, err = db.NewClient(db.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if err != nil {
			logger.Warn("Postgres unavailable, deliberations will not be recorded", zap.Error(err))
			dbClient = nil
		} else {
			defer dbClient.Close()
		}
	}

	// Conversation store. The deliberation endpoints work without it.
	var store httpapi.ConversationStore
	convStore, err := conversation.NewStore(cfg.Redis.Addr, logger)
	if err != nil {
		logger.Warn("Redis unavailable, conversation endpoints disabled", zap.Error(err))
	} else {
		defer convStore.Close()
		store = convStore
	}

	// Temporal worker hosting both deliberation engines.
	temporalClient, err := temporal.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.CouncilWorkflow)
	w.RegisterWorkflow(workflows.DxOWorkflow)
	w.RegisterActivity(activities.New(llmClient, arxivClient, dbClient, logger))

	if err := w.Start(); err != nil {
		logger.Fatal("Failed to start worker", zap.Error(err))
	}
	defer w.Stop()
	logger.Info("Worker started", zap.String("task_queue", cfg.Temporal.TaskQueue))

	var jwtManager *auth.JWTManager
	if cfg.Auth.SigningKey != "" {
		jwtManager = auth.NewJWTManager(
			cfg.Auth.SigningKey,
			time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
			cfg.Auth.Clients,
		)
	}

	handler := httpapi.NewHandler(
		temporal.NewRunner(temporalClient, cfg.Temporal.TaskQueue),
		store,
		streaming.Get(),
		jwtManager,
		cfg.Auth.Enabled && jwtManager != nil,
		httpapi.Config{
			CouncilMembers:  cfg.Council.Members,
			BaseTemperature: cfg.Council.BaseTemperature,
			ModelID:         cfg.Gateway.ModelID,
			Region:          cfg.Gateway.Region,
		},
		logger,
	)

	apiMux := http.NewServeMux()
	handler.Register(apiMux)
	apiServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      apiMux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // deliberations block the request
		IdleTimeout:  60 * time.Second,
	}

	// Admin listener: metrics and liveness only.
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	adminServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.AdminPort),
		Handler:      adminMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Admin server listening", zap.Int("port", cfg.Server.AdminPort))
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Admin server failed", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(ctx)
	_ = adminServer.Shutdown(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	return cfg.Build()
}
