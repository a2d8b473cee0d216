// Package main is the entry point for the mission control API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/agent"
	"github.com/solaracontrol/mission-control/internal/audit"
	"github.com/solaracontrol/mission-control/internal/config"
	"github.com/solaracontrol/mission-control/internal/handler"
	"github.com/solaracontrol/mission-control/internal/history"
	"github.com/solaracontrol/mission-control/internal/llm"
	"github.com/solaracontrol/mission-control/internal/middleware"
	natsclient "github.com/solaracontrol/mission-control/internal/nats"
	"github.com/solaracontrol/mission-control/internal/orchestrator"
	"github.com/solaracontrol/mission-control/internal/router"
	"github.com/solaracontrol/mission-control/internal/service"
	"github.com/solaracontrol/mission-control/internal/telemetry"
	"github.com/solaracontrol/mission-control/pkg/logger"
	"github.com/solaracontrol/mission-control/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting mission control")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "mission-control", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Completion provider behind a circuit breaker
	provider := llm.ProviderOpenAI
	opts := llm.Options{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Timeout: cfg.LLMTimeout}
	if llm.Provider(cfg.LLMProvider) == llm.ProviderAnthropic {
		provider = llm.ProviderAnthropic
		opts = llm.Options{APIKey: cfg.AnthropicAPIKey, BaseURL: cfg.AnthropicURL, Timeout: cfg.LLMTimeout}
	}
	rawClient, err := llm.NewClient(provider, opts)
	if err != nil {
		log.Fatal("failed to create LLM client", zap.String("provider", string(provider)), zap.Error(err))
	}
	llmClient := llm.NewBreakerClient(rawClient, llm.BreakerConfig{
		MaxFailures: uint32(cfg.BreakerMaxFailures),
		Timeout:     cfg.BreakerTimeout,
	}, log)

	agents, err := agent.LoadCatalog(cfg.AgentCatalogFile)
	if err != nil {
		log.Fatal("failed to load agent catalog", zap.String("path", cfg.AgentCatalogFile), zap.Error(err))
	}
	orchestratorAgent, ok := agents.Orchestrator()
	if !ok {
		log.Fatal("agent catalog has no active orchestrator")
	}

	var checks []handler.Check

	// NATS JetStream for history and telemetry
	var streamManager *natsclient.StreamManager
	if cfg.UsesNATS() {
		natsClient, err := natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streamManager = natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}

		checks = append(checks, handler.Check{Name: "nats", Ping: func(context.Context) error {
			if !natsClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}})
	}

	// Conversation history
	var historyStore history.Store
	switch cfg.HistoryBackend {
	case config.HistoryBackendRedis:
		rdb := history.NewRedisClient(history.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		historyStore = history.NewRedisStore(rdb, history.DefaultRetention)
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	case config.HistoryBackendNATS:
		historyStore = history.NewJetStreamStore(streamManager)
	default:
		log.Fatal("unknown history backend", zap.String("backend", cfg.HistoryBackend))
	}

	// Telemetry sinks
	sinks := []telemetry.Sink{telemetry.MetricsSink{}}
	if cfg.TelemetryNATSEnabled {
		sinks = append(sinks, telemetry.NewNATSSink(streamManager))
	}
	if cfg.TelemetryDatabaseURL != "" {
		db, err := telemetry.OpenPostgres(cfg.TelemetryDatabaseURL)
		if err != nil {
			log.Fatal("failed to open telemetry database", zap.Error(err))
		}
		defer db.Close()

		pg := telemetry.NewPostgresSink(db)
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = pg.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			log.Fatal("failed to ensure telemetry schema", zap.Error(err))
		}
		sinks = append(sinks, pg)
		checks = append(checks, handler.Check{Name: "postgres", Ping: pg.Ping})
	}
	emitter := telemetry.NewMulti(sinks...)

	// Core
	engine := orchestrator.NewEngine(llmClient, agents, orchestrator.Config{
		Model:     cfg.OrchestratorModel,
		MaxTokens: cfg.OrchestratorMaxTokens,
	}, log)
	agentRouter := router.New(agents, llmClient, cfg.RouterModel, log)

	// Services
	inboundSvc := service.NewInboundService(engine, historyStore, emitter, orchestratorAgent.Slug, log)
	replySvc := service.NewReplyService(agentRouter, agents, historyStore, llmClient, cfg.AgentModel, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(checks...)
	inboundHandler := handler.NewInboundHandler(inboundSvc)
	agentHandler := handler.NewAgentHandler(agents, agentRouter, replySvc, log)
	historyHandler := handler.NewHistoryHandler(historyStore, log)
	auditHandler := handler.NewAuditHandler(audit.FromDecider(engine), log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/inbound", inboundHandler.Handle)

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", agentHandler.List)
			r.Post("/route", agentHandler.Route)
			r.Post("/reply", agentHandler.Reply)
		})

		r.Get("/visitors/{visitorID}/history/{agent}", historyHandler.Get)

		r.With(middleware.RequireRole(middleware.RoleAdmin)).
			Post("/audit/institutional", auditHandler.Run)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
