package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/solvenote/solvenote/pkg/api"
	"github.com/solvenote/solvenote/pkg/auth"
	"github.com/solvenote/solvenote/pkg/billing"
	"github.com/solvenote/solvenote/pkg/config"
	"github.com/solvenote/solvenote/pkg/credits"
	"github.com/solvenote/solvenote/pkg/httputil"
	"github.com/solvenote/solvenote/pkg/middleware"
	"github.com/solvenote/solvenote/pkg/observability"
	"github.com/solvenote/solvenote/pkg/storage"
	"github.com/solvenote/solvenote/pkg/storage/postgres"
	"github.com/solvenote/solvenote/pkg/suggestions"
)

const tokenCacheTTL = 5 * time.Minute

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("solvenote exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx := context.Background()
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return err
	}
	shutdown.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
		return observability.ShutdownTracing(ctx, tp)
	})

	db, err := postgres.Connect(ctx, postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.ConnectTimeout,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		return err
	}
	shutdown.RegisterShutdownFunc("database", func(context.Context) error { return db.Close() })
	logger.Info("connected to database")

	if cfg.Database.MigrateOnStart {
		if err := storage.Migrate(ctx, db, storage.DialectPostgres, logger); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = postgres.NewRedisClient(ctx, postgres.RedisConfig{URL: cfg.Redis.URL})
		if err != nil {
			// Redis only backs the rate limiter and the event ledger
			logger.WithError(err).Warn("redis unavailable, continuing without it")
			redisClient = nil
		} else {
			shutdown.RegisterShutdownFunc("redis", func(context.Context) error { return redisClient.Close() })
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	verifier, err := buildVerifier(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	policy, err := credits.NewResetPolicy(cfg.Credits.ResetTimezone)
	if err != nil {
		return err
	}
	creditService := credits.NewService(credits.NewSQLStore(db, metrics), credits.ServiceConfig{
		DefaultAllowance: cfg.Credits.DefaultAllowance,
		Policy:           policy,
		StoreTimeout:     cfg.Credits.StoreTimeout,
	}, credits.WithLogger(logger), credits.WithMetrics(metrics))

	webhookOpts := []billing.WebhookOption{billing.WithLogger(logger), billing.WithMetrics(metrics)}
	if redisClient != nil {
		webhookOpts = append(webhookOpts, billing.WithLedger(billing.NewRedisEventLedger(redisClient, cfg.Billing.EventDedupeTTL)))
	}
	processor := billing.NewWebhookProcessor(billing.WebhookConfig{
		Secret:             cfg.Billing.StripeWebhookSecret,
		SignatureTolerance: cfg.Billing.SignatureTolerance,
	}, creditService, billing.NewSubscriberStore(db), webhookOpts...)
	if !processor.VerifiesSignatures() {
		logger.Warn("no Stripe webhook secret configured, payment webhooks are not signature-checked")
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	shutdown.RegisterShutdownFunc("rate-limiter", func(context.Context) error { stopLimiter(); return nil })
	limiter := buildLimiter(limiterCtx, cfg.RateLimit, redisClient)

	var primary suggestions.Generator
	if cfg.Suggestions.OpenAIAPIKey != "" {
		primary = suggestions.NewOpenAIGenerator(suggestions.OpenAIConfig{
			APIKey:   cfg.Suggestions.OpenAIAPIKey,
			Model:    cfg.Suggestions.OpenAIModel,
			Endpoint: cfg.Suggestions.OpenAIEndpoint,
			Timeout:  cfg.Suggestions.Timeout,
		}, &http.Client{
			Timeout:   cfg.Suggestions.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
	} else {
		logger.Info("no OpenAI key configured, serving template suggestions")
	}
	generator := suggestions.NewFallbackGenerator(primary, suggestions.NewTemplateGenerator(), logger, metrics)

	handler := api.NewRouter(api.RouterConfig{
		Credits:  creditService,
		Webhooks: processor,
		Solver:   suggestions.NewOrchestrator(creditService, generator, logger),
		Verifier: verifier,
		Limiter:  limiter,
		Logger:   logger,
		Metrics:  metrics,
		CORS: httputil.CORSConfig{
			AllowedOrigins: cfg.Server.CORSOrigins,
			AllowedHeaders: httputil.DefaultCORSConfig().AllowedHeaders,
			AllowedMethods: httputil.DefaultCORSConfig().AllowedMethods,
		},
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Observability.StatsSchedule, func() {
		defer observability.RecoverPanic(logger, "stats refresher")
		refreshAccountStats(context.Background(), creditService, metrics, logger)
	}); err != nil {
		return err
	}
	scheduler.Start()
	shutdown.RegisterShutdownFunc("scheduler", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(handler, "solvenote"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	shutdown.AddServer(server)

	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(db, redisClient, cfg.Observability.OTelServiceVersion))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	shutdown.AddServer(opsServer)

	serveErr := make(chan error, 2)
	for _, srv := range []*http.Server{server, opsServer} {
		go func(srv *http.Server) {
			logger.WithField("addr", srv.Addr).Info("http server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}(srv)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := <-serveErr; err != nil {
			logger.WithError(err).Error("http server failed")
			cancel()
		}
	}()

	return shutdown.WaitForShutdown(waitCtx)
}

// buildVerifier returns the configured token verifier behind a cache
func buildVerifier(ctx context.Context, cfg config.AuthConfig) (auth.Verifier, error) {
	var next auth.Verifier
	switch cfg.Mode {
	case config.AuthModeOIDC:
		v, err := auth.NewOIDCVerifier(ctx, auth.OIDCConfig{IssuerURL: cfg.OIDCIssuerURL, ClientID: cfg.OIDCClientID})
		if err != nil {
			return nil, err
		}
		next = v
	default:
		v, err := auth.NewJWTVerifier(auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			return nil, err
		}
		next = v
	}
	return auth.NewCachingVerifier(next, cfg.TokenCacheSize, tokenCacheTTL), nil
}

// buildLimiter prefers Redis so limits hold across replicas
func buildLimiter(ctx context.Context, cfg config.RateLimitConfig, client *redis.Client) middleware.Limiter {
	if !cfg.Enabled {
		return nil
	}
	rl := &middleware.RateLimitConfig{RequestsPerWindow: cfg.RequestsPerWindow, WindowDuration: cfg.Window}
	if client != nil {
		return middleware.NewDistributedRateLimiter(client, rl, "")
	}
	limiter := middleware.NewRateLimiter(rl)
	limiter.StartCleanup(ctx)
	return limiter
}
