package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/klarna-bridge/internal/config"
	"github.com/noah-isme/klarna-bridge/internal/gateway"
	"github.com/noah-isme/klarna-bridge/internal/health"
	"github.com/noah-isme/klarna-bridge/internal/klarna"
	"github.com/noah-isme/klarna-bridge/internal/obs"
	"github.com/noah-isme/klarna-bridge/internal/ratelimit"
	"github.com/noah-isme/klarna-bridge/internal/resilience"
	"github.com/noah-isme/klarna-bridge/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "klarnabridge")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("ping redis")
		}
		cancel()
	} else {
		logger.Info().Msg("no redis configured, idempotency middleware disabled")
	}

	var clientMetrics *klarna.ClientMetrics
	var breakerMetrics *resilience.BreakerMetrics
	if metricsEnabled {
		clientMetrics = klarna.NewClientMetrics(metricsNamespace, nil)
		breakerMetrics = resilience.NewBreakerMetrics(metricsNamespace, nil)
	}
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		MinRequests:  10,
		FailureRatio: 0.5,
		OpenFor:      30 * time.Second,
		Target:       "klarna",
		Logger:       logger,
		Metrics:      breakerMetrics,
	})
	client := klarna.NewClient(klarna.ClientConfig{
		BaseURL:   cfg.KlarnaBaseURL,
		Username:  cfg.KlarnaUsername,
		Password:  cfg.KlarnaPassword,
		UserAgent: cfg.KlarnaUserAgent,
		Metrics:   clientMetrics,
		HTTPClient: &http.Client{
			Transport: &resilience.Transport{
				Base:        otelhttp.NewTransport(http.DefaultTransport),
				Breaker:     breaker,
				MaxAttempts: 3,
				BaseBackoff: 200 * time.Millisecond,
				Jitter:      0.2,
			},
			Timeout: 30 * time.Second,
		},
	})
	services := klarna.NewServices(client)
	handler := gateway.NewHandler(services, logger)
	idem := gateway.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	if redisClient != nil && cfg.RateLimitMax > 0 {
		r.Use(ratelimit.Handler{
			Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
			Config: ratelimit.Config{
				Key:    ratelimit.ByClientIP,
				Window: cfg.RateLimitWindow,
				Max:    cfg.RateLimitMax,
			},
			Logger: logger,
		}.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "Klarna-Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		RedisTimeout: 300 * time.Millisecond,
	}
	if redisClient != nil {
		healthHandler.Checker = redisChecker{redis: redisClient}
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		handler.Mount(v, idem)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Str("provider", cfg.KlarnaBaseURL).Msg("gateway starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type redisChecker struct {
	redis *redis.Client
}

func (c redisChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
