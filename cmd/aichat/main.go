package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kasugai-cloud/aichat/pkg/accounts"
	"github.com/kasugai-cloud/aichat/pkg/api"
	"github.com/kasugai-cloud/aichat/pkg/chat"
	"github.com/kasugai-cloud/aichat/pkg/config"
	"github.com/kasugai-cloud/aichat/pkg/files"
	"github.com/kasugai-cloud/aichat/pkg/identity"
	"github.com/kasugai-cloud/aichat/pkg/middleware"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/observability"
	"github.com/kasugai-cloud/aichat/pkg/providers"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize OpenTelemetry")
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	dynamo, err := storage.NewDynamoStore(ctx, cfg.Storage.Region, cfg.Storage.MainTable, cfg.Storage.Endpoint)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize KV store")
	}
	kv := observability.InstrumentKV(metrics, "dynamo", dynamo)

	s3store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:    cfg.Storage.FilesBucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PathStyle: cfg.Storage.UsePathStyle,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize blob store")
	}
	blobs := observability.InstrumentBlob(metrics, "s3", s3store)

	var idp identity.Provider
	if cfg.Auth.DevMode && cfg.Identity.UserPoolID == "" {
		logger.Warn("AUTH_DEV_MODE without a user pool: using in-memory identity provider")
		idp = identity.NewFakeProvider()
	} else {
		idp, err = identity.NewCognitoProvider(ctx, cfg.Identity.Region, cfg.Identity.UserPoolID, cfg.Identity.UserPoolClientID)
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize identity provider")
		}
	}

	bedrock, err := providers.NewBedrockProvider(ctx, cfg.Providers.BedrockRegion)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize bedrock provider")
	}
	gemini := providers.NewGeminiProvider(cfg.Providers.GeminiAPIKey)

	fileSvc := files.NewService(kv, blobs, logger)
	chatSvc := chat.NewService(kv, map[models.ProviderTag]providers.Invoker{
		models.ProviderBedrock: observability.InstrumentInvoker(metrics, "bedrock", bedrock),
		models.ProviderGemini:  observability.InstrumentInvoker(metrics, "gemini", gemini),
	}, fileSvc, cfg.Providers.InvokeTimeout, logger)
	accountSvc := accounts.NewService(idp, kv, logger)

	var verifier middleware.TokenVerifier
	if !cfg.Auth.DevMode {
		verifier, err = middleware.NewOIDCVerifier(ctx, cfg.OIDCIssuer(), cfg.Auth.ClientID)
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize OIDC verifier")
		}
	} else {
		logger.Warn("AUTH_DEV_MODE enabled: bearer tokens are treated as raw user ids")
	}
	authMW := middleware.NewAuthMiddleware(verifier, accountSvc, cfg.Auth.DevMode, logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisURL,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		limiter = middleware.NewRateLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, logger)
		if metrics != nil {
			limiter.OnReject = metrics.RateLimitedRequests.Inc
		}
	}

	server := api.NewServer(chatSvc, fileSvc, accountSvc, authMW, limiter, metrics, logger)

	var handler http.Handler = server
	if metrics != nil {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	handler = middleware.CORS(handler)
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "aichat")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("health server shutdown failed")
	}
	if err := observability.ShutdownOTel(shutdownCtx, otelProviders, logger); err != nil {
		logger.WithError(err).Error("otel shutdown failed")
	}
	logger.Info("shutdown complete")
}
