package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/adapters/cache"
	"github.com/Amund211/eliteseller-gateway/internal/adapters/database"
	"github.com/Amund211/eliteseller-gateway/internal/adapters/eventbus"
	"github.com/Amund211/eliteseller-gateway/internal/adapters/sessionactionrepository"
	"github.com/Amund211/eliteseller-gateway/internal/adapters/wazend"
	"github.com/Amund211/eliteseller-gateway/internal/app"
	"github.com/Amund211/eliteseller-gateway/internal/config"
	"github.com/Amund211/eliteseller-gateway/internal/constants"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/ports"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
	"github.com/Amund211/eliteseller-gateway/internal/telemetry"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/crypto/x509roots/fallback"
)

const serviceName = "eliteseller-gateway"

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(logging.NewTracingLogHandler(slog.NewJSONHandler(os.Stdout, nil))).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fail("Failed to load .env file", "error", err.Error())
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	shutdownOTel, err := telemetry.SetupOTelSDK(ctx, serviceName, constants.VERSION)
	if err != nil {
		fail("Failed to initialize OpenTelemetry", "error", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
		}
	}()
	logger.Info("Initialized OpenTelemetry")

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config, constants.VERSION)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	httpClient := &http.Client{
		Timeout:   20 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	wazendClient, err := wazend.NewClient(httpClient, config.WazendBaseURL(), time.Now, time.After)
	if err != nil {
		fail("Failed to initialize Wazend client", "error", err.Error())
	}
	logger.Info("Initialized Wazend client", "baseURL", wazendClient.BaseURL())

	var profileStore cache.Store[domain.Result]
	if config.ProfileCacheTTL() > 0 {
		profileStore = cache.NewTTLStore[domain.Result](config.ProfileCacheTTL())
	} else {
		profileStore = cache.NewBasicStore[domain.Result]()
	}
	profileCoalescer := cache.NewCoalescer(
		"profile",
		profileStore,
		domain.ResultFromError,
		time.Now,
		time.After,
	)
	defer profileCoalescer.Close()

	g, gctx := errgroup.WithContext(ctx)

	localEmitter := eventbus.NewLocal()
	var emitter eventbus.Emitter = localEmitter
	if config.RedisAddr() != "" {
		redisClient, err := eventbus.NewRedisClient(ctx, config.RedisAddr(), config.RedisPassword())
		if err != nil {
			fail("Failed to connect to Redis", "error", err.Error())
		}
		defer redisClient.Close()

		bridge := eventbus.NewRedisBridge(redisClient, eventbus.DefaultChannel, localEmitter)
		g.Go(func() error {
			return bridge.Run(logging.AddToContext(gctx, logger.With("component", "eventbus")))
		})
		emitter = bridge
		logger.Info("Initialized Redis event bus", "channel", eventbus.DefaultChannel)
	}

	unsubscribe := app.SubscribeProfileInvalidation(emitter, profileCoalescer, wazendClient.BaseURL())
	defer unsubscribe()

	logger.Info("Initializing database connection")
	db, err := database.NewCloudsqlPostgresDatabase(config)
	if err != nil {
		fail("Failed to initialize database", "error", err.Error())
	}
	defer db.Close()
	logger.Info("Initialized database connection")

	repositorySchemaName := database.GetSchemaName(!config.IsProduction())

	err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, repositorySchemaName)
	if err != nil {
		fail("Failed to migrate database", "error", err.Error())
	}

	sessionActionRepo := sessionactionrepository.NewPostgres(db, repositorySchemaName)
	logger.Info("Initialized SessionActionRepository")

	allowedOrigins, err := ports.NewAllowedOrigins(config.CORSOriginSuffixes()...)
	if err != nil {
		fail("Failed to initialize allowed origins", "error", err.Error())
	}

	getProfile := app.BuildGetProfileWithCache(profileCoalescer, wazendClient, wazendClient.BaseURL(), config.ProfileFetchDelay())
	controlSession := app.BuildControlSession(wazendClient, sessionActionRepo, emitter, time.Now)
	getSessionActions := app.BuildGetSessionActions(sessionActionRepo)

	mux := http.NewServeMux()

	mux.HandleFunc(
		"OPTIONS /v1/sessions/{session}/profile",
		ports.BuildCORSHandler(allowedOrigins),
	)
	mux.HandleFunc(
		"GET /v1/sessions/{session}/profile",
		ports.MakeGetProfileHandler(
			getProfile,
			config.WazendAPIKey(),
			logger.With("port", "profile"),
			sentryMiddleware,
			allowedOrigins,
		),
	)

	mux.HandleFunc(
		"OPTIONS /v1/sessions/{session}/actions",
		ports.BuildCORSHandler(allowedOrigins),
	)
	mux.HandleFunc(
		"GET /v1/sessions/{session}/actions",
		ports.MakeGetSessionActionsHandler(
			getSessionActions,
			logger.With("port", "sessionactions"),
			sentryMiddleware,
			allowedOrigins,
		),
	)

	mux.HandleFunc(
		"OPTIONS /v1/sessions/{session}/{action}",
		ports.BuildCORSHandler(allowedOrigins),
	)
	mux.HandleFunc(
		"POST /v1/sessions/{session}/{action}",
		ports.MakeControlSessionHandler(
			controlSession,
			config.WazendAPIKey(),
			logger.With("port", "controlsession"),
			sentryMiddleware,
			allowedOrigins,
		),
	)

	mux.HandleFunc("GET /healthz", ports.HealthzHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port()),
		Handler:           otelhttp.NewHandler(mux, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Init complete", "port", config.Port())
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		fail("Server error", "error", err.Error())
	}
	logger.Info("Server shutdown")
}
