package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/auth"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/content"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/handlers"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/images"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/listing"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/config"
	pfirestore "github.com/rifqisaleh/shopsmart-rifqi/internal/platform/firestore"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/jobs"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/observability"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/secrets"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/pricing"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/session"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
)

const readinessProbeKey = "_readiness"

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("storefront")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	metrics := observability.NewStorefrontMetrics(nil)
	locale := language.Make(cfg.Catalog.SortLocale)

	resolver := images.NewResolver(
		images.WithAllowedHosts(cfg.Catalog.ImageHosts...),
		images.WithPlaceholder(cfg.Catalog.ImagePlaceholder),
	)
	prices := pricing.NewConverter(pricing.WithLocale(locale))

	api, err := apiclient.NewClient(cfg.API.BaseURL, apiclient.WithTimeout(cfg.API.Timeout))
	if err != nil {
		logger.Fatal("failed to initialise api client", zap.Error(err))
	}

	var firestoreProvider *pfirestore.Provider
	backend, err := newStorageBackend(cfg, func() *pfirestore.Provider {
		firestoreProvider = pfirestore.NewProvider(cfg.Firestore)
		return firestoreProvider
	})
	if err != nil {
		logger.Fatal("failed to initialise storage backend", zap.Error(err))
	}
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	publisher, topic, closePublisher, err := newOrderPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise order publisher", zap.Error(err))
	}
	defer closePublisher()

	authManager, err := auth.NewManager(auth.ManagerDeps{
		API:    api,
		Logger: observability.ServiceLogger(logger.Named("auth"), "auth session"),
	})
	if err != nil {
		logger.Fatal("failed to initialise auth manager", zap.Error(err))
	}

	controller, err := listing.NewController(listing.ControllerDeps{
		Catalog:         api,
		Images:          resolver,
		Prices:          prices,
		Metrics:         metrics,
		Logger:          observability.ServiceLogger(logger.Named("listing"), "product listing"),
		PriceUpperBound: cfg.Catalog.PriceUpperBound,
		Locale:          locale,
		Currency:        cfg.Catalog.DisplayCurrency,
	})
	if err != nil {
		logger.Fatal("failed to initialise listing controller", zap.Error(err))
	}

	carts := session.NewCartRegistry(session.RegistryOptions{
		Images:  resolver,
		IdleTTL: cfg.Session.CartIdleTTL,
		Metrics: metrics,
		Logger:  observability.ServiceLogger(logger.Named("carts"), "cart registry"),
	})
	carts.OnEvict(controller.Forget)
	carts.OnSweep(func(ctx context.Context, cutoff time.Time) { controller.SweepIdle(ctx, cutoff) })

	productService, err := services.NewProductService(services.ProductServiceDeps{
		Catalog: api,
		Images:  resolver,
		Logger:  observability.ServiceLogger(logger.Named("products"), "product service"),
	})
	if err != nil {
		logger.Fatal("failed to initialise product service", zap.Error(err))
	}
	accountService, err := services.NewAccountService(services.AccountServiceDeps{
		API:    api,
		Logger: observability.ServiceLogger(logger.Named("accounts"), "account service"),
	})
	if err != nil {
		logger.Fatal("failed to initialise account service", zap.Error(err))
	}
	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Events: publisher,
		Logger: observability.ServiceLogger(logger.Named("checkout"), "checkout service"),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	library := content.NewLibrary(
		content.WithDir(cfg.Content.Dir),
		content.WithCacheTTL(cfg.Content.CacheTTL),
		content.WithLogger(observability.ServiceLogger(logger.Named("content"), "content library")),
	)

	signingKey := []byte(cfg.Session.SigningKey)
	if len(signingKey) == 0 {
		signingKey, err = session.RandomKey()
		if err != nil {
			logger.Fatal("failed to generate session key", zap.Error(err))
		}
		logger.Warn("session signing key not configured; visitor cookies will not survive restarts")
	}
	codec, err := session.NewCodec(signingKey)
	if err != nil {
		logger.Fatal("failed to initialise session codec", zap.Error(err))
	}

	visitors := handlers.NewVisitors(handlers.VisitorsDeps{
		Storage: backend,
		Carts:   carts,
		Auth:    authManager,
		Logger:  observability.ServiceLogger(logger.Named("wishlist"), "wishlist"),
	})

	healthOpts := []handlers.HealthOption{
		handlers.WithHealthBuildInfo(buildInfoFromEnv(envValues, cfg, startedAt)),
		handlers.WithReadinessCheck("storage", func(ctx context.Context) error {
			_, err := backend.Get(ctx, readinessProbeKey)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return nil
		}),
	}
	if topic != nil {
		healthOpts = append(healthOpts, handlers.WithReadinessCheck("events", func(ctx context.Context) error {
			ok, err := topic.Exists(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("topic %s does not exist", topic.ID())
			}
			return nil
		}))
	}

	catalogHandlers := handlers.NewCatalogHandlers(handlers.CatalogHandlersDeps{
		Listing:  controller,
		Products: productService,
		Featured: api,
		Images:   resolver,
		Visitors: visitors,
	})
	cartHandlers := handlers.NewCartHandlers(handlers.CartHandlersDeps{
		Visitors: visitors,
		Products: api,
		Prices:   prices,
		Metrics:  metrics,
	})

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(cfg.Events.ProjectID),
			observability.RecoveryMiddleware(logger),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithVisitorMiddlewares(session.Middleware(codec, session.Options{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure,
		})),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithWishlistRoutes(handlers.NewWishlistHandlers(visitors, api, resolver).Routes),
		handlers.WithAccountRoutes(handlers.NewAccountHandlers(visitors, accountService).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(visitors, checkoutService, prices).Routes),
		handlers.WithContentRoutes(handlers.NewContentHandlers(library).Routes),
	)

	sweepCtx, sweepCancel := context.WithCancel(ctx)
	var sweepWG sync.WaitGroup
	sweepWG.Add(1)
	go func() {
		defer sweepWG.Done()
		carts.Run(sweepCtx, cfg.Session.SweepInterval)
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("shopsmart storefront listening",
			zap.String("storage", cfg.Storage.Backend),
			zap.Bool("pubsub", topic != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	sweepCancel()
	sweepWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newStorageBackend(cfg config.Config, firestoreProvider func() *pfirestore.Provider) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageFile:
		return storage.NewFileStore(cfg.Storage.Dir)
	case config.StorageFirestore:
		return storage.NewFirestoreStore(firestoreProvider(), cfg.Storage.Collection)
	default:
		return storage.NewMemoryStore(), nil
	}
}

// newOrderPublisher publishes to Pub/Sub when a project is configured and logs events otherwise.
func newOrderPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (services.OrderEventPublisher, *pubsub.Topic, func(), error) {
	eventLogger := observability.ServiceLogger(logger.Named("orders"), "order event")
	if strings.TrimSpace(cfg.Events.ProjectID) == "" {
		return jobs.NewLogOrderPublisher(eventLogger), nil, func() {}, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.Events.Topic)
	publisher, err := jobs.NewPubSubOrderPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	closeFn := func() {
		topic.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}
	return publisher, topic, closeFn, nil
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(env["STOREFRONT_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["STOREFRONT_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: cfg.Environment,
		StartedAt:   started,
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	envLabel := strings.ToLower(lookup("STOREFRONT_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	defaultProject := lookup("STOREFRONT_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("STOREFRONT_PUBSUB_PROJECT_ID")
	}
	fallbackPath := lookup("STOREFRONT_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("STOREFRONT_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	if envLabel == "local" && defaultProject == "" {
		opts = append(opts, secrets.WithoutRemote())
	}

	return secrets.NewFetcher(ctx, opts...)
}
