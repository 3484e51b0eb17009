package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/myshop/api/internal/handlers"
	"github.com/myshop/api/internal/invoice"
	"github.com/myshop/api/internal/payments"
	"github.com/myshop/api/internal/platform/auth"
	"github.com/myshop/api/internal/platform/config"
	pfirestore "github.com/myshop/api/internal/platform/firestore"
	"github.com/myshop/api/internal/platform/idempotency"
	"github.com/myshop/api/internal/platform/jobs"
	"github.com/myshop/api/internal/platform/observability"
	"github.com/myshop/api/internal/platform/ratelimit"
	"github.com/myshop/api/internal/platform/secrets"
	platformstorage "github.com/myshop/api/internal/platform/storage"
	firestorerepo "github.com/myshop/api/internal/repositories/firestore"
	"github.com/myshop/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
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
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("missing required configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	invoiceStore, err := platformstorage.NewUploader(storageClient, cfg.Storage.InvoicesBucket)
	if err != nil {
		logger.Fatal("failed to initialise invoice uploader", zap.Error(err))
	}

	var events services.OrderEventPublisher
	if topicID := strings.TrimSpace(cfg.PubSub.TopicID); topicID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		topic := pubsubClient.Topic(topicID)
		defer func() {
			topic.Stop()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		events = publisher
	} else {
		logger.Warn("order event topic not configured; lifecycle events will not be published")
	}

	registry, err := firestorerepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.PSP.StripeAPIKey,
		Logger: observability.EventLogger(logger.Named("payments")),
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe provider", zap.Error(err))
	}

	catalogService, err := services.NewProductCatalogService(services.ProductCatalogServiceDeps{
		Products: registry.Products(),
		Logger:   observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	cartService, err := services.NewUserCartService(services.UserCartServiceDeps{
		Carts:    registry.Carts(),
		Products: registry.Products(),
		Coupons:  registry.Coupons(),
		Logger:   observability.EventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	couponService, err := services.NewDiscountCouponService(services.DiscountCouponServiceDeps{
		Coupons: registry.Coupons(),
		Logger:  observability.EventLogger(logger.Named("coupon")),
	})
	if err != nil {
		logger.Fatal("failed to initialise coupon service", zap.Error(err))
	}

	checkoutService, err := services.NewStorefrontCheckoutService(services.StorefrontCheckoutServiceDeps{
		Carts:    registry.Carts(),
		Products: registry.Products(),
		Coupons:  registry.Coupons(),
		Checkout: registry.Checkout(),
		Provider: stripeProvider,
		Events:   events,
		Logger:   observability.EventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	orderService, err := services.NewStorefrontOrderService(services.StorefrontOrderServiceDeps{
		Orders: registry.Orders(),
		Events: events,
		Logger: observability.EventLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	renderer, err := invoice.NewRenderer(invoice.RendererDeps{Shop: cfg.Shop})
	if err != nil {
		logger.Fatal("failed to initialise invoice renderer", zap.Error(err))
	}
	invoiceService, err := services.NewOrderInvoiceService(services.OrderInvoiceServiceDeps{
		Orders:   registry.Orders(),
		Renderer: renderer,
		Store:    invoiceStore,
		Events:   events,
		Logger:   observability.EventLogger(logger.Named("invoice")),
	})
	if err != nil {
		logger.Fatal("failed to initialise invoice service", zap.Error(err))
	}

	verifier, err := auth.NewGoogleIDTokenVerifier(ctx, cfg.Auth.Audience)
	if err != nil {
		logger.Fatal("failed to initialise token verifier", zap.Error(err))
	}

	limiterStore, err := newLimiterStore(logger, cfg.Redis)
	if err != nil {
		logger.Fatal("failed to initialise rate limit store", zap.Error(err))
	}
	defaultLimiter, err := ratelimit.NewLimiter(limiterStore, cfg.RateLimits.DefaultPerMinute, time.Minute)
	if err != nil {
		logger.Fatal("failed to initialise default rate limiter", zap.Error(err))
	}
	checkoutLimiter, err := ratelimit.NewLimiter(limiterStore, cfg.RateLimits.CheckoutPerMinute, time.Minute)
	if err != nil {
		logger.Fatal("failed to initialise checkout rate limiter", zap.Error(err))
	}

	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to obtain firestore client", zap.Error(err))
	}
	idempotencyMiddleware := idempotency.Middleware(
		idempotency.NewFirestoreStore(firestoreClient),
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	productHandlers, err := handlers.NewProductHandlers(catalogService)
	if err != nil {
		logger.Fatal("failed to initialise product handlers", zap.Error(err))
	}
	cartHandlers, err := handlers.NewCartHandlers(cartService)
	if err != nil {
		logger.Fatal("failed to initialise cart handlers", zap.Error(err))
	}
	checkoutHandlers, err := handlers.NewCheckoutHandlers(checkoutService)
	if err != nil {
		logger.Fatal("failed to initialise checkout handlers", zap.Error(err))
	}
	orderHandlers, err := handlers.NewOrderHandlers(handlers.OrderHandlersDeps{
		Checkout: checkoutService,
		Orders:   orderService,
		Invoices: invoiceService,
	})
	if err != nil {
		logger.Fatal("failed to initialise order handlers", zap.Error(err))
	}
	adminHandlers, err := handlers.NewAdminHandlers(handlers.AdminHandlersDeps{
		Catalog: catalogService,
		Coupons: couponService,
		Orders:  orderService,
	})
	if err != nil {
		logger.Fatal("failed to initialise admin handlers", zap.Error(err))
	}
	healthHandlers := handlers.NewHealthHandlers(registry.Health())

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(),
			observability.RecoveryMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
			auth.Middleware(verifier),
			ratelimit.Middleware(defaultLimiter, "default", ratelimit.ClientKey),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithProductRoutes(productHandlers.Routes()),
		handlers.WithCartRoutes(cartHandlers.Routes()),
		handlers.WithCartMiddlewares(auth.RequireUser),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes()),
		handlers.WithCheckoutMiddlewares(
			auth.RequireUser,
			ratelimit.Middleware(checkoutLimiter, "checkout", ratelimit.ClientKey),
			idempotencyMiddleware,
		),
		handlers.WithOrderRoutes(orderHandlers.Routes()),
		handlers.WithOrderMiddlewares(
			auth.RequireUser,
			ratelimit.Middleware(checkoutLimiter, "orders", ratelimit.ClientKey),
			idempotencyMiddleware,
		),
		handlers.WithAdminRoutes(adminHandlers.Routes()),
		handlers.WithAdminMiddlewares(auth.RequireUser, auth.RequireAdmin),
	)

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
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	projectID := strings.TrimSpace(os.Getenv("SECRET_PROJECT_ID"))
	if projectID == "" {
		projectID = strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID"))
	}
	fallbackPath := strings.TrimSpace(os.Getenv("SECRET_FALLBACK_FILE"))
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if projectID != "" {
		opts = append(opts, secrets.WithDefaultProject(projectID))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func newLimiterStore(logger *zap.Logger, cfg config.RedisConfig) (ratelimit.CounterStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		logger.Warn("redis not configured; rate limits are tracked per instance")
		return ratelimit.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return ratelimit.NewRedisStore(client)
}
