package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"storefront/auth"
	"storefront/config"
	"storefront/db"
	"storefront/globals"
	"storefront/live"
	"storefront/middleware"
	"storefront/mq"
	"storefront/orders"
	"storefront/pay"
	"storefront/products"
	"storefront/ratelim"
	"storefront/rdx"
	"storefront/reviews"
	"storefront/routes"
	"storefront/stripe"
	"storefront/summary"
	"storefront/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if len(os.Args) > 1 && os.Args[1] == "seed-admin" {
		if err := seedAdmin(cfg, os.Args[2:]); err != nil {
			slog.Error("seed-admin failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(cfg); err != nil {
		slog.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := rdx.NewCache(redisClient)

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	hub := live.NewHub()
	go hub.Run()
	defer hub.Stop()

	aggregator := summary.NewAggregator(summary.NewMongoSource(store), cache, cfg.QueryTimeout, cfg.SummaryCacheTTL)

	var bus orders.Publisher = hub
	if redisClient != nil {
		bus = mq.NewEmitter(redisClient, globals.OrderEventsChannel)
		go mq.Listen(ctx, redisClient, globals.OrderEventsChannel, hub.Broadcast)
	}
	events := orders.Publishers{bus, aggregator}

	productSvc := products.NewService(products.NewMongoRepository(store.ProductCollection))
	orderSvc := orders.NewService(orders.NewMongoRepository(store.OrderCollection), events)
	userSvc := users.NewService(users.NewMongoRepository(store.UserCollection), issuer, cfg.BcryptCost)
	reviewSvc := reviews.NewService(reviews.NewMongoRepository(store.ReviewsCollection), productSvc)
	checkout := stripe.NewClient(cfg.StripeSecretKey, cfg.StripeAPIBase)
	if !checkout.Enabled() {
		slog.Warn("STRIPE_SECRET_KEY not set; checkout disabled")
	}

	limiter := ratelim.NewRateLimiter(10, 5)
	go limiter.Cleanup(ctx, time.Minute)

	router := routes.New(routes.Handlers{
		Users:    users.NewHandler(userSvc),
		Products: products.NewHandler(productSvc),
		Reviews:  reviews.NewHandler(reviewSvc),
		Orders:   orders.NewHandler(orderSvc),
		Checkout: pay.NewHandler(orderSvc, checkout, cache),
		Summary:  summary.NewHandler(aggregator),
		Live:     live.NewHandler(hub, cfg.CORSOrigins),
	}, routes.Gates{
		Auth:        middleware.Authenticate(issuer),
		RateLimiter: limiter,
		Idempotency: pay.Idempotency(pay.NewMongoStore(store.IdempotencyCollection)),
	})

	// apply middleware: CORS → security headers → request id → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", pay.HeaderKey},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler(middleware.SecurityHeaders(middleware.RequestID(middleware.Logging(slog.Default())(router))))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           corsHandler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(hub.Stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received; shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	slog.Info("server stopped cleanly")
	return nil
}

// seedAdmin creates an administrator account from the command line.
func seedAdmin(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	name := fs.String("name", "Admin", "display name")
	email := fs.String("email", "", "login email (required)")
	password := fs.String("password", "", "login password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		fs.Usage()
		return errors.New("-email and -password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	svc := users.NewService(users.NewMongoRepository(store.UserCollection), issuer, cfg.BcryptCost)
	admin, err := svc.SeedAdmin(ctx, users.RegisterInput{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	slog.Info("admin created", "id", admin.ID, "email", admin.Email)
	return nil
}
