package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nahuelcoria/tienda-backend/api/routes"
	"github.com/nahuelcoria/tienda-backend/internal/auth"
	"github.com/nahuelcoria/tienda-backend/internal/cart"
	"github.com/nahuelcoria/tienda-backend/internal/catalog"
	"github.com/nahuelcoria/tienda-backend/internal/checkout"
	"github.com/nahuelcoria/tienda-backend/internal/shipping"
	"github.com/nahuelcoria/tienda-backend/internal/users"
	"github.com/nahuelcoria/tienda-backend/internal/wishlist"
	"github.com/nahuelcoria/tienda-backend/pkg/auth/session"
	"github.com/nahuelcoria/tienda-backend/pkg/config"
	"github.com/nahuelcoria/tienda-backend/pkg/kv"
	"github.com/nahuelcoria/tienda-backend/pkg/logger"
	"github.com/nahuelcoria/tienda-backend/pkg/metrics"
	"github.com/nahuelcoria/tienda-backend/pkg/square"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	kvClient, err := kv.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap key/value store", err)
		os.Exit(1)
	}
	defer func() {
		if err := kvClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing key/value store", err)
		}
	}()

	sessionManager, err := session.NewManager(kvClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	catalogService, err := catalog.NewService(catalog.ServiceParams{FixturePath: cfg.Catalog.Path})
	if err != nil {
		logg.Error(context.Background(), "failed to load catalog", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{Catalog: catalogService})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	shippingService, err := shipping.NewService(shipping.ServiceParams{
		Config:  cfg.Shipping,
		Metrics: storefrontMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.ServiceParams{
		Store:    kvClient,
		Password: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Store:   kvClient,
		Catalog: catalogService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Config:   cfg.Checkout,
		Cart:     cartService,
		Shipping: shippingService,
		Payments: squareClient,
		Users:    userService,
		Metrics:  storefrontMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			KV:             kvClient,
			SessionManager: sessionManager,
			Registry:       registry,
			Auth:           authService,
			Catalog:        catalogService,
			Cart:           cartService,
			Shipping:       shippingService,
			Checkout:       checkoutService,
			Users:          userService,
			Wishlist:       wishlistService,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithFields(ctx, map[string]any{"signal": sig.String()}), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
