package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kilnandclay/storefront/internal/api/handlers"
	"github.com/kilnandclay/storefront/internal/api/middleware"
	"github.com/kilnandclay/storefront/internal/config"
	"github.com/kilnandclay/storefront/internal/health"
	"github.com/kilnandclay/storefront/internal/metrics"
	repository "github.com/kilnandclay/storefront/internal/repositories"
	service "github.com/kilnandclay/storefront/internal/services"
	"github.com/kilnandclay/storefront/pkg/gateway"
	"github.com/kilnandclay/storefront/pkg/sendgrid"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", "error", err.Error())
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	if err := repos.RunMigrations(cfg); err != nil {
		slog.Error("❌ Error running database migrations", "error", err.Error())
		os.Exit(1)
	}

	// Redis setup, holds the guest carts
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", "error", err.Error())
		os.Exit(1)
	}

	jwtKey := []byte(cfg.Security.JWTKey)
	gatewayClient := gateway.NewClient(cfg.Gateway.MerchantID, cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	sendGridClient := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	guestCarts := repository.NewGuestCartRepo(redisClient)
	cartService := service.NewCartService(repos.Cart, guestCarts)
	cartHandler := handlers.NewCartHandler(cartService)
	pricingEngine := service.NewPricingEngine(cfg.Shipping)
	orderService := service.NewOrderService(repos.Order, repos.Inventory, cartService, sendGridClient)
	settlementService := service.NewSettlementService(repos.Settlement, gatewayClient, orderService, cfg.Gateway)
	checkoutService := service.NewCheckoutService(cartService, repos.Coupon, pricingEngine, settlementService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	callbackHandler := handlers.NewPaymentCallbackHandler(settlementService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)

	healthHandler, err := health.NewHealthHandler(cfg, &health.Endpoints{
		DB:          repos.DB,
		RedisClient: redisClient,
	})
	if err != nil {
		slog.Error("❌ Error creating the health handler", "error", err.Error())
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("GET /api/v1/cart", authMiddleware.Identify(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/cart/items", authMiddleware.Identify(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/v1/cart/items", authMiddleware.Identify(cartHandler.UpdateQuantity()))
	routerMux.HandleFunc("DELETE /api/v1/cart/items/{productId}", authMiddleware.Identify(cartHandler.RemoveItem()))
	routerMux.HandleFunc("DELETE /api/v1/cart", authMiddleware.Identify(cartHandler.ClearCart()))
	routerMux.HandleFunc("POST /api/v1/cart/merge", authMiddleware.Authenticate(cartHandler.MergeCart()))
	routerMux.HandleFunc("POST /api/v1/checkout/quote", authMiddleware.Identify(checkoutHandler.Quote()))
	routerMux.HandleFunc("POST /api/v1/checkout", authMiddleware.Identify(checkoutHandler.Submit()))
	routerMux.HandleFunc("GET /api/v1/payments/callback", callbackHandler.Callback())
	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)

	// Setup http server
	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() { // Starts the HTTP server in a new goroutine so it doesn't block the main thread.

		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.Any("error", err.Error()))
		}
	}()

	// Periodically abandon settlement transactions the shopper never returned
	// from the gateway for.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()

	go func() {
		ticker := time.NewTicker(cfg.Checkout.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				swept, err := settlementService.SweepAbandoned(sweepCtx, cfg.Checkout.PendingTTL)
				if err != nil {
					slog.Error("⚠️ Abandoned settlement sweep failed", slog.String("error", err.Error()))
					continue
				}

				if swept > 0 {
					slog.Info("Abandoned settlements swept", slog.Int64("count", swept))
				}
			}
		}
	}()

	<-done // blocking, until no signal is added to "done" channel, after the some signal is received the code after this point would be executed

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

}
