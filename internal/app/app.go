package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/report"
	"github.com/xenking/pos-order-engine/internal/handler"
	"github.com/xenking/pos-order-engine/internal/storage"
	"github.com/xenking/pos-order-engine/pkg/health"
	"github.com/xenking/pos-order-engine/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	orderCfg, err := cfg.OrderConfig()
	if err != nil {
		return err
	}

	// Storage + migrations.
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck(cfg.Storage.Driver, 5*time.Second, health.PingCheck(store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	apiHandler, err := newHandler(ctx, lg, m, cfg, orderCfg, store, healthSvc)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           apiHandler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHandler builds the API and health routes over store behind the server
// middleware chain.
func newHandler(
	ctx context.Context,
	lg *zap.Logger,
	tel httpmiddleware.Telemetry,
	cfg *Config,
	orderCfg order.Config,
	store *storage.Store,
	healthSvc *health.Health,
) (http.Handler, error) {
	orderService, err := order.NewService(store.Catalog, store.Orders, orderCfg,
		order.WithMeterProvider(tel.MeterProvider()),
		order.WithTracerProvider(tel.TracerProvider()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}
	reportEngine := report.NewEngine(store.Orders, store.Catalog, orderCfg.Location, tel.TracerProvider())

	h := handler.NewHandler(
		orderService,
		reportEngine,
		store.Catalog,
		handler.NewAuthenticator(store.APIKeys, []byte(cfg.APIKeyPepper)),
	)

	// Health endpoints + API routes on one mux.
	mux := h.Router("/api", httpmiddleware.LogRequests())
	mux.Get("/livez", healthSvc.LiveEndpoint)
	mux.Get("/readyz", healthSvc.ReadyEndpoint)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Content-Type", handler.APIKeyHeader},
			ExposeHeaders:    []string{"Location", httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: httpmiddleware.HeaderOrIP(handler.APIKeyHeader),
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("pos-api", tel),
	), nil
}
