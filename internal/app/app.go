package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jonboulle/clockwork"

	"gridexport/internal/config"
	apierrors "gridexport/internal/errors"
	"gridexport/internal/exporter"
	"gridexport/internal/files"
	"gridexport/internal/infrastructure"
	customMiddleware "gridexport/internal/middleware"
	"gridexport/internal/renderer"
	"gridexport/internal/services"
	handlers "gridexport/internal/transport/http"
	ws "gridexport/internal/websocket"
	"gridexport/pkg/contracts"
)

const AppName = "Grid Export"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Router        *chi.Mux
	Server        *http.Server
	OTelProviders *infrastructure.OTelProviders
	WebSocketHub  *ws.Hub
	Orchestrator  *exporter.Orchestrator
	ExportService *services.ExportService
	HealthService *services.HealthService
	// Store and Discovery are nil unless export persistence is enabled
	Store     *files.Store
	Discovery *files.Discovery

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.Validator
	pdf          *renderer.PDFSink
	mu           sync.Mutex
	listener     net.Listener
	serveErr     chan error
}

// NewApplication loads configuration, initializes the logger and builds the
// application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	return New(cfg, logger)
}

// New wires an application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		serveErr:      make(chan error, 1),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices creates the sinks, the orchestrator and the services
// that sit on top of it
func (a *Application) initializeServices() error {
	hubMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	hub := ws.NewHub(a.Logger, hubMetrics, clockwork.NewRealClock())
	hub.Start()
	a.WebSocketHub = hub

	sinks := []exporter.Sink{
		renderer.NewCSVSink(a.Config.Export.CSVBOM, a.Logger),
		renderer.NewExcelSink(a.Config.Renderer.SheetName, a.Logger),
	}
	if a.Config.Renderer.EnablePDF {
		a.pdf = renderer.NewPDFSink(renderer.PDFOptions{
			ChromePath: a.Config.Renderer.ChromePath,
			Headless:   a.Config.Renderer.Headless,
			Landscape:  a.Config.Renderer.Landscape,
			Scale:      a.Config.Renderer.Scale,
			MarginCM:   a.Config.Renderer.MarginCM,
		}, a.Logger)
		sinks = append(sinks, a.pdf)
	}

	exportMetrics, err := exporter.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create export metrics: %w", err)
	}

	a.Orchestrator = exporter.NewOrchestrator(sinks, exporter.Options{
		ReadyTimeout:   a.Config.Export.ReadyTimeout,
		FilePrefix:     a.Config.Export.FilePrefix,
		DefaultPrimary: a.Config.Export.PrimaryField,
		MaxRows:        a.Config.Export.MaxRows,
		Clock:          clockwork.NewRealClock(),
		Logger:         a.Logger,
		Metrics:        exportMetrics,
		Notifier:       hub,
		OnStateChange: func(id string, from, to exporter.State) {
			a.Logger.Debug("Export state changed",
				slog.String("export_id", id),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	if a.Config.Export.Persist {
		dir, err := a.Config.OutputDir()
		if err != nil {
			return fmt.Errorf("failed to resolve output directory: %w", err)
		}
		if err := config.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		a.Store = files.NewStore(dir, a.Logger)
		a.Discovery = files.NewDiscovery(dir, a.Config.Export.FilePrefix)
		a.Logger.Info("Export persistence enabled", slog.String("dir", dir))
	}

	// A nil *files.Store must not reach the ArtifactStore interface
	if a.Store != nil {
		a.ExportService = services.NewExportService(a.Orchestrator, a.Store, a.Logger)
	} else {
		a.ExportService = services.NewExportService(a.Orchestrator, nil, a.Logger)
	}

	a.HealthService = services.NewHealthService(a.Orchestrator, hub, a.Discovery, clockwork.NewRealClock(), a.Logger)

	a.errorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	a.validator = customMiddleware.NewValidator(a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer, timeouts per route group
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.errorHandler))

	wsHandler := ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)
	if otelMiddleware != nil {
		r.With(otelMiddleware.WebSocket).Handle("/ws", wsHandler)
	} else {
		r.Handle("/ws", wsHandler)
	}

	a.setupAPIRoutes(r)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(apierrors.NewErrorMiddleware(a.errorHandler, a.Logger).Handler)
		r.Use(customMiddleware.Compress(5))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			handlers.NewHealthHandler(a.HealthService, a.Logger).Register(r)

			if a.Store != nil {
				artifactHandler := handlers.NewArtifactHandler(a.Store, a.Discovery, a.Config.Export.FilePrefix, a.errorHandler, a.Logger)
				r.Mount("/artifacts", artifactHandler.Routes())
			}
		})

		// Exports wait on the renderers, so they get the longer request timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
			r.Use(customMiddleware.MaxBodySize(a.Config.Server.MaxBodyBytes))

			exportHandler := handlers.NewExportHandler(a.ExportService, a.validator, a.errorHandler, a.Logger)
			r.Mount("/export", exportHandler.Routes())

			r.Post("/logs", handlers.NewClientLogHandler(a.validator, a.errorHandler, a.Logger).Handle)
		})
	})
}

// getCORSConfig builds the CORS policy from the security settings
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			customMiddleware.ExportIDHeader,
			customMiddleware.RequestIDHeader,
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Start binds the listen address and serves in the background
func (a *Application) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.mu.Lock()
	a.listener = listener
	a.mu.Unlock()

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", listener.Addr().String()),
		slog.Any("formats", a.Orchestrator.Formats()),
		slog.Bool("persist", a.Store != nil))

	go func() {
		if err := a.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Server error", slog.String("error", err.Error()))
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	return nil
}

// Addr returns the bound address once Start has succeeded
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop drains the server, then releases the hub, the print engine and the
// telemetry providers
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if a.pdf != nil {
		if err := a.pdf.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing PDF renderer", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("log file close error: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// server fails
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	case err, ok := <-a.serveErr:
		if ok {
			serveErr = err
		}
	}

	// The parent context is already done here
	if err := a.Stop(context.Background()); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}
