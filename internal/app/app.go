package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"salespulse/internal/config"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/importer"
	"salespulse/internal/infrastructure"
	"salespulse/internal/mapping"
	custommw "salespulse/internal/middleware"
	"salespulse/internal/services"
	"salespulse/internal/store"
	handlers "salespulse/internal/transport/http"
)

// AppName identifies the service in startup logs.
const AppName = "salespulse"

// Version and BuildTime are set at build time through -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Application holds the wired components of the server.
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger
	Router chi.Router
	Server *http.Server

	Store       *store.SQLStore
	Mapper      *mapping.Mapper
	Importer    *importer.Importer
	Exporter    *exporter.Exporter
	DataService *services.DataService
}

// NewApplication loads configuration and builds the full application graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &Application{
		Config: cfg,
		Paths:  paths,
		Logger: logger,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices opens the store, loads ingestion schemas and builds the
// domain services on top of them.
func (a *Application) initializeServices() error {
	sqlStore, err := store.Open(a.Paths.Database, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", a.Paths.Database, err)
	}
	a.Store = sqlStore

	a.Mapper = mapping.NewMapper()
	if err := a.Mapper.LoadSchemaDir(a.Paths.SchemasDir); err != nil {
		return fmt.Errorf("failed to load schemas from %s: %w", a.Paths.SchemasDir, err)
	}

	ctx := context.Background()
	for _, schema := range a.Mapper.Schemas() {
		if err := a.Store.EnsureSchema(ctx, schema); err != nil {
			return fmt.Errorf("failed to ensure table %s: %w", schema.Table, err)
		}
	}
	a.Logger.Info("schemas loaded",
		slog.Int("count", len(a.Mapper.Schemas())),
		slog.String("dir", a.Paths.SchemasDir),
	)

	a.Importer = importer.New(a.Logger, a.Mapper)
	a.Exporter = exporter.New(a.Logger)
	a.DataService = services.NewDataService(a.Store, a.Logger)
	return nil
}

// setupRouter builds the chi router with the full middleware chain and all
// API routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StripSlashes)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.CORS(custommw.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		Logger:         a.Logger,
	}))
	r.Use(custommw.Compress(5))

	if a.Config.Security.RateLimit.Enabled {
		r.Use(custommw.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	a.setupAPIRoutes(r)

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes registers all /api endpoints.
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	dataHandler := handlers.NewDataHandler(a.DataService, a.Logger, errorHandler)
	importHandler := handlers.NewImportHandler(
		a.Importer, a.Store, a.Paths.UploadsDir,
		int(a.Config.Ingestion.MaxUploadMB),
		a.Config.Ingestion.DefaultUpsert,
		a.Logger, errorHandler)
	exportHandler := handlers.NewExportHandler(
		a.Store, a.Exporter, a.Paths.ExportsDir, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(Version, BuildTime, a.Logger)

	standard := custommw.Timeout(a.Config.Server.ReadTimeout, a.Logger)
	// Uploads and exports get the longer write timeout; large spreadsheets
	// take a while to parse.
	long := custommw.Timeout(a.Config.Server.WriteTimeout, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.With(standard).Get("/health", healthHandler.HealthCheck)
		r.With(standard).Get("/version", healthHandler.Version)

		r.With(standard).Mount("/dashboard", dataHandler.DashboardRoutes())

		r.Route("/data", func(r chi.Router) {
			r.With(long).Post("/upload", importHandler.Upload)
			r.With(long).Post("/export", exportHandler.Export)
			r.With(standard).Mount("/", dataHandler.Routes())
		})
	})
}

// createServer builds the HTTP server around the router.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the HTTP server. A listen failure cancels the supplied
// context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("database", a.Paths.Database),
		slog.String("log_level", a.Config.Logging.Level),
	)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
	)
	return nil
}

// Stop shuts the server down gracefully and closes the store.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "failed to close store", slog.String("error", err.Error()))
		}
	}

	infrastructure.CloseLogFile()
	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run starts the application and blocks until an interrupt or a fatal server
// error, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
