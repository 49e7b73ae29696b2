package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/api"
	"github.com/techelons/site/internal/cleanup"
	"github.com/techelons/site/internal/config"
	"github.com/techelons/site/internal/content"
	"github.com/techelons/site/internal/docstore"
	"github.com/techelons/site/internal/logging"
	"github.com/techelons/site/internal/scanner"
	"github.com/techelons/site/internal/stats"
	"github.com/techelons/site/internal/storage"
	"github.com/techelons/site/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Printf("Failed to resolve config path: %v\n", err)
		os.Exit(1)
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Advanced.LogLevel, cfg.Advanced.Development)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalw("failed to create directories", "error", err)
	}

	// Mongo
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Mongo.ConnectTimeoutSeconds)*time.Second)
	docs, err := docstore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, time.Duration(cfg.Mongo.ConnectTimeoutSeconds)*time.Second)
	cancel()
	if err != nil {
		log.Fatalw("mongo connect failed", "error", err)
	}

	blobs, err := newBlobStore(cfg, docs)
	if err != nil {
		log.Fatalw("blob store init failed", "backend", cfg.Storage.Backend, "error", err)
	}
	store := storage.NewAssetStore(
		storage.NewMongoMetadata(docs.Database().Collection(cfg.Mongo.FilesCollection)),
		blobs,
		log.With("component", "storage"),
	)

	cache := content.NewCache(newFetcher(cfg, docs, log), log.With("component", "cache"),
		content.WithEventTTL(cfg.EventDataTTL()))

	rules, err := scanner.LoadRules(cfg.Scanner.RulesFile)
	if err != nil {
		log.Fatalw("failed to load scanner rules", "path", cfg.Scanner.RulesFile, "error", err)
	}
	scan := scanner.New(store, docs, log.With("component", "scanner"), scanner.Options{
		MaxDocuments: cfg.Scanner.MaxDocuments,
		MaxDuration:  cfg.ScanMaxDuration(),
		Exclude:      scanExclusions(cfg),
		Matchers:     scanner.DefaultMatchers(rules),
	})

	deps := &api.Dependencies{
		Store:          store,
		Content:        cache,
		Scanner:        scan,
		Deleter:        cleanup.NewCoordinator(store, log.With("component", "cleanup")),
		Stats:          stats.NewReporter(store, scan, cache, log.With("component", "stats")),
		Database:       docs,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Version:        Version,
		Log:            log,
	}

	api.ShowErrorDetails = cfg.Advanced.Development

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	httpLog := log.With("component", "http")
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health"
		},
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				httpLog.Warnw("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "error", v.Error)
				return nil
			}
			httpLog.Infow("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, api.NewHandlers(deps), api.RouteOptions{
		AllowFileDeletion: cfg.Security.AllowFileDeletion,
		AllowUploads:      cfg.Security.AllowUploads,
	})

	// Register embedded admin pages if available
	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warnw("failed to register admin pages", "error", err)
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Infow("starting site backend",
		"version", Version,
		"buildTime", BuildTime,
		"config", configPath,
		"listen", cfg.GetServerAddr(),
		"fetchMode", cfg.Fetch.Mode,
		"blobBackend", cfg.Storage.Backend,
		"fileDeletion", cfg.Security.AllowFileDeletion)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("listen failed", "error", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutdown requested")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", "error", err)
	}
	if err := docs.Close(shutdownCtx); err != nil {
		log.Warnw("mongo disconnect", "error", err)
	}
	log.Info("shutdown completed")
}

// resolveConfigPath prefers SITE_CONFIG, then site.config.xml next to the executable
func resolveConfigPath() (string, error) {
	if p := os.Getenv("SITE_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), "site.config.xml"), nil
}

func newBlobStore(cfg *config.AppConfig, docs *docstore.MongoStore) (storage.BlobStore, error) {
	switch cfg.Storage.Backend {
	case config.BlobBackendLocal:
		return storage.NewLocalBlobStore(cfg.Storage.UploadsDirectory)
	case config.BlobBackendS3:
		return storage.NewS3BlobStore(context.Background(), cfg.Storage.S3Region, cfg.Storage.S3Bucket, cfg.Storage.S3Endpoint, cfg.Storage.S3Prefix)
	default:
		return storage.NewGridFSBlobStore(docs.Database(), cfg.Storage.GridFSBucket)
	}
}

func newFetcher(cfg *config.AppConfig, docs docstore.Store, log *zap.SugaredLogger) content.ResourceFetcher {
	if cfg.Fetch.Mode == config.FetchModeNetwork {
		return content.NewNetworkFetcher(cfg.Fetch.BaseURL, &http.Client{}, cfg.EventFetchTimeout())
	}
	return content.NewDirectStoreFetcher(docs, cfg.Mongo.SiteContentCollection, cfg.Mongo.EventDataCollection,
		log.With("component", "fetcher"))
}

// scanExclusions lists collections that hold file records rather than content
func scanExclusions(cfg *config.AppConfig) []string {
	exclude := []string{
		cfg.Mongo.FilesCollection,
		cfg.Storage.GridFSBucket + ".files",
		cfg.Storage.GridFSBucket + ".chunks",
	}
	return append(exclude, cfg.ExcludedCollections()...)
}
