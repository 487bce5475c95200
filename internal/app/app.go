// Package app builds the crawler and its collaborators from runtime config.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newscrawler/internal/blob"
	"github.com/deusflow/newscrawler/internal/cache"
	"github.com/deusflow/newscrawler/internal/category"
	"github.com/deusflow/newscrawler/internal/config"
	"github.com/deusflow/newscrawler/internal/crawler"
	"github.com/deusflow/newscrawler/internal/gemini"
	"github.com/deusflow/newscrawler/internal/images"
	"github.com/deusflow/newscrawler/internal/metrics"
	"github.com/deusflow/newscrawler/internal/model"
	"github.com/deusflow/newscrawler/internal/notify"
	"github.com/deusflow/newscrawler/internal/openai"
	"github.com/deusflow/newscrawler/internal/ratelimit"
	"github.com/deusflow/newscrawler/internal/retention"
	"github.com/deusflow/newscrawler/internal/scraper"
	"github.com/deusflow/newscrawler/internal/search"
	"github.com/deusflow/newscrawler/internal/storage"
	"github.com/deusflow/newscrawler/internal/summarize"
	"github.com/deusflow/newscrawler/internal/telegram"
)

// App holds every long-lived collaborator of the process.
type App struct {
	Config    *config.Config
	Settings  *config.FileProvider
	Store     storage.NewsStore
	Blobs     blob.Store
	Budget    *ratelimit.Budget
	Bus       *notify.Bus
	Hub       *notify.Hub
	Retention *retention.Enforcer
	Crawler   *crawler.Crawler

	blobDir *blob.Dir
	closers []func() error
}

// New wires the application. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// OpenStorage wires only settings, store, blobs and retention. It serves
// maintenance commands that never call a model; Crawler, Bus and Hub stay nil.
func OpenStorage(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.buildStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildStorage(ctx context.Context) error {
	settings, err := config.NewFileProvider(a.Config.SettingsPath)
	if err != nil {
		return err
	}
	a.Settings = settings

	store, err := openStore(a.Config)
	if err != nil {
		return err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if err := a.openBlobs(ctx); err != nil {
		return err
	}
	a.Retention = retention.New(a.Store, a.Blobs, a.Settings)
	return nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	if err := a.buildStorage(ctx); err != nil {
		return err
	}

	a.Budget = ratelimit.NewBudget(cfg.MaxTextRequests, cfg.MaxImageRequests)

	backend, err := a.textBackend(ctx)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	pages := cache.New[*scraper.Page](10 * time.Minute)
	a.closers = append(a.closers, func() error { pages.Close(); return nil })
	fetcher := scraper.NewFetcher(httpClient, pages, cfg.FetchCacheTTL)

	gateway, err := a.searchGateway(ctx, httpClient)
	if err != nil {
		return err
	}

	resolver := a.imageResolver()

	a.Hub = notify.NewHub()
	a.Bus = notify.NewBus(64, a.Hub)
	if cfg.TelegramToken != "" {
		a.Bus.Subscribe(notify.NewTelegramSink(telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID)))
	}

	a.Crawler = crawler.New(crawler.Options{
		Store:       a.Store,
		Settings:    a.Settings,
		Search:      gateway,
		Fetcher:     fetcher,
		Summarizer:  summarize.New(backend, a.Settings, a.Budget, fetcher),
		Images:      resolver,
		Retention:   a.Retention,
		Blobs:       a.Blobs,
		Publisher:   a.Bus,
		Concurrency: cfg.FetchConcurrency,
		Interval:    cfg.TickInterval,
	})
	return nil
}

func (a *App) textBackend(ctx context.Context) (summarize.Backend, error) {
	cfg := a.Config
	switch cfg.TextBackend {
	case "openai":
		slog.Info("text backend", "provider", "openai", "model", cfg.OpenAIModel)
		return openai.NewBackend(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		slog.Info("text backend", "provider", "gemini", "model", cfg.GeminiModel)
		return client, nil
	}
}

// searchGateway prefers Custom Search and falls back to the news RSS feed.
func (a *App) searchGateway(ctx context.Context, client *http.Client) (search.Gateway, error) {
	cs, err := search.NewCustomSearch(ctx, a.Config.SearchAPIKey, a.Config.SearchEngineID, a.Config.SearchMaxPages)
	if err != nil {
		return nil, err
	}
	feed := search.NewNewsFeed(client)
	if cs == nil {
		slog.Warn("custom search credentials missing, using news feed only")
		return search.Chain{feed}, nil
	}
	return search.Chain{cs, feed}, nil
}

func (a *App) openBlobs(ctx context.Context) error {
	if a.Config.BlobBucket != "" {
		gcs, err := blob.NewGCS(ctx, a.Config.BlobBucket)
		if err != nil {
			return err
		}
		a.Blobs = gcs
		a.closers = append(a.closers, gcs.Close)
		return nil
	}
	dir, err := blob.NewDir(a.Config.BlobDir, a.Config.BlobBaseURL)
	if err != nil {
		return err
	}
	a.Blobs = dir
	a.blobDir = dir
	return nil
}

// imageResolver enables generation only when an OpenAI key is configured.
func (a *App) imageResolver() *images.Resolver {
	var gen images.Generator
	if a.Config.OpenAIAPIKey != "" {
		gen = openai.NewImageGenerator(a.Config.OpenAIAPIKey, a.Config.ImageModel)
	}
	r := images.NewResolver(gen, a.Blobs, a.Budget)
	r.Definitive = openai.IsDefinitive
	return r
}

// Serve runs the scheduler, the notification bus, the settings watcher and,
// when enabled, the monitoring server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Bus.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return a.Settings.Watch(gctx)
	})
	if a.Config.EnableMonitoring {
		g.Go(func() error {
			return a.serveMonitoring(gctx)
		})
	}
	g.Go(func() error {
		err := a.Crawler.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func (a *App) serveMonitoring(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Config.MonitoringPort,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting monitoring server", "port", a.Config.MonitoringPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitoring server: %w", err)
	}
	return nil
}

// Handler serves /health, /metrics, /ws and locally stored images.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", a.metricsHandler)
	if a.Hub != nil {
		mux.Handle("/ws", a.Hub)
	}
	if a.blobDir != nil && strings.HasPrefix(a.Config.BlobBaseURL, "/") {
		mux.Handle(strings.TrimSuffix(a.Config.BlobBaseURL, "/")+"/", a.blobDir.Handler())
	}
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if !metrics.Global.Healthy() {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()
	if a.Budget != nil {
		stats["model_budget"] = a.Budget.GetStats()
	}
	if a.Hub != nil {
		stats["websocket_clients"] = a.Hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// Prune enforces retention for the given categories, or for every scheduled
// category when none are given.
func (a *App) Prune(ctx context.Context, categories ...string) ([]retention.Report, error) {
	if len(categories) == 0 {
		categories = category.Categories(a.Settings.Get())
		categories = append(categories, model.Regional...)
	}

	var reports []retention.Report
	var errs []error
	for _, cat := range categories {
		rep, err := a.Retention.Enforce(ctx, cat)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
