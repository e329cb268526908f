package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"super-odds-alerts/internal/affiliate"
	"super-odds-alerts/internal/cache"
	"super-odds-alerts/internal/config"
	"super-odds-alerts/internal/feed"
	"super-odds-alerts/internal/httpapi"
	"super-odds-alerts/internal/metrics"
	"super-odds-alerts/internal/notify"
	"super-odds-alerts/internal/scheduler"
	"super-odds-alerts/internal/service"
	"super-odds-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newRegistry() *affiliate.Static {
	providers := affiliate.Defaults()
	if len(a.Config.Affiliates) > 0 {
		providers = make(map[string]affiliate.Provider, len(a.Config.Affiliates))
		for id, aff := range a.Config.Affiliates {
			providers[id] = affiliate.Provider{Name: aff.Name, Link: aff.Link}
		}
	}
	return affiliate.NewStatic(providers)
}

func (a *App) newFeedClient() *feed.Client {
	return feed.NewClient(feed.Options{
		BaseURL:   a.Config.Feed.BaseURL,
		Timeout:   a.Config.Feed.RequestTimeout,
		UserAgent: a.Config.Feed.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() notify.Notifier {
	if !a.Config.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Telegram
	channel := notify.NewTelegram(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.RequestTimeout, a.Logger)
	return notify.NewDispatcher(channel, cfg.SendGap, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn is not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store storage.SuperOddStore) *service.Service {
	return service.New(a.Config, a.newFeedClient(), store, a.newRegistry(), a.newNotifier(), a.Logger)
}

// Run executes the long-running watcher: the collector loop, the digest
// loop, the REST listener, and the metrics listener, all tied to one
// signal-aware context.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	group, groupCtx := errgroup.WithContext(ctx)

	collectorSched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Collector.Interval,
		StartupDelay:   a.Config.Collector.StartupDelay,
		RunImmediately: a.Config.Collector.RunImmediately,
	}, a.Logger)

	group.Go(func() error {
		a.Logger.Info().Dur("interval", a.Config.Collector.Interval).Msg("starting collector loop")
		return svc.RunCollector(groupCtx, collectorSched)
	})

	if a.Config.Digest.Enabled && a.Config.Telegram.Enabled {
		digestSched := scheduler.New(scheduler.Options{
			Interval: a.Config.Digest.Interval,
		}, a.Logger)
		group.Go(func() error {
			a.Logger.Info().Dur("interval", a.Config.Digest.Interval).Msg("starting digest loop")
			return svc.RunDigest(groupCtx, digestSched)
		})
	}

	if a.Config.HTTP.Enabled {
		server, err := a.newHTTPServer(groupCtx, svc)
		if err != nil {
			return err
		}
		group.Go(func() error {
			a.Logger.Info().Str("addr", a.Config.HTTP.ListenAddr).Msg("starting http listener")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if a.Config.Metrics.Enabled {
		metricsServer := metrics.NewServer(a.Config.Metrics.ListenAddr, store.Ping)
		group.Go(func() error {
			a.Logger.Info().Str("addr", a.Config.Metrics.ListenAddr).Msg("starting metrics listener")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("watcher stopped")
	return nil
}

func (a *App) newHTTPServer(ctx context.Context, svc *service.Service) (*http.Server, error) {
	var readCache *cache.Cache
	if addr := a.Config.Cache.RedisAddr; addr != "" {
		client, err := cache.Connect(ctx, addr)
		if err != nil {
			return nil, err
		}
		readCache = cache.New(client, a.Config.Cache.TTL)
		a.Logger.Info().Str("addr", addr).Msg("redis read cache enabled")
	}

	api := httpapi.New(svc, readCache, a.Logger)
	return &http.Server{Addr: a.Config.HTTP.ListenAddr, Handler: api.Router()}, nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit       int
	HideExpired bool
}

// ExportOptions hold parameters for exporting stored odds.
type ExportOptions struct {
	CSVPath   string
	PNGPath   string
	MaxPoints int
}
