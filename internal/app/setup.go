package app

import (
	"context"
	"fmt"
	"time"

	"github.com/xbklairith/aubit-poly/internal/alerts"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"github.com/xbklairith/aubit-poly/internal/scanner"
	"github.com/xbklairith/aubit-poly/internal/venues/binance"
	"github.com/xbklairith/aubit-poly/internal/venues/demo"
	"github.com/xbklairith/aubit-poly/internal/venues/kalshi"
	"github.com/xbklairith/aubit-poly/internal/venues/pgsource"
	"github.com/xbklairith/aubit-poly/internal/venues/polymarket"
	"github.com/xbklairith/aubit-poly/pkg/cache"
	"github.com/xbklairith/aubit-poly/pkg/config"
	"github.com/xbklairith/aubit-poly/pkg/healthprobe"
	"github.com/xbklairith/aubit-poly/pkg/httpserver"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		noAlerts: opts.NoAlerts,
	}

	err := a.setup(opts)
	if err != nil {
		a.closeResources()
		cancel()
		return nil, err
	}

	return a, nil
}

func (a *App) setup(opts *Options) error {
	cfg, logger := a.cfg, a.logger

	// Readiness goes stale after three missed cycles.
	a.healthChecker = setupHealthChecker(3*cfg.ScanInterval + cfg.ScanErrorBackoff)

	matcher, err := setupMatcher(cfg)
	if err != nil {
		return fmt.Errorf("setup matcher: %w", err)
	}

	var broadcast *alerts.BroadcastChannel
	if cfg.HTTPEnabled && !opts.Demo {
		broadcast = alerts.NewBroadcastChannel(logger)
	}

	dispatcher, err := a.setupDispatcher(opts, broadcast)
	if err != nil {
		return fmt.Errorf("setup dispatcher: %w", err)
	}
	a.dispatcher = dispatcher

	sources, err := a.setupSources(opts)
	if err != nil {
		return fmt.Errorf("setup sources: %w", err)
	}

	oracle, err := a.setupOracle(opts)
	if err != nil {
		return fmt.Errorf("setup oracle: %w", err)
	}

	a.scanner, err = setupScanner(cfg, logger, sources, matcher, oracle, dispatcher, a.healthChecker)
	if err != nil {
		return fmt.Errorf("setup scanner: %w", err)
	}

	if cfg.HTTPEnabled && !opts.Demo {
		a.httpServer = setupHTTPServer(cfg, logger, a.healthChecker, a.scanner, broadcast)
	}

	return nil
}

func setupHealthChecker(staleAfter time.Duration) *healthprobe.HealthChecker {
	return healthprobe.New(staleAfter)
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	results httpserver.ResultSource,
	broadcast *alerts.BroadcastChannel,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Results:       results,
		LiveFeed:      broadcast,
	})
}

func setupCache(name string, maxItems int64, logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		Name:        name,
		NumCounters: maxItems * 10, // 10x expected max items
		MaxCost:     maxItems,
		BufferItems: 64, // Buffer size for Get operations
		Logger:      logger,
	})
}

// setupMatcher overlays the optional vocabulary file on the built-in one.
func setupMatcher(cfg *config.Config) (*arbitrage.Matcher, error) {
	matcherCfg := arbitrage.DefaultMatcherConfig()

	m, err := config.LoadMatching(cfg.MatchingConfigPath)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return arbitrage.NewMatcher(matcherCfg), nil
	}

	if len(m.AssetKeywords) > 0 {
		matcherCfg.AssetKeywords = m.AssetKeywords
	}
	if len(m.PriceLevels) > 0 {
		matcherCfg.PriceLevels = m.PriceLevels
	}
	if m.MaxEndDateGapDays > 0 {
		matcherCfg.MaxEndDateGapDays = m.MaxEndDateGapDays
	}
	if len(m.Events) > 0 {
		mappings := make(arbitrage.EventMappings, len(m.Events))
		for event, ids := range m.Events {
			mappings[event] = make(map[types.Venue]string, len(ids))
			for venue, id := range ids {
				mappings[event][types.Venue(venue)] = id
			}
		}
		matcherCfg.EventMappings = mappings
	}

	return arbitrage.NewMatcher(matcherCfg), nil
}

func (a *App) setupDispatcher(opts *Options, broadcast *alerts.BroadcastChannel) (*alerts.Dispatcher, error) {
	cfg, logger := a.cfg, a.logger

	var channels []alerts.Channel
	if cfg.ConsoleAlerts || opts.Demo {
		channels = append(channels, alerts.NewConsoleChannel(opts.Out, logger))
	}
	if !opts.Demo {
		if cfg.DiscordWebhookURL != "" {
			channels = append(channels, alerts.NewDiscordChannel(alerts.DiscordConfig{
				WebhookURL: cfg.DiscordWebhookURL,
				Logger:     logger,
			}))
		}
		if cfg.TelegramBotToken != "" {
			channels = append(channels, alerts.NewTelegramChannel(alerts.TelegramConfig{
				BotToken: cfg.TelegramBotToken,
				ChatID:   cfg.TelegramChatID,
				Logger:   logger,
			}))
		}
	}
	if broadcast != nil {
		channels = append(channels, broadcast)
	}

	seen, err := a.setupSeenStore(opts)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name())
	}
	logger.Info("alert-channels-configured",
		zap.Strings("channels", names),
		zap.String("dedup-backend", cfg.AlertDedupBackend),
		zap.Duration("dedup-ttl", cfg.AlertDedupTTL))

	return alerts.NewDispatcher(alerts.DispatcherConfig{
		Channels:  channels,
		Seen:      seen,
		MaxAlerts: cfg.MaxAlertsPerBatch,
		Logger:    logger,
	})
}

func (a *App) setupSeenStore(opts *Options) (alerts.SeenStore, error) {
	cfg := a.cfg

	if cfg.AlertDedupBackend == config.DedupRedis && !opts.Demo {
		ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
		defer cancel()

		store, err := alerts.NewRedisSeenStore(ctx, alerts.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.AlertDedupTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis seen store: %w", err)
		}
		return store, nil
	}

	capacity := cfg.AlertDedupCapacity
	if capacity <= 0 {
		capacity = 10000
	}

	// Closed by the dispatcher through the seen store.
	c, err := setupCache("alert-dedup", capacity, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}
	return alerts.NewCacheSeenStore(c, cfg.AlertDedupTTL), nil
}

func (a *App) setupSources(opts *Options) ([]scanner.MarketSource, error) {
	if opts.Demo {
		return []scanner.MarketSource{demo.NewSource(types.VenueDemo, nil)}, nil
	}

	sources := make([]scanner.MarketSource, 0, len(a.cfg.MarketSources))
	for _, name := range a.cfg.MarketSources {
		src, err := newSource(a.cfg, a.logger, name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// newSource builds the market source registered under name.
func newSource(cfg *config.Config, logger *zap.Logger, name string) (scanner.MarketSource, error) {
	switch name {
	case config.SourcePolymarket:
		return polymarket.New(polymarket.Config{
			BaseURL:   cfg.PolymarketGammaURL,
			Timeout:   cfg.VenueHTTPTimeout,
			RateLimit: cfg.VenueRateLimit,
			Logger:    logger,
		}), nil
	case config.SourceKalshi:
		return kalshi.New(kalshi.Config{
			BaseURL:   cfg.KalshiAPIURL,
			APIKey:    cfg.KalshiAPIKey,
			Timeout:   cfg.VenueHTTPTimeout,
			RateLimit: cfg.VenueRateLimit,
			Logger:    logger,
		}), nil
	case config.SourcePostgres:
		return pgsource.New(pgsource.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Venue:    types.Venue(cfg.PostgresMarketVenue),
			Logger:   logger,
		}), nil
	case config.SourceDemo:
		return demo.NewSource(types.VenueDemo, nil), nil
	default:
		return nil, fmt.Errorf("unknown market source %q", name)
	}
}

func (a *App) setupOracle(opts *Options) (arbitrage.ProbabilityOracle, error) {
	if opts.Demo {
		return demo.NewOracle(nil), nil
	}
	if !a.cfg.HedgingEnabled {
		return nil, nil
	}

	listings, err := setupCache("binance-options", 64, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create options cache: %w", err)
	}
	a.caches = append(a.caches, listings)

	return binance.New(binance.Config{
		BaseURL:   a.cfg.BinanceOptionsURL,
		APIKey:    a.cfg.BinanceAPIKey,
		Timeout:   a.cfg.VenueHTTPTimeout,
		RateLimit: a.cfg.VenueRateLimit,
		Cache:     listings,
		Logger:    a.logger,
	}), nil
}

func setupScanner(
	cfg *config.Config,
	logger *zap.Logger,
	sources []scanner.MarketSource,
	matcher *arbitrage.Matcher,
	oracle arbitrage.ProbabilityOracle,
	dispatcher *alerts.Dispatcher,
	healthChecker *healthprobe.HealthChecker,
) (*scanner.Scanner, error) {
	var hedging *arbitrage.HedgingDetector
	if oracle != nil {
		hedging = arbitrage.NewHedgingDetector(arbitrage.HedgingConfig{
			MinDiscrepancy: cfg.MinHedgingProfit,
			Oracle:         oracle,
			HedgeVenue:     types.VenueBinance,
			Logger:         logger,
		})
	}

	var validator arbitrage.PairValidator
	if cfg.ValidateResolution {
		validator = arbitrage.NewResolutionValidator()
	}

	return scanner.New(&scanner.Config{
		Sources: sources,
		Internal: arbitrage.NewInternalDetector(arbitrage.InternalConfig{
			MinProfit: cfg.MinInternalProfit,
			Logger:    logger,
		}),
		CrossPlatform: arbitrage.NewCrossPlatformDetector(arbitrage.CrossPlatformConfig{
			MinProfit: cfg.MinCrossPlatformProfit,
			Matcher:   matcher,
			Validator: validator,
			Logger:    logger,
		}),
		Hedging:      hedging,
		Notifier:     dispatcher,
		MarketLimit:  cfg.MarketLimit,
		MaxAlerts:    cfg.MaxAlertsPerBatch,
		ErrorBackoff: cfg.ScanErrorBackoff,
		OnCycle:      healthChecker.RecordScan,
		Logger:       logger,
	})
}
