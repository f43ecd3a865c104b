package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/visitrelay/internal/config"
	"github.com/MrSnakeDoc/visitrelay/internal/geo"
	"github.com/MrSnakeDoc/visitrelay/internal/httpserver"
	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/logger"
	"github.com/MrSnakeDoc/visitrelay/internal/notify"
	"github.com/MrSnakeDoc/visitrelay/internal/redis"
	"github.com/MrSnakeDoc/visitrelay/internal/relay"
	redisstore "github.com/MrSnakeDoc/visitrelay/internal/store/redis"
	"github.com/MrSnakeDoc/visitrelay/internal/utils"
	"github.com/MrSnakeDoc/visitrelay/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	queue       *notify.Queue
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional: without it every visit queries the geo service.
	var (
		redisClient *goredis.Client
		geoCache    *redisstore.Store
	)
	if cfg.RedisAddr != "" {
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient.Named("redis"))
		if err != nil {
			loggerClient.Warn("geo cache disabled, continuing without redis", logger.Error(err))
		} else {
			redisClient = client
			geoCache = redisstore.NewStore(client)
		}
	} else {
		loggerClient.Info("redis not configured, geo cache disabled")
	}

	geoOpts := geo.Options{
		BaseURL:  cfg.GeoBaseURL,
		Lang:     cfg.GeoLang,
		Fallback: cfg.GeoFallback,
		Timeout:  cfg.GeoTimeout,
		CacheTTL: cfg.GeoCacheTTL,
	}
	if geoCache != nil {
		geoOpts.Cache = geoCache
	}
	enricher := geo.New(geoOpts, loggerClient.Named("geo"))

	telegram, err := notify.NewTelegram(notify.TelegramConfig{
		Token:     cfg.BotToken,
		ChatID:    cfg.ChatID,
		APIURL:    cfg.TelegramAPIURL,
		ParseMode: cfg.ParseMode,
		Timeout:   cfg.SendTimeout,
	})
	if err != nil {
		loggerClient.Error("failed to initialize telegram dispatcher", logger.Error(err))
		os.Exit(1)
	}

	var (
		dispatcher relay.Dispatcher = telegram
		queue      *notify.Queue
	)
	if cfg.AsyncDispatch {
		queue = notify.NewQueue(telegram, cfg.QueueSize, loggerClient.Named("dispatch"))
		dispatcher = queue
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		EntryPath:      cfg.EntryPath,
		Destination:    cfg.Destination,
		RedirectStatus: cfg.RedirectStatus,
		Relay:          relay.NewService(enricher, dispatcher, loggerClient.Named("relay")),
		GeoCache:       geoCache,
		Queue:          queue,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		queue:       queue,
	}
}

func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting visitrelay v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("visitrelay %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)
	a.logger.Info("visit relay configured",
		logger.String("entry_path", a.cfg.EntryPath),
		logger.String("destination", a.cfg.Destination),
		logger.Bool("async_dispatch", a.cfg.AsyncDispatch),
		logger.Bool("geo_cache", a.redisClient != nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The queue outlives the signal context so pending notifications are
	// flushed during shutdown rather than dropped.
	if a.queue != nil {
		a.queue.Start(context.Background())
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.logger.Warn("notification queue not fully flushed", logger.Error(err))
		}
		stats := a.queue.Stats()
		a.logger.Info("notification queue stopped",
			logger.Int("sent", int(stats.Sent)),
			logger.Int("failed", int(stats.Failed)),
			logger.Int("dropped", int(stats.Dropped)))
	}

	if a.redisClient != nil {
		utils.LogClose(a.redisClient, a.logger, "redis")
		a.logger.Info("✅ Redis closed")
	}

	a.logger.Info("✅ visitrelay stopped cleanly")
	return nil
}
