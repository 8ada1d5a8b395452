package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seekarr/seekarr/internal/chat"
	"github.com/seekarr/seekarr/internal/chat/telegram"
	"github.com/seekarr/seekarr/internal/config"
	"github.com/seekarr/seekarr/internal/downloader/qbittorrent"
	"github.com/seekarr/seekarr/internal/logger"
	"github.com/seekarr/seekarr/internal/metadata"
	"github.com/seekarr/seekarr/internal/metadata/kinopoisk"
	"github.com/seekarr/seekarr/internal/metadata/tmdb"
	"github.com/seekarr/seekarr/internal/search"
	"github.com/seekarr/seekarr/internal/startup"
	"github.com/seekarr/seekarr/internal/tokenstore"
	"github.com/seekarr/seekarr/internal/torrent"
	"github.com/seekarr/seekarr/internal/torrent/kinozal"
	"github.com/seekarr/seekarr/internal/torrent/rutracker"
	"github.com/seekarr/seekarr/internal/validator"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		FilePath:   logFilePath(cfg.Logging.File),
		MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
		MaxBackups: cfg.Logging.File.MaxBackups,
		MaxAgeDays: cfg.Logging.File.MaxAgeDays,
	})
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Fatal error")
	}
	log.Info().Msg("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is not configured")
	}

	tokens, closeTokens, err := buildTokenStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeTokens()

	metaRegistry := metadata.NewRegistry()
	metaRegistry.Register(kinopoisk.NewClient(cfg.Metadata.Kinopoisk, log.Logger), cfg.Metadata.Backend == "kinopoisk")
	metaRegistry.Register(tmdb.NewClient(cfg.Metadata.TMDB, log.Logger), cfg.Metadata.Backend == "tmdb")

	torRegistry := torrent.NewRegistry()
	torRegistry.Register(kinozal.New(cfg.Torrent.Kinozal, cfg.Torrent.DownloadDir, log.Logger), cfg.Torrent.Default == "kinozal")
	torRegistry.Register(rutracker.New(cfg.Torrent.Rutracker, cfg.Torrent.DownloadDir, log.Logger), cfg.Torrent.Default == "rutracker")

	searchSvc := search.NewService(torRegistry, tokens, log.Logger)
	if cfg.Torrent.QueryTimeoutSeconds > 0 {
		searchSvc.SetQueryTimeout(time.Duration(cfg.Torrent.QueryTimeoutSeconds) * time.Second)
	}
	if cfg.Validator.Enabled {
		searchSvc.SetValidator(validator.New(cfg.Validator, log.Logger))
		log.Info().Str("model", cfg.Validator.Model).Msg("Result validation enabled")
	}

	var downloads chat.Downloader
	if cfg.QBittorrent.Host != "" {
		qbt := qbittorrent.New(cfg.QBittorrent, log.Logger)
		err := startup.WithRetry(ctx, log.Logger, "qbittorrent", startup.DefaultRetryConfig(), func(ctx context.Context) error {
			_, err := qbt.List(ctx)
			return err
		})
		if err != nil {
			log.Warn().Err(err).Msg("qBittorrent is unreachable, downloads stay available via retry")
		}
		downloads = qbt
	} else {
		log.Warn().Msg("No download client configured, downloads disabled")
	}

	bot := telegram.New(cfg.Telegram, log.Logger)
	flow := chat.NewFlow(chat.FlowConfig{
		Transport: bot,
		Metadata:  metaRegistry,
		Search:    searchSvc,
		Torrents:  torRegistry,
		Downloads: downloads,
		Tokens:    tokens,
	}, log.Logger)

	log.Info().
		Str("metadata", cfg.Metadata.Backend).
		Strs("trackers", torRegistry.Names()).
		Msg("Starting")

	return bot.Run(ctx, flow)
}

// buildTokenStore wires the configured callback-token backend. Redis
// outages at startup are retried; the in-memory store needs no warmup.
func buildTokenStore(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (tokenstore.Store, func(), error) {
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute

	if cfg.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		err := startup.WithRetry(ctx, log.Logger, "redis", startup.DefaultRetryConfig(), func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis is unreachable: %w", err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis token store")
		return tokenstore.NewRedis(client, ttl), func() { client.Close() }, nil
	}

	log.Info().Msg("Using in-memory token store")
	mem := tokenstore.NewMemory(ttl)
	return mem, mem.Close, nil
}

func logFilePath(cfg config.LogFileConfig) string {
	if !cfg.Enabled {
		return ""
	}
	return cfg.Path
}
