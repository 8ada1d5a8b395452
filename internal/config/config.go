package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Store       StoreConfig       `mapstructure:"store"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Metadata    MetadataConfig    `mapstructure:"metadata"`
	Torrent     TorrentConfig     `mapstructure:"torrent"`
	Validator   ValidatorConfig   `mapstructure:"validator"`
	QBittorrent QBittorrentConfig `mapstructure:"qbittorrent"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig holds rotating-file logging configuration.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// StoreConfig selects the callback-token store backend.
type StoreConfig struct {
	Backend    string      `mapstructure:"backend"` // "memory" or "redis"
	TTLMinutes int         `mapstructure:"ttl_minutes"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelegramConfig holds the bot transport settings.
type TelegramConfig struct {
	Token        string  `mapstructure:"token"`
	PollTimeout  int     `mapstructure:"poll_timeout"`
	AllowedUsers []int64 `mapstructure:"allowed_users"`
}

// MetadataConfig selects and configures the metadata backend.
type MetadataConfig struct {
	Backend   string          `mapstructure:"backend"` // "kinopoisk" or "tmdb"
	Kinopoisk KinopoiskConfig `mapstructure:"kinopoisk"`
	TMDB      TMDBConfig      `mapstructure:"tmdb"`
}

// KinopoiskConfig holds Kinopoisk API settings.
type KinopoiskConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	SearchLimit int    `mapstructure:"search_limit"`
	Timeout     int    `mapstructure:"timeout"`
}

// TMDBConfig holds TMDB API settings.
type TMDBConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIToken     string `mapstructure:"api_token"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Timeout      int    `mapstructure:"timeout"`
}

// TorrentConfig holds the torrent provider settings.
type TorrentConfig struct {
	Default             string          `mapstructure:"default"`
	QueryTimeoutSeconds int             `mapstructure:"query_timeout_seconds"`
	DownloadDir         string          `mapstructure:"download_dir"`
	Kinozal             TrackerConfig   `mapstructure:"kinozal"`
	Rutracker           TrackerConfig   `mapstructure:"rutracker"`
}

// TrackerConfig holds credentials and endpoint for one tracker site.
type TrackerConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Timeout  int    `mapstructure:"timeout"`
}

// Enabled reports whether the tracker has credentials configured.
func (t *TrackerConfig) Enabled() bool {
	return t.Username != "" && t.Password != ""
}

// ValidatorConfig holds the LLM result-validation settings.
type ValidatorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"`
}

// QBittorrentConfig holds the download-client settings.
type QBittorrentConfig struct {
	Host     string `mapstructure:"host"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Category string `mapstructure:"category"`
	Timeout  int    `mapstructure:"timeout"`
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.seekarr")
	}

	v.SetEnvPrefix("SEEKARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEmbeddedKeys(cfg)

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "./data/logs/seekarr.log")
	v.SetDefault("logging.file.max_size_mb", 10)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age_days", 28)

	// Token store defaults
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.ttl_minutes", 60)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)

	// Telegram defaults
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 30)

	// Metadata defaults
	v.SetDefault("metadata.backend", "kinopoisk")
	v.SetDefault("metadata.kinopoisk.base_url", "https://api.kinopoisk.dev/v1.4")
	v.SetDefault("metadata.kinopoisk.api_key", "")
	v.SetDefault("metadata.kinopoisk.search_limit", 10)
	v.SetDefault("metadata.kinopoisk.timeout", 10)
	v.SetDefault("metadata.tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("metadata.tmdb.api_token", "")
	v.SetDefault("metadata.tmdb.image_base_url", "https://image.tmdb.org/t/p/w500")
	v.SetDefault("metadata.tmdb.timeout", 10)

	// Torrent provider defaults
	v.SetDefault("torrent.default", "kinozal")
	v.SetDefault("torrent.query_timeout_seconds", 20)
	v.SetDefault("torrent.download_dir", "./data/torrents")
	v.SetDefault("torrent.kinozal.base_url", "https://kinozal.tv")
	v.SetDefault("torrent.kinozal.timeout", 15)
	v.SetDefault("torrent.rutracker.base_url", "https://rutracker.org/forum")
	v.SetDefault("torrent.rutracker.timeout", 15)

	// Validator defaults
	v.SetDefault("validator.enabled", false)
	v.SetDefault("validator.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("validator.api_key", "")
	v.SetDefault("validator.model", "openai/gpt-oss-120b")
	v.SetDefault("validator.timeout", 30)

	// qBittorrent defaults
	v.SetDefault("qbittorrent.host", "http://localhost:8080")
	v.SetDefault("qbittorrent.category", "")
	v.SetDefault("qbittorrent.timeout", 30)
}
