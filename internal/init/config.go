package config

import (
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// Server
	ServerAddr  string
	MetricsAddr string

	// Storage
	DBPath string

	// Auth
	SessionTTL time.Duration
	BcryptCost int

	// Feed
	FeedPageSize int
}

var cfg *Config

// Init loads the config using Viper and returns it
func Init() *Config {
	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("METRICS_ADDR", ":9090")

	viper.SetDefault("DB_PATH", "naborly.db")

	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)

	viper.SetDefault("FEED_PAGE_SIZE", 10)

	// Load env variables
	viper.AutomaticEnv()

	// Optional config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	_ = viper.ReadInConfig() // ignore error if no file

	cfg = &Config{
		ServerAddr:   viper.GetString("SERVER_ADDR"),
		MetricsAddr:  viper.GetString("METRICS_ADDR"),
		DBPath:       viper.GetString("DB_PATH"),
		SessionTTL:   parseDuration(viper.GetString("SESSION_TTL"), 24*time.Hour),
		BcryptCost:   viper.GetInt("BCRYPT_COST"),
		FeedPageSize: viper.GetInt("FEED_PAGE_SIZE"),
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.FeedPageSize <= 0 {
		cfg.FeedPageSize = 10
	}

	return cfg
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// Get returns the loaded config instance
func Get() *Config {
	return cfg
}
