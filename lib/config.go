package lib

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration represents the entire YAML configuration
type Configuration struct {
	Settings Setting `mapstructure:"settings"`
}

// Setting can include various configurations like database, redis and the
// global ingress rate limit
type Setting struct {
	Network   Network         `mapstructure:"network"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimiting    `mapstructure:"rate_limiting"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Env       string          `mapstructure:"environment"`
	UsageLog  UsageLogSetting `mapstructure:"usage_logging"`
}

// RateLimiting is the global per-IP limit applied at the ingress edge,
// upstream of any tenant lookup.
type RateLimiting struct {
	Enabled bool `mapstructure:"enabled"`
	Max     int  `mapstructure:"max"`
	Window  int  `mapstructure:"window"`
}

// RedisConfig holds configuration for the shared rate-limit/cache store
type RedisConfig struct {
	URI string `mapstructure:"uri"`
	SSL bool   `mapstructure:"ssl"`
}

// Network holds configuration for network settings
type Network struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig holds configuration for the database
type DatabaseConfig struct {
	URI           string `mapstructure:"uri"`
	AutoMigration bool   `mapstructure:"auto_migration,omitempty"`
}

// CacheConfig holds configuration for the resolver cache. TTL is the bounded
// staleness window: a deactivated Api may keep resolving for up to TTL seconds.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTL     int  `mapstructure:"ttl"`
}

// ProxyConfig bounds the outbound call to the tenant upstream
type ProxyConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type UsageLogSetting struct {
	Enabled bool `mapstructure:"enabled"`
}

var AppConfig Configuration

func init() {
	if os.Getenv("ENV") == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Error loading .env file")
		}
	}

	viperCfg := viper.New()

	viperCfg.SetConfigName("config")
	viperCfg.SetConfigType("yaml")
	viperCfg.AddConfigPath(".")
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	viperCfg.SetDefault("settings.network.port", 3005)
	viperCfg.SetDefault("settings.environment", "production")
	viperCfg.SetDefault("settings.redis.uri", "redis://localhost:6379")
	viperCfg.SetDefault("settings.cache.enabled", false)
	viperCfg.SetDefault("settings.cache.ttl", 30)
	viperCfg.SetDefault("settings.rate_limiting.enabled", true)
	viperCfg.SetDefault("settings.rate_limiting.max", 100)
	viperCfg.SetDefault("settings.rate_limiting.window", 900)
	viperCfg.SetDefault("settings.proxy.timeout_seconds", 8)
	viperCfg.SetDefault("settings.usage_logging.enabled", true)

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(err)
		}
	}

	if uri := os.Getenv("DATABASE_URI"); uri != "" {
		viperCfg.Set("settings.database.uri", uri)
	}
	if uri := os.Getenv("REDIS_URI"); uri != "" {
		viperCfg.Set("settings.redis.uri", uri)
	}

	if err := viperCfg.Unmarshal(&AppConfig); err != nil {
		panic(err)
	}

	viperCfg.WatchConfig()
	viperCfg.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		if err := viperCfg.Unmarshal(&AppConfig); err != nil {
			fmt.Println(err)
		}
	})
}

func GetConfig() Configuration {
	return AppConfig
}
