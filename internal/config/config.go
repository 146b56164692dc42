// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/refill-spot/enrich-cli/internal/dedupe"
	"github.com/refill-spot/enrich-cli/internal/enhance"
	"github.com/refill-spot/enrich-cli/internal/geo"
	"github.com/refill-spot/enrich-cli/internal/geocode"
	"github.com/refill-spot/enrich-cli/internal/price"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig    `yaml:"store" mapstructure:"store"`
	Kakao   KakaoConfig    `yaml:"kakao" mapstructure:"kakao"`
	Geo     geo.Config     `yaml:"geo" mapstructure:"geo"`
	Geocode geocode.Config `yaml:"geocode" mapstructure:"geocode"`
	Price   price.Config   `yaml:"price" mapstructure:"price"`
	Dedupe  dedupe.Config  `yaml:"dedupe" mapstructure:"dedupe"`
	Enhance enhance.Config `yaml:"enhance" mapstructure:"enhance"`
	Server  ServerConfig   `yaml:"server" mapstructure:"server"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// KakaoConfig holds geocoding API credentials and limits.
type KakaoConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	DailyLimit  int     `yaml:"daily_limit" mapstructure:"daily_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("kakao.base_url", "https://dapi.kakao.com/v2/local/search/address.json")
	v.SetDefault("kakao.rate_limit", 10)
	v.SetDefault("kakao.daily_limit", 300000)
	v.SetDefault("kakao.timeout_secs", 5)
	v.SetDefault("geo.max_city_center_km", 50)
	v.SetDefault("geocode.estimate_confidence", 0.6)
	v.SetDefault("price.min_price_token", 1000)
	v.SetDefault("price.max_menu_items", 3)
	v.SetDefault("dedupe.name_similarity_high", 0.9)
	v.SetDefault("dedupe.distance_high_meters", 50)
	v.SetDefault("dedupe.name_similarity_mid", 0.85)
	v.SetDefault("dedupe.distance_mid_meters", 200)
	v.SetDefault("dedupe.min_phone_digits", 8)
	v.SetDefault("enhance.max_siblings", 10)
	v.SetDefault("enhance.min_shared_tokens", 2)
	v.SetDefault("enhance.concurrency", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks configuration invariants for the given run mode and
// returns all violations joined into one error.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			problems = append(problems, name+" must be between 0 and 1")
		}
	}
	unit("dedupe.name_similarity_high", c.Dedupe.NameSimilarityHigh)
	unit("dedupe.name_similarity_mid", c.Dedupe.NameSimilarityMid)
	unit("geocode.estimate_confidence", c.Geocode.EstimateConfidence)

	if c.Dedupe.DistanceHighMeters > c.Dedupe.DistanceMidMeters {
		problems = append(problems, "dedupe.distance_high_meters must not exceed dedupe.distance_mid_meters")
	}
	if c.Enhance.Concurrency < 1 || c.Enhance.Concurrency > 64 {
		problems = append(problems, "enhance.concurrency must be between 1 and 64")
	}

	switch mode {
	case "enhance":
		// Persistence and API key are optional here; a missing Kakao key
		// just disables API geocoding.
	case "migrate":
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		problems = append(problems, "unknown mode: "+mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
