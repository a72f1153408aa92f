package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	AdminKey          string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	ScanBatchSize     int           `mapstructure:"SCAN_BATCH_SIZE"`
	ScanMaxBatches    int           `mapstructure:"SCAN_MAX_BATCHES"`
	LedgerMaxBatches  int           `mapstructure:"LEDGER_MAX_BATCHES"`
	MetricsCacheTTL   time.Duration `mapstructure:"METRICS_CACHE_TTL"`
	RecentCacheTTL    time.Duration `mapstructure:"RECENT_CACHE_TTL"`
	TotalActivePolicy string        `mapstructure:"TOTAL_ACTIVE_POLICY"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("SCAN_BATCH_SIZE", 500)
	v.SetDefault("SCAN_MAX_BATCHES", 20)
	v.SetDefault("LEDGER_MAX_BATCHES", 10)
	v.SetDefault("METRICS_CACHE_TTL", "60s")
	v.SetDefault("RECENT_CACHE_TTL", "5s")
	v.SetDefault("TOTAL_ACTIVE_POLICY", "ready_plus_risk")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
