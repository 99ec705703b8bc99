package shared

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnv names the variable holding an optional YAML config path.
const ConfigFileEnv = "REVIEW_LENS_CONFIG"

type Config struct {
	AppEnv      string `koanf:"app_env"`
	LogLevel    string `koanf:"log_level"`
	HTTPAddr    string `koanf:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	MySQLDSN    string `koanf:"mysql_dsn"`
	RedisAddr   string `koanf:"redis_addr"`
	RedisDB     int    `koanf:"redis_db"`
	RedisPass   string `koanf:"redis_password"`

	ITunesBase string `koanf:"itunes_base_url"`
	ITunesRPS  int    `koanf:"itunes_rps"`

	Workers           int `koanf:"workers"`
	TargetCount       int `koanf:"target_count"`
	RegionConcurrency int `koanf:"region_concurrency"`
	PageDelayMS       int `koanf:"page_delay_ms"`
	RegionDelayMS     int `koanf:"region_delay_ms"`

	CacheTTLSeconds       int `koanf:"cache_ttl_seconds"`
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`

	// cron spec for cmd/collector; empty runs once and exits
	CollectSchedule string   `koanf:"collect_schedule"`
	AppURLs         []string `koanf:"app_urls"`
}

func Defaults() Config {
	return Config{
		AppEnv:                "prod",
		LogLevel:              "info",
		HTTPAddr:              ":8080",
		MetricsAddr:           ":9100",
		MySQLDSN:              "root:root@tcp(localhost:3306)/review_lens?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		RedisAddr:             "localhost:6379",
		ITunesBase:            "https://itunes.apple.com",
		ITunesRPS:             5,
		Workers:               4,
		TargetCount:           500,
		RegionConcurrency:     1,
		PageDelayMS:           100,
		RegionDelayMS:         300,
		CacheTTLSeconds:       900,
		RequestTimeoutSeconds: 120,
	}
}

// Load layers defaults, the optional YAML file named by REVIEW_LENS_CONFIG and
// environment variables (APP_ENV, MYSQL_DSN, ...), lowest to highest.
func Load() (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// APP_URLS -> app_urls; the "." delimiter never occurs in our keys
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		key = strings.ToLower(key)
		if key == "app_urls" {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.AppURLs = cleanList(cfg.AppURLs)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.ITunesRPS <= 0 {
		errs = append(errs, errors.New("itunes_rps must be positive"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.TargetCount <= 0 {
		errs = append(errs, errors.New("target_count must be positive"))
	}
	if c.RegionConcurrency <= 0 {
		errs = append(errs, errors.New("region_concurrency must be positive"))
	}
	if c.PageDelayMS < 0 || c.RegionDelayMS < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSeconds) * time.Second }

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) PageDelay() time.Duration { return time.Duration(c.PageDelayMS) * time.Millisecond }

func (c Config) RegionDelay() time.Duration {
	return time.Duration(c.RegionDelayMS) * time.Millisecond
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
