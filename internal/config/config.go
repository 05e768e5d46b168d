// Package config carrega a configuração do mock em camadas: padrões, arquivo
// YAML opcional, variáveis MEGASHIPPING_* e a variável PORT herdada do mock
// original.
package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"megashipping-mock/internal/observability"
	"megashipping-mock/middleware/ratelimit/domain"
)

// Chave de teste publicada na documentação da MegaShipping.
const DefaultAPIKey = "MS-A12B34C56D78E90F"

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Limits      LimitsConfig      `mapstructure:"limits" yaml:"limits"`
	Delay       DelayConfig       `mapstructure:"delay" yaml:"delay"`
	Flood       FloodConfig       `mapstructure:"flood" yaml:"flood"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Stats       StatsConfig       `mapstructure:"stats" yaml:"stats"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Host             string        `mapstructure:"host" yaml:"host"`
	Port             int           `mapstructure:"port" yaml:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimitHeaders bool          `mapstructure:"rate_limit_headers" yaml:"rate_limit_headers"`
	CORSOrigins      []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys" yaml:"api_keys"`
}

type LimitsConfig struct {
	PerMinute   int           `mapstructure:"per_minute" yaml:"per_minute"`
	Daily       int           `mapstructure:"daily" yaml:"daily"`
	Window      time.Duration `mapstructure:"window" yaml:"window"`
	DailyWindow time.Duration `mapstructure:"daily_window" yaml:"daily_window"`
}

type DelayConfig struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

type FloodConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	RPS          float64       `mapstructure:"rps" yaml:"rps"`
	Burst        int           `mapstructure:"burst" yaml:"burst"`
	TrustXFF     bool          `mapstructure:"trust_xff" yaml:"trust_xff"`
	IdleTTL      time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
	CleanupEvery time.Duration `mapstructure:"cleanup_every" yaml:"cleanup_every"`
}

type ConcurrencyConfig struct {
	Max            int           `mapstructure:"max" yaml:"max"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout"`
}

type StatsConfig struct {
	TrackKeys bool        `mapstructure:"track_keys" yaml:"track_keys"`
	Redis     RedisConfig `mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Addr devolve host:port para o http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c LimitsConfig) Domain() domain.Limits {
	return domain.Limits{
		PerMinute:   c.PerMinute,
		Daily:       c.Daily,
		Window:      c.Window,
		DailyWindow: c.DailyWindow,
	}
}

// Validate junta todos os problemas encontrados num único erro.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if err := c.Limits.Domain().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("limits: %w", err))
	}
	if len(nonEmpty(c.Auth.APIKeys)) == 0 {
		errs = append(errs, errors.New("auth.api_keys must contain at least one key"))
	}
	if c.Delay.Min < 0 || c.Delay.Max < 0 {
		errs = append(errs, errors.New("delay.min and delay.max must not be negative"))
	}
	if c.Delay.Min > c.Delay.Max {
		errs = append(errs, fmt.Errorf("delay.min (%s) greater than delay.max (%s)", c.Delay.Min, c.Delay.Max))
	}
	if c.Flood.Enabled && (c.Flood.RPS <= 0 || c.Flood.Burst <= 0) {
		errs = append(errs, errors.New("flood.rps and flood.burst must be positive when flood is enabled"))
	}
	if c.Concurrency.Max < 0 {
		errs = append(errs, errors.New("concurrency.max must not be negative"))
	}
	if c.Stats.Redis.Enabled && c.Stats.Redis.Addr == "" {
		errs = append(errs, errors.New("stats.redis.addr is required when stats.redis.enabled"))
	}
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

// Redacted devolve uma cópia segura para exibir: chaves e senha mascaradas.
func (c Config) Redacted() Config {
	out := c
	out.Auth.APIKeys = make([]string, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		out.Auth.APIKeys[i] = domain.Key(k).Masked()
	}
	if out.Stats.Redis.Password != "" {
		out.Stats.Redis.Password = "****"
	}
	return out
}

// YAML serializa a configuração já mascarada.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
