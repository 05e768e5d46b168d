package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const EnvPrefix = "MEGASHIPPING"

// Loader encapsula uma instância própria do viper (nada de estado global),
// o que permite recarregar e testar isoladamente.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader usa path como arquivo de config; vazio procura
// ./config/megashipping.yaml e segue sem arquivo se não existir.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.SetConfigName("megashipping")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT é o que o mock original lia.
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")

	return &Loader{v: v, path: path}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit_headers", true)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("auth.api_keys", []string{DefaultAPIKey})

	v.SetDefault("limits.per_minute", 5)
	v.SetDefault("limits.daily", 100)
	v.SetDefault("limits.window", "60s")
	v.SetDefault("limits.daily_window", "24h")

	v.SetDefault("delay.min", "200ms")
	v.SetDefault("delay.max", "800ms")

	v.SetDefault("flood.enabled", false)
	v.SetDefault("flood.rps", 50.0)
	v.SetDefault("flood.burst", 100)
	v.SetDefault("flood.trust_xff", false)
	v.SetDefault("flood.idle_ttl", "15m")
	v.SetDefault("flood.cleanup_every", "2m")

	v.SetDefault("concurrency.max", 0)
	v.SetDefault("concurrency.acquire_timeout", "0s")

	v.SetDefault("stats.track_keys", true)
	v.SetDefault("stats.redis.enabled", false)
	v.SetDefault("stats.redis.addr", "")
	v.SetDefault("stats.redis.password", "")
	v.SetDefault("stats.redis.db", 0)
	v.SetDefault("stats.redis.prefix", "megashipping:stats")
	v.SetDefault("stats.redis.ttl", "24h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load lê todas as camadas, decodifica e valida.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

// ConfigFileUsed devolve o arquivo lido, ou "" quando só há padrões e env.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	err := l.v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		trimSliceHook(),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// trimSliceHook remove espaços de listas vindas de env ("a, b").
func trimSliceHook() mapstructure.DecodeHookFuncType {
	return func(_, _ reflect.Type, data any) (any, error) {
		items, ok := data.([]string)
		if !ok {
			return data, nil
		}
		out := make([]string, 0, len(items))
		for _, s := range items {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}
}

// Watch observa o arquivo de config e chama onChange com a configuração
// nova (ou o erro de leitura/validação). Sem arquivo, não faz nada.
func (l *Loader) Watch(onChange func(*Config, error)) bool {
	if l.v.ConfigFileUsed() == "" {
		return false
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(l.decode())
	})
	l.v.WatchConfig()
	return true
}
