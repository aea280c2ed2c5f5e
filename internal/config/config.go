package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

const (
	envPrefix         = "TMS"
	defaultConfigFile = "config.toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Logger   LoggerConfig   `toml:"logger"`
	Security SecurityConfig `toml:"security"`
	Tracing  TracingConfig  `toml:"tracing"`
}

type ServerConfig struct {
	Host            string   `toml:"host" split_words:"true" validate:"required"`
	Port            int      `toml:"port" split_words:"true" validate:"min=1,max=65535"`
	ReadTimeout     Duration `toml:"read_timeout" split_words:"true"`
	WriteTimeout    Duration `toml:"write_timeout" split_words:"true"`
	IdleTimeout     Duration `toml:"idle_timeout" split_words:"true"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" split_words:"true"`
}

type DataConfig struct {
	// PreloadFile is ingested at startup when set.
	PreloadFile    string `toml:"preload_file" split_words:"true"`
	MaxUploadBytes int64  `toml:"max_upload_bytes" split_words:"true" validate:"min=1024"`
	MaxLegacyRows  int    `toml:"max_legacy_rows" split_words:"true" validate:"min=1,max=65536"`
	TopLanes       int    `toml:"top_lanes" split_words:"true" validate:"min=1,max=100"`
	// LiteralBilled counts negated statuses such as "Unbilled" as billed.
	LiteralBilled  bool   `toml:"literal_billed" split_words:"true"`
}

type LoggerConfig struct {
	Level  string `toml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `toml:"format" split_words:"true" validate:"oneof=json text"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `toml:"enable_rate_limit" split_words:"true"`
	RateLimitRPS    int      `toml:"rate_limit_rps" split_words:"true" validate:"min=1"`
	RateLimitBurst  int      `toml:"rate_limit_burst" split_words:"true" validate:"min=1"`
	AllowedOrigins  []string `toml:"allowed_origins" split_words:"true" validate:"dive,required"`
	TrustedProxies  []string `toml:"trusted_proxies" split_words:"true" validate:"dive,ip"`
}

type TracingConfig struct {
	Enabled     bool    `toml:"enabled" split_words:"true"`
	ServiceName string  `toml:"service_name" split_words:"true" validate:"required"`
	Exporter    string  `toml:"exporter" split_words:"true" validate:"oneof=stdout none"`
	SampleRatio float64 `toml:"sample_ratio" split_words:"true" validate:"min=0,max=1"`
}

// Duration reads Go duration strings such as "15s" from TOML and env.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{60 * time.Second},
			IdleTimeout:     Duration{60 * time.Second},
			ShutdownTimeout: Duration{30 * time.Second},
		},
		Data: DataConfig{
			MaxUploadBytes: 32 << 20,
			MaxLegacyRows:  65536,
			TopLanes:       10,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Tracing: TracingConfig{
			ServiceName: "tms-dashboard",
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// Load reads the file named by TMS_CONFIG_FILE, or config.toml when present,
// then applies TMS_* environment overrides.
func Load() (*Config, error) {
	path := os.Getenv(envPrefix + "_CONFIG_FILE")
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	return LoadFrom(path)
}

// LoadFrom layers defaults, the TOML file at path (skipped when empty) and
// the environment, in that order.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Fields carry no default tags, so unset variables keep file values.
	// Keys are TMS_<SECTION>_<FIELD>, e.g. TMS_SERVER_PORT.
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Server.ReadTimeout.Duration <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout.Duration <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.ShutdownTimeout.Duration <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}

	if c.Data.PreloadFile != "" {
		if _, err := os.Stat(c.Data.PreloadFile); err != nil {
			return fmt.Errorf("preload file: %w", err)
		}
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
