package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Config is the relay's runtime configuration. Values are layered:
// defaults, then the optional YAML file, then environment variables.
type Config struct {
	AppEnv          string        `yaml:"app_env" env:"APP_ENV" validate:"oneof=development production test"`
	ListenAddr      string        `yaml:"listen_addr" env:"LISTEN_ADDR" validate:"required"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=DEBUG INFO WARN ERROR"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	StaticDir       string        `yaml:"static_dir" env:"STATIC_DIR"`
	MaxConns        int           `yaml:"max_conns" env:"MAX_CONNS" validate:"gte=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" validate:"gte=0"`
	JoinTimeout     time.Duration `yaml:"join_timeout" env:"JOIN_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" validate:"gt=0"`
	SendBufferSize  int           `yaml:"send_buffer_size" env:"SEND_BUFFER_SIZE" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	ProfanityWords  []string      `yaml:"profanity_words"`

	// Origins is the raw comma separated ALLOWED_ORIGINS value.
	Origins string `yaml:"-" env:"ALLOWED_ORIGINS"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		AppEnv:          "development",
		ListenAddr:      ":8080",
		LogLevel:        "INFO",
		MaxConns:        1000,
		IdleTimeout:     5 * time.Minute,
		JoinTimeout:     10 * time.Second,
		WriteTimeout:    5 * time.Second,
		SendBufferSize:  16,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.Origins != "" {
		cfg.AllowedOrigins = SplitList(cfg.Origins)
	}
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return fe.Field() + " (" + fe.Tag() + ")"
			})
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	return lo.Compact(parts)
}
