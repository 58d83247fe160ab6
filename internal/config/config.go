package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	GracePeriod        time.Duration `mapstructure:"grace_period"`
	RoomCodeLength     int           `mapstructure:"room_code_length"`
	RequireMediaMeta   bool          `mapstructure:"require_media_meta"`
	BackpressurePolicy string        `mapstructure:"backpressure_policy"`

	// RateLimit is inbound frames per second per connection.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// DefaultReadLimit fits a 50 MiB media frame plus envelope slack.
const DefaultReadLimit = 50<<20 + 64<<10

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", DefaultReadLimit)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("grace_period", "10s")
	v.SetDefault("room_code_length", 6)
	v.SetDefault("require_media_meta", true)
	v.SetDefault("backpressure_policy", "kick")
	v.SetDefault("rate_limit", 20)
	v.SetDefault("rate_burst", 40)
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	fs.String("mode", "release", "gin mode: debug or release")
	fs.Int("port", 8080, "listen port")
	fs.String("static_path", "./web", "directory with the web client")
	fs.String("log_level", "info", "zerolog level")
	fs.Duration("grace_period", 10*time.Second, "how long an empty room survives")
	fs.Bool("require_media_meta", true, "reject binary frames without MEDIA_META")
	fs.String("backpressure_policy", "kick", "kick or tolerate slow peers")
	return fs
}

// Load reads config/config.<CONFIG_ENV>.yaml, then RELAY_* environment
// variables (a .env file is loaded first when present), then flags from args.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg("failed to read .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	setDefaults(v)
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	// Only flags given explicitly override file and env.
	fs.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			log.Warn().Err(err).Str("module", "config").Str("flag", f.Name).Msg("bind flag")
		}
	})

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Dur("grace", cfg.GracePeriod).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.ReadLimit <= 0:
		return errors.New("read_limit must be positive")
	case c.PingPeriod <= 0 || c.PongWait <= 0 || c.WriteWait <= 0:
		return errors.New("ping_period, pong_wait and write_wait must be positive")
	case c.PingPeriod >= c.PongWait:
		return errors.New("ping_period must be shorter than pong_wait")
	case c.SendBuffer <= 0:
		return errors.New("send_buffer must be positive")
	case c.GracePeriod <= 0:
		return errors.New("grace_period must be positive")
	case c.RoomCodeLength < 4:
		return errors.New("room_code_length must be at least 4")
	case c.RateLimit <= 0 || c.RateBurst <= 0:
		return errors.New("rate_limit and rate_burst must be positive")
	}
	switch c.BackpressurePolicy {
	case "kick", "tolerate":
	default:
		return fmt.Errorf("unknown backpressure_policy %q", c.BackpressurePolicy)
	}
	return nil
}
