// Package config loads ownai client settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds client settings.
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	DemoMode  bool          `mapstructure:"demo_mode"`
	SessionDB string        `mapstructure:"session_db"`
	LogLevel  string        `mapstructure:"log_level"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DefaultBaseURL is the backend's development server address.
const DefaultBaseURL = "http://localhost:5000"

// Load reads the config. path may be empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("OWNAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// ENABLE_DEMO_MODE is what the backend deployment already sets.
	if err := v.BindEnv("demo_mode", "OWNAI_DEMO_MODE", "ENABLE_DEMO_MODE"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("demo_mode", false)
	v.SetDefault("session_db", defaultSessionDB())
	v.SetDefault("log_level", "warn")
	v.SetDefault("timeout", 30*time.Second)
}

func defaultSessionDB() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ownai", "sessions.db")
}
