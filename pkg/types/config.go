// Package types provides configuration types for the forecast backend.
package types

import (
	"time"

	"github.com/spf13/viper"
)

// ServerConfig represents server configuration
type ServerConfig struct {
	Host           string        `json:"host" mapstructure:"host"`
	Port           int           `json:"port" mapstructure:"port"`
	WebSocketPath  string        `json:"websocketPath" mapstructure:"websocket_path"`
	ReadTimeout    time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	MaxConnections int           `json:"maxConnections" mapstructure:"max_connections"`
	EnableMetrics  bool          `json:"enableMetrics" mapstructure:"enable_metrics"`

	// MaxConcurrentSims caps CPU-bound simulation jobs running at once;
	// zero means one per CPU.
	MaxConcurrentSims int `json:"maxConcurrentSims" mapstructure:"max_concurrent_sims"`
}

// DefaultServerConfig returns the built-in defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:           "localhost",
		Port:           8080,
		WebSocketPath:  "/ws",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   120 * time.Second, // large simulations take a while
		MaxConnections: 100,
		EnableMetrics:  true,
	}
}

// LoadServerConfig reads configuration from an optional YAML file and
// FORECAST_* environment variables layered over the defaults. An empty
// path skips the file and uses defaults plus environment.
func LoadServerConfig(path string) (*ServerConfig, error) {
	v := viper.New()

	defaults := DefaultServerConfig()
	v.SetDefault("host", defaults.Host)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("websocket_path", defaults.WebSocketPath)
	v.SetDefault("read_timeout", defaults.ReadTimeout)
	v.SetDefault("write_timeout", defaults.WriteTimeout)
	v.SetDefault("max_connections", defaults.MaxConnections)
	v.SetDefault("enable_metrics", defaults.EnableMetrics)
	v.SetDefault("max_concurrent_sims", defaults.MaxConcurrentSims)

	v.SetEnvPrefix("FORECAST")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
