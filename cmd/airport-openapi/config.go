package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugr-lab/airport-openapi/auth"
	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/remote"
)

// Config is the whole CLI configuration. The remote and connector keys sit
// at the top level, e.g. base_url and max_split_count.
type Config struct {
	Remote    remote.Config    `mapstructure:",squash"`
	Connector connector.Config `mapstructure:",squash"`

	Server  ServerConfig  `mapstructure:"server"`
	Tracing TracingConfig `mapstructure:"tracing"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ServerConfig configures the Flight and metrics listeners.
type ServerConfig struct {
	Listen         string `mapstructure:"listen"`
	Address        string `mapstructure:"address"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	FlightToken    string `mapstructure:"flight_token"`
	MaxMessageSize int    `mapstructure:"max_message_size"`
}

// TracingConfig selects the OpenTelemetry exporter.
type TracingConfig struct {
	Exporter    string  `mapstructure:"exporter"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// setDefaults registers every key so env vars reach viper.Unmarshal.
func setDefaults() {
	viper.SetDefault("base_url", "")
	viper.SetDefault("auth.mode", "")
	viper.SetDefault("auth.bearer_token", "")
	viper.SetDefault("auth.username", "")
	viper.SetDefault("auth.password", "")
	viper.SetDefault("auth.api_key", "")
	viper.SetDefault("auth.api_key_header", auth.DefaultAPIKeyHeader)
	viper.SetDefault("connect_timeout", remote.DefaultTimeout)
	viper.SetDefault("read_timeout", remote.DefaultTimeout)
	viper.SetDefault("write_timeout", remote.DefaultTimeout)
	viper.SetDefault("requests_per_second", 0)

	viper.SetDefault("max_split_count", connector.DefaultMaxSplitCount)
	viper.SetDefault("metadata_refresh_threads", connector.DefaultMetadataRefreshThreads)
	viper.SetDefault("metadata_refresh_interval", connector.MinMetadataRefreshInterval)
	viper.SetDefault("metadata_expire_after_write", time.Duration(0))

	viper.SetDefault("server.listen", ":50051")
	viper.SetDefault("server.address", "")
	viper.SetDefault("server.metrics_addr", "")
	viper.SetDefault("server.flight_token", "")
	viper.SetDefault("server.max_message_size", 16<<20)

	viper.SetDefault("tracing.exporter", "none")
	viper.SetDefault("tracing.sample_ratio", 1.0)
}

// loadConfig unmarshals and validates the effective configuration.
func loadConfig() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Remote.WithDefaults().Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// masked returns a copy safe to print.
func (c Config) masked() Config {
	c.Remote.Auth = c.Remote.Auth.Masked()
	if c.Server.FlightToken != "" {
		c.Server.FlightToken = "****"
	}
	return c
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		cfg = cfg.masked()

		out := map[string]any{
			"base_url":                    cfg.Remote.BaseURL,
			"auth":                        cfg.Remote.Auth,
			"connect_timeout":             cfg.Remote.ConnectTimeout.String(),
			"read_timeout":                cfg.Remote.ReadTimeout.String(),
			"write_timeout":               cfg.Remote.WriteTimeout.String(),
			"requests_per_second":         cfg.Remote.RequestsPerSecond,
			"max_split_count":             cfg.Connector.MaxSplitCount,
			"metadata_refresh_threads":    cfg.Connector.MetadataRefreshThreads,
			"metadata_refresh_interval":   cfg.Connector.MetadataRefreshInterval.String(),
			"metadata_expire_after_write": cfg.Connector.MetadataExpireAfterWrite.String(),
			"server":                      cfg.Server,
			"tracing":                     cfg.Tracing,
			"log_level":                   cfg.LogLevel,
			"log_format":                  cfg.LogFormat,
		}
		if f := viper.ConfigFileUsed(); f != "" {
			out["config_file"] = f
		}
		return printJSON(out)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
