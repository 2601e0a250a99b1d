package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds process configuration. Values come from the environment,
// optionally seeded from a .env file in the working directory.
type Config struct {
	DatabaseURL       string `mapstructure:"database_url"`
	DBMaxConns        int32  `mapstructure:"db_max_conns"`
	ServerPort        string `mapstructure:"server_port"`
	AllowedOrigins    string `mapstructure:"allowed_origins"`
	JWTSecret         string `mapstructure:"jwt_secret"`
	LogLevel          string `mapstructure:"log_level"`
	LogFormat         string `mapstructure:"log_format"`
	DashboardMaxLimit int    `mapstructure:"dashboard_max_limit"`
}

var keys = []string{
	"database_url",
	"db_max_conns",
	"server_port",
	"allowed_origins",
	"jwt_secret",
	"log_level",
	"log_format",
	"dashboard_max_limit",
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("dashboard_max_limit", 500)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about; bind the rest
	// so Unmarshal sees them.
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// RequireDatabase returns an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return nil
}

// RequireServer validates the settings the HTTP server cannot start without.
func (c *Config) RequireServer() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}
