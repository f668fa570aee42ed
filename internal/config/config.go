package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Costing policies accepted by accounting.costing_policy.
const (
	CostingWeightedAverage = "weighted_average"
	CostingLastCost        = "last_cost"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Auth       AuthConfig
	Accounting AccountingConfig
	Storefront StorefrontConfig
	AI         AIConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds Postgres settings. URL wins over the discrete fields.
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodySize    int64
	AllowedOrigins []string
}

// AuthConfig configures verification of Supabase-issued access tokens.
type AuthConfig struct {
	JWTSecret string
	Audience  string
}

// AccountingConfig holds the bookkeeping policies.
type AccountingConfig struct {
	CostingPolicy                 string
	IncludeConsumptionInBatchCost bool
}

type StorefrontConfig struct {
	StaticDir       string
	SubscribersFile string
}

type AIConfig struct {
	OpenAIAPIKey string
	Model        string
}

// Load reads configuration. Priority, highest first:
//  1. HF_-prefixed environment variables (HF_DATABASE_URL, HF_LOG_LEVEL, ...)
//  2. DATABASE_URL / OPENAI_API_KEY / SUPABASE_JWT_SECRET, also read from .env
//  3. config.toml in ., ./config or /app
//  4. built-in defaults
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxConns:        v.GetInt32("database.max_conns"),
			MinConns:        v.GetInt32("database.min_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			AllowedOrigins: v.GetStringSlice("http.allowed_origins"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Audience:  v.GetString("auth.audience"),
		},
		Accounting: AccountingConfig{
			CostingPolicy:                 strings.ToLower(v.GetString("accounting.costing_policy")),
			IncludeConsumptionInBatchCost: v.GetBool("accounting.include_consumption_in_batch_cost"),
		},
		Storefront: StorefrontConfig{
			StaticDir:       v.GetString("storefront.static_dir"),
			SubscribersFile: v.GetString("storefront.subscribers_file"),
		},
		AI: AIConfig{
			OpenAIAPIKey: v.GetString("ai.openai_api_key"),
			Model:        v.GetString("ai.model"),
		},
	}

	applyLegacyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "himalayan-flavours")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "himalayan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_body_size", int64(1<<20))

	v.SetDefault("auth.audience", "authenticated")

	v.SetDefault("accounting.costing_policy", CostingWeightedAverage)
	v.SetDefault("accounting.include_consumption_in_batch_cost", true)

	v.SetDefault("storefront.static_dir", "build")
	v.SetDefault("storefront.subscribers_file", "data/emails.json")

	v.SetDefault("ai.model", "gpt-4o")
}

// applyLegacyEnv honours the unprefixed variables the deployment scripts already export.
func applyLegacyEnv(cfg *Config) {
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.AI.OpenAIAPIKey == "" {
		cfg.AI.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			for _, o := range strings.Split(origins, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.HTTP.AllowedOrigins = append(cfg.HTTP.AllowedOrigins, o)
				}
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Accounting.CostingPolicy {
	case CostingWeightedAverage, CostingLastCost:
	default:
		return fmt.Errorf("invalid accounting.costing_policy %q: must be %s or %s",
			c.Accounting.CostingPolicy, CostingWeightedAverage, CostingLastCost)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be at least 1")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds database.max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	return nil
}

// IsProduction reports whether the app runs with app.env=production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the Postgres connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}
