package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "PORTFOLIO"
	defaultHTTPAddress       = "0.0.0.0:8000"
	defaultDatabaseDriver    = "sqlite"
	defaultDatabaseDSN       = "portfolio.db"
	defaultLogLevel          = "info"
	defaultTokenTTLMinutes   = 60
	defaultAdminUsername     = "admin"
	defaultMediaRoot         = "media"
	defaultMediaURLPrefix    = "/media/"
	defaultHomeCacheSeconds  = 60
	defaultAMQPQueue         = "portfolio.reactions"
	defaultTrustForwardedFor = true
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress       string
	DatabaseDriver    string
	DatabaseDSN       string
	LogLevel          string
	SigningSecret     string
	TokenTTL          time.Duration
	AdminUsername     string
	AdminPassword     string
	AllowedOrigins    []string
	MediaRoot         string
	MediaURLPrefix    string
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	HomeCacheTTL      time.Duration
	AMQPURL           string
	AMQPQueue         string
	TrustForwardedFor bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.dsn", defaultDatabaseDSN)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("admin.username", defaultAdminUsername)
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("media.root", defaultMediaRoot)
	configViper.SetDefault("media.url_prefix", defaultMediaURLPrefix)
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("home.cache_ttl_seconds", defaultHomeCacheSeconds)
	configViper.SetDefault("amqp.queue", defaultAMQPQueue)
	configViper.SetDefault("reactions.trust_forwarded_for", defaultTrustForwardedFor)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabaseDriver:    strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabaseDSN:       configViper.GetString("database.dsn"),
		LogLevel:          configViper.GetString("log.level"),
		SigningSecret:     configViper.GetString("auth.signing_secret"),
		TokenTTL:          time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		AdminUsername:     configViper.GetString("admin.username"),
		AdminPassword:     configViper.GetString("admin.password"),
		AllowedOrigins:    splitOrigins(configViper.GetStringSlice("cors.allowed_origins")),
		MediaRoot:         configViper.GetString("media.root"),
		MediaURLPrefix:    configViper.GetString("media.url_prefix"),
		RedisAddress:      configViper.GetString("redis.address"),
		RedisPassword:     configViper.GetString("redis.password"),
		RedisDB:           configViper.GetInt("redis.db"),
		HomeCacheTTL:      time.Duration(configViper.GetInt("home.cache_ttl_seconds")) * time.Second,
		AMQPURL:           configViper.GetString("amqp.url"),
		AMQPQueue:         configViper.GetString("amqp.queue"),
		TrustForwardedFor: configViper.GetBool("reactions.trust_forwarded_for"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LoadDatabase parses only the keys needed to open the database.
func LoadDatabase(configViper *viper.Viper) (driver, dsn string, err error) {
	cfg := AppConfig{
		DatabaseDriver: strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabaseDSN:    configViper.GetString("database.dsn"),
	}
	if err := cfg.validateDatabase(); err != nil {
		return "", "", err
	}
	return cfg.DatabaseDriver, cfg.DatabaseDSN, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if strings.TrimSpace(c.AdminPassword) != "" && strings.TrimSpace(c.AdminUsername) == "" {
		return fmt.Errorf("admin.username is required when admin.password is set")
	}
	if !strings.HasPrefix(c.MediaURLPrefix, "/") || !strings.HasSuffix(c.MediaURLPrefix, "/") {
		return fmt.Errorf("media.url_prefix must start and end with /")
	}
	if c.HomeCacheTTL < 0 {
		return fmt.Errorf("home.cache_ttl_seconds must not be negative")
	}
	return nil
}

func (c AppConfig) validateDatabase() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	return nil
}

// splitOrigins accepts both list values and a single comma separated env value.
func splitOrigins(raw []string) []string {
	origins := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, origin := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}
	return origins
}
