// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Bot           BotConfig          `mapstructure:"bot"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Scheduling    SchedulingConfig   `mapstructure:"scheduling"`
	Channels      ChannelsConfig     `mapstructure:"channels"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// BotConfig holds conversation behaviour settings.
type BotConfig struct {
	CancelKeyword   string  `mapstructure:"cancel_keyword"`
	TimeZone        string  `mapstructure:"time_zone"`
	DateChoiceCount int     `mapstructure:"date_choice_count"`
	MessagesPath    string  `mapstructure:"messages_path"`
	RateLimit       float64 `mapstructure:"rate_limit"` // turns per second per conversation
	RateBurst       int     `mapstructure:"rate_burst"`
}

// StorageConfig selects where conversation and user state is persisted.
type StorageConfig struct {
	Driver    string `mapstructure:"driver"` // memory | redis | postgres
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // milliseconds, 0 keeps state forever
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	Table          string `mapstructure:"table"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchedulingConfig points at the Bookings REST API and its client credentials.
type SchedulingConfig struct {
	BaseURL      string   `mapstructure:"base_url"`
	TenantID     string   `mapstructure:"tenant_id"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url"`
	Scopes       []string `mapstructure:"scopes"`
	AuthDisabled bool     `mapstructure:"auth_disabled"`
	Timeout      int      `mapstructure:"timeout"` // milliseconds
}

// GetTokenURL returns the configured token endpoint or the tenant's v2 endpoint.
func (s SchedulingConfig) GetTokenURL() string {
	if s.TokenURL != "" {
		return s.TokenURL
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", s.TenantID)
}

type ChannelsConfig struct {
	Webhook struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"webhook"`
	Discord struct {
		Enabled   bool   `mapstructure:"enabled"`
		Token     string `mapstructure:"token"`
		ChannelID string `mapstructure:"channel_id"` // empty accepts every channel
	} `mapstructure:"discord"`
}

// NotificationConfig controls the confirmation email sent after a booking.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
