// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	bindEnv(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment file is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory to the first go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from well-known variables when the file left them blank.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.Scheduling.TenantID, "GRAPH_TENANT_ID"},
		{&cfg.Scheduling.ClientID, "GRAPH_CLIENT_ID"},
		{&cfg.Scheduling.ClientSecret, "GRAPH_CLIENT_SECRET"},
		{&cfg.Channels.Discord.Token, "DISCORD_BOT_TOKEN"},
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Database.Redis.Password, "REDIS_PASSWORD"},
	}
	for _, o := range overrides {
		if *o.target == "" {
			if val := os.Getenv(o.env); val != "" {
				*o.target = val
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bookings-bot"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":3978"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Bot.CancelKeyword == "" {
		cfg.Bot.CancelKeyword = "cancel"
	}
	if cfg.Bot.TimeZone == "" {
		cfg.Bot.TimeZone = "UTC"
	}
	if cfg.Bot.DateChoiceCount == 0 {
		cfg.Bot.DateChoiceCount = 6
	}
	if cfg.Bot.RateLimit == 0 {
		cfg.Bot.RateLimit = 5
	}
	if cfg.Bot.RateBurst == 0 {
		cfg.Bot.RateBurst = 10
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "bookings-bot"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.Table == "" {
		cfg.Database.Postgres.Table = "bot_state"
	}

	if cfg.Scheduling.BaseURL == "" {
		cfg.Scheduling.BaseURL = "https://graph.microsoft.com/v1.0"
	}
	if len(cfg.Scheduling.Scopes) == 0 {
		cfg.Scheduling.Scopes = []string{"https://graph.microsoft.com/.default"}
	}
	if cfg.Scheduling.Timeout == 0 {
		cfg.Scheduling.Timeout = 15000
	}

	if cfg.Channels.Webhook.Path == "" {
		cfg.Channels.Webhook.Path = "/api/messages"
	}

	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Scheduling.BaseURL == "" {
		return fmt.Errorf("scheduling.base_url is required")
	}
	if !cfg.Scheduling.AuthDisabled {
		if cfg.Scheduling.ClientID == "" || cfg.Scheduling.ClientSecret == "" {
			return fmt.Errorf("scheduling.client_id and scheduling.client_secret are required")
		}
		if cfg.Scheduling.TenantID == "" && cfg.Scheduling.TokenURL == "" {
			return fmt.Errorf("scheduling.tenant_id or scheduling.token_url is required")
		}
	}

	if _, err := time.LoadLocation(cfg.Bot.TimeZone); err != nil {
		return fmt.Errorf("bot.time_zone %q is invalid: %w", cfg.Bot.TimeZone, err)
	}
	if cfg.Bot.DateChoiceCount < 1 {
		return fmt.Errorf("bot.date_choice_count must be positive")
	}

	switch cfg.Storage.Driver {
	case "memory":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis storage driver")
		}
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for the postgres storage driver")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required for the postgres storage driver")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", cfg.Storage.Driver)
	}

	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token == "" {
		return fmt.Errorf("channels.discord.token is required when the discord channel is enabled")
	}
	if cfg.Notifications.Email.Enabled && cfg.Notifications.Email.FromEmail == "" {
		return fmt.Errorf("notifications.email.from_email is required when email notifications are enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// Location returns the bot's configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Bot.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
