package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by the persistence layer.
const (
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Discord  DiscordConfig
	OAuth    OAuthConfig
	Ticket   TicketConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// DiscordConfig holds application credentials and REST call budgets.
type DiscordConfig struct {
	ApplicationID         string
	PublicKey             string
	BotToken              string
	ClientSecret          string
	RedirectURI           string
	RequestTimeoutMS      int
	GuildListTimeoutMS    int
	LinkedRolePlatform    string
	CommandsFlatten       bool
	InteractionsMaxBodyKB int
}

// OAuthConfig controls the signed state parameter.
type OAuthConfig struct {
	StateSecret     string
	StateTTLMinutes int
}

// TicketConfig tunes ticket lifecycle behavior.
type TicketConfig struct {
	CloseCooldownMinutes int
	WebhookName          string
	AutoArchiveMinutes   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreDriverRedis))
	switch driver {
	case StoreDriverRedis, StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", driver)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "threadmail"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver: driver,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "threadmail:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Discord: DiscordConfig{
			ApplicationID:         os.Getenv("DISCORD_APPLICATION_ID"),
			PublicKey:             os.Getenv("DISCORD_APP_PUBLIC_KEY"),
			BotToken:              os.Getenv("DISCORD_BOT_TOKEN"),
			ClientSecret:          os.Getenv("DISCORD_CLIENT_SECRET"),
			RedirectURI:           os.Getenv("DISCORD_REDIRECT_URI"),
			RequestTimeoutMS:      getEnvAsInt("DISCORD_REQUEST_TIMEOUT_MS", 5000),
			GuildListTimeoutMS:    getEnvAsInt("DISCORD_GUILD_LIST_TIMEOUT_MS", 1500),
			LinkedRolePlatform:    getEnv("LINKED_ROLE_PLATFORM_NAME", "ThreadMail"),
			CommandsFlatten:       getEnvAsBool("DISCORD_COMMANDS_FLATTEN", false),
			InteractionsMaxBodyKB: getEnvAsInt("DISCORD_INTERACTIONS_MAX_BODY_KB", 256),
		},
		OAuth: OAuthConfig{
			StateSecret:     getEnv("OAUTH_STATE_SECRET", "dev-secret"),
			StateTTLMinutes: getEnvAsInt("OAUTH_STATE_TTL_MINUTES", 10),
		},
		Ticket: TicketConfig{
			CloseCooldownMinutes: getEnvAsInt("TICKET_CLOSE_COOLDOWN_MINUTES", 30),
			WebhookName:          getEnv("TICKET_WEBHOOK_NAME", "TicketSystem"),
			AutoArchiveMinutes:   getEnvAsInt("TICKET_AUTO_ARCHIVE_MINUTES", 10080),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RequestTimeout is the default budget for a single platform call.
func (d DiscordConfig) RequestTimeout() time.Duration {
	return millis(d.RequestTimeoutMS, 5000)
}

// GuildListTimeout is the budget for the guild listing calls used by server discovery.
func (d DiscordConfig) GuildListTimeout() time.Duration {
	return millis(d.GuildListTimeoutMS, 1500)
}

// StateTTL returns how long an OAuth state token stays valid.
func (o OAuthConfig) StateTTL() time.Duration {
	if o.StateTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(o.StateTTLMinutes) * time.Minute
}

// CloseCooldown returns the cooldown applied after a user closes their own ticket.
func (t TicketConfig) CloseCooldown() time.Duration {
	if t.CloseCooldownMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(t.CloseCooldownMinutes) * time.Minute
}

func millis(val, fallback int) time.Duration {
	if val <= 0 {
		val = fallback
	}
	return time.Duration(val) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
