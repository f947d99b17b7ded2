package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const devJWTSecret = "dev_secret"

// ErrInsecureJWTSecret is returned when production runs without a real signing secret.
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a non-default value in production")

type Config struct {
	Env          string
	Port         int
	APIPrefix    string
	StoreTimeout time.Duration
	Release      string
	SentryDSN    string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	WebSocket     WebSocketConfig
	Notifications NotificationsConfig
	Tasks         TasksConfig
	Reminders     RemindersConfig
	LabSettings   LabSettingsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool

	// ConnectRetries bounds startup pings before giving up.
	ConnectRetries int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds verification settings for tokens issued by the auth service.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WebSocketConfig tunes the realtime channel.
type WebSocketConfig struct {
	Path              string
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	SendBuffer        int
	MaxMessageBytes   int64
}

// ReadTimeout is how long a connection may stay silent before it is treated as dead.
func (w WebSocketConfig) ReadTimeout() time.Duration {
	return 2 * w.HeartbeatInterval
}

// NotificationsConfig controls the fan-out queue and the optional redis relay.
type NotificationsConfig struct {
	Workers      int
	QueueSize    int
	RedisRelay   bool
	RedisChannel string
}

// TasksConfig holds task policy constants.
type TasksConfig struct {
	DefaultDueDays int
}

// RemindersConfig drives the meeting reminder scheduler.
type RemindersConfig struct {
	Enabled      bool
	ScanInterval time.Duration
	LeadTime     time.Duration
}

// LabSettingsConfig governs the per-lab settings lookup cache.
type LabSettingsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that are unsafe for the configured environment.
func (c *Config) Validate() error {
	if c.Env == EnvProduction {
		secret := strings.TrimSpace(c.JWT.Secret)
		if secret == "" || secret == devJWTSecret {
			return ErrInsecureJWTSecret
		}
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.StoreTimeout = parseDuration(v.GetString("STORE_TIMEOUT"), 5*time.Second)
	cfg.Release = v.GetString("RELEASE")
	cfg.SentryDSN = v.GetString("SENTRY_DSN")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:    v.GetBool("DB_AUTO_MIGRATE"),
		ConnectRetries: v.GetInt("DB_CONNECT_RETRIES"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	sendBuffer := v.GetInt("WS_SEND_BUFFER")
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	cfg.WebSocket = WebSocketConfig{
		Path:              v.GetString("WS_PATH"),
		HeartbeatInterval: parseDuration(v.GetString("WS_HEARTBEAT_INTERVAL"), 30*time.Second),
		WriteTimeout:      parseDuration(v.GetString("WS_WRITE_TIMEOUT"), 10*time.Second),
		SendBuffer:        sendBuffer,
		MaxMessageBytes:   v.GetInt64("WS_MAX_MESSAGE_BYTES"),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:      v.GetInt("NOTIFY_WORKERS"),
		QueueSize:    v.GetInt("NOTIFY_QUEUE_SIZE"),
		RedisRelay:   v.GetBool("NOTIFY_REDIS_RELAY"),
		RedisChannel: v.GetString("NOTIFY_REDIS_CHANNEL"),
	}

	dueDays := v.GetInt("TASK_DEFAULT_DUE_DAYS")
	if dueDays <= 0 {
		dueDays = 7
	}
	cfg.Tasks = TasksConfig{DefaultDueDays: dueDays}

	cfg.Reminders = RemindersConfig{
		Enabled:      v.GetBool("ENABLE_MEETING_REMINDERS"),
		ScanInterval: parseDuration(v.GetString("REMINDER_SCAN_INTERVAL"), time.Minute),
		LeadTime:     parseDuration(v.GetString("REMINDER_LEAD_TIME"), 15*time.Minute),
	}

	cfg.LabSettings = LabSettingsConfig{
		CacheEnabled: v.GetBool("ENABLE_LAB_SETTINGS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("LAB_SETTINGS_CACHE_TTL"), 10*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("RELEASE", "dev")
	v.SetDefault("SENTRY_DSN", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lab_ops")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_CONNECT_RETRIES", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WS_PATH", "/ws")
	v.SetDefault("WS_HEARTBEAT_INTERVAL", "30s")
	v.SetDefault("WS_WRITE_TIMEOUT", "10s")
	v.SetDefault("WS_SEND_BUFFER", 32)
	v.SetDefault("WS_MAX_MESSAGE_BYTES", 4096)

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_REDIS_RELAY", false)
	v.SetDefault("NOTIFY_REDIS_CHANNEL", "lab-ops:events")

	v.SetDefault("TASK_DEFAULT_DUE_DAYS", 7)

	v.SetDefault("ENABLE_MEETING_REMINDERS", true)
	v.SetDefault("REMINDER_SCAN_INTERVAL", "1m")
	v.SetDefault("REMINDER_LEAD_TIME", "15m")

	v.SetDefault("ENABLE_LAB_SETTINGS_CACHE", false)
	v.SetDefault("LAB_SETTINGS_CACHE_TTL", "10m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
