package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalidServerURL = errors.New("server url must use ws or wss")

type Config struct {
	Client    ClientConfig
	API       APIConfig
	Log       LogConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Archive   ArchiveConfig
	DevServer DevServerConfig
}

type ClientConfig struct {
	ServerURL      string
	Token          string
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	AutoConnect    bool
	PingSchedule   string
	TokenFile      string
}

type APIConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	RatePerSecond  float64
	RateBurst      int
}

type LogConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL          string
	Channel      string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

func (c RedisConfig) Enabled() bool { return c.URL != "" }

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c ArchiveConfig) Enabled() bool { return c.Endpoint != "" }

type DevServerConfig struct {
	Port       string
	JWTSecret  string
	TokenTTL   time.Duration
	AdminKey   string
	KafkaTopic string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("NOTIFY_SERVER_URL", "ws://localhost:8081/ws")
	v.SetDefault("NOTIFY_TOKEN", "")
	v.SetDefault("NOTIFY_RECONNECT_DELAY", 3*time.Second)
	v.SetDefault("NOTIFY_DIAL_TIMEOUT", 15*time.Second)
	v.SetDefault("NOTIFY_AUTO_CONNECT", true)
	v.SetDefault("NOTIFY_PING_SCHEDULE", "")
	v.SetDefault("NOTIFY_TOKEN_FILE", "")
	v.SetDefault("NOTIFY_API_ADDR", "127.0.0.1:8090")
	v.SetDefault("NOTIFY_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("NOTIFY_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("NOTIFY_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("NOTIFY_API_RATE", 20.0)
	v.SetDefault("NOTIFY_API_BURST", 40)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RELAY_REDIS_CHANNEL", "")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "notifications")
	v.SetDefault("KAFKA_CLIENT_ID", "notify-client")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "notifications")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("DEVSERVER_PORT", "8081")
	v.SetDefault("DEVSERVER_JWT_SECRET", "secret")
	v.SetDefault("DEVSERVER_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("DEVSERVER_ADMIN_KEY", "")
	v.SetDefault("DEVSERVER_KAFKA_TOPIC", "")
}

// Load reads .env files (missing files are fine), then the environment.
// With no arguments ".env" in the working directory is tried.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Client: ClientConfig{
			ServerURL:      v.GetString("NOTIFY_SERVER_URL"),
			Token:          v.GetString("NOTIFY_TOKEN"),
			ReconnectDelay: v.GetDuration("NOTIFY_RECONNECT_DELAY"),
			DialTimeout:    v.GetDuration("NOTIFY_DIAL_TIMEOUT"),
			AutoConnect:    v.GetBool("NOTIFY_AUTO_CONNECT"),
			PingSchedule:   v.GetString("NOTIFY_PING_SCHEDULE"),
			TokenFile:      v.GetString("NOTIFY_TOKEN_FILE"),
		},
		API: APIConfig{
			Addr:           v.GetString("NOTIFY_API_ADDR"),
			ReadTimeout:    v.GetDuration("NOTIFY_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("NOTIFY_WRITE_TIMEOUT"),
			IdleTimeout:    v.GetDuration("NOTIFY_IDLE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
			RatePerSecond:  v.GetFloat64("NOTIFY_API_RATE"),
			RateBurst:      v.GetInt("NOTIFY_API_BURST"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			Channel:      v.GetString("RELAY_REDIS_CHANNEL"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(v.GetString("KAFKA_BROKERS")),
			Topic:    v.GetString("KAFKA_TOPIC"),
			ClientID: v.GetString("KAFKA_CLIENT_ID"),
		},
		Archive: ArchiveConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		DevServer: DevServerConfig{
			Port:       v.GetString("DEVSERVER_PORT"),
			JWTSecret:  v.GetString("DEVSERVER_JWT_SECRET"),
			TokenTTL:   v.GetDuration("DEVSERVER_TOKEN_TTL"),
			AdminKey:   v.GetString("DEVSERVER_ADMIN_KEY"),
			KafkaTopic: v.GetString("DEVSERVER_KAFKA_TOPIC"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the client settings Load cannot default
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.ServerURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidServerURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: got %q", ErrInvalidServerURL, c.Client.ServerURL)
	}
	if c.Client.ReconnectDelay <= 0 {
		return fmt.Errorf("NOTIFY_RECONNECT_DELAY must be positive, got %s", c.Client.ReconnectDelay)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
