package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/weiawesome/huddle-sync/pkg/config"
	"github.com/weiawesome/huddle-sync/pkg/database"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	WebSocket WebSocketConfig
	Redis     RedisConfig
	Database  database.Config
	Auth      AuthConfig
	Kafka     KafkaConfig
	Sync      SyncConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type GRPCConfig struct {
	Host          string
	Port          int
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int `mapstructure:"pool_size"`
	Prefix       string
	RoleCacheTTL time.Duration `mapstructure:"role_cache_ttl"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	Issuer      string
	InternalKey string `mapstructure:"internal_key"`
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       string
	MessageTopic  string `mapstructure:"message_topic"`
	GroupID       string `mapstructure:"group_id"`
	PresenceTopic string `mapstructure:"presence_topic"`
	Partitions    int
}

type SyncConfig struct {
	WriteQueueSize  int           `mapstructure:"write_queue_size"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DedupWindow     int           `mapstructure:"dedup_window"`
	// PurgeOnStart drops playback left in Redis by a previous process.
	PurgeOnStart bool `mapstructure:"purge_on_start"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads ./config/config.yaml and the environment.
func Load() (*Config, error) {
	return LoadFrom("./config")
}

func LoadFrom(configPath string) (*Config, error) {
	v, err := pkgconfig.Load(configPath, "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50060)
	v.SetDefault("grpc.probe_interval", "5s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.allowed_origins", []string{})
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.prefix", "sync")
	v.SetDefault("redis.role_cache_ttl", "1m")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", "huddle")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("auth.issuer", "huddle-auth")
	v.SetDefault("auth.internal_key", "")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.message_topic", "message-events")
	v.SetDefault("kafka.group_id", "huddle-sync")
	v.SetDefault("kafka.presence_topic", "presence-events")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("sync.write_queue_size", 1024)
	v.SetDefault("sync.write_timeout", "2s")
	v.SetDefault("sync.shutdown_timeout", "10s")
	v.SetDefault("sync.dedup_window", 4096)
	v.SetDefault("sync.purge_on_start", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("grpc.port", "GRPC_PORT")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.db_name", "DB_NAME")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.internal_key", "INTERNAL_KEY")
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.GRPC.ProbeInterval = parseDuration(v, "grpc.probe_interval", 5*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Redis.RoleCacheTTL = parseDuration(v, "redis.role_cache_ttl", time.Minute)
	cfg.Database.ConnMaxLifetime = parseDuration(v, "database.conn_max_lifetime", 30*time.Minute)
	cfg.Sync.WriteTimeout = parseDuration(v, "sync.write_timeout", 2*time.Second)
	cfg.Sync.ShutdownTimeout = parseDuration(v, "sync.shutdown_timeout", 10*time.Second)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket.ping_interval (%s) must be shorter than websocket.pong_wait (%s)",
			c.WebSocket.PingInterval, c.WebSocket.PongWait)
	}
	return nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
