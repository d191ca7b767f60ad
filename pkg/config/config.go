package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/lib/pq"
)

type Config struct {
	App       AppConfig
	Storage   StorageConfig
	Redis     RedisConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Broadcast BroadcastConfig
	Floor     FloorConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLOOR_APP_ENV" required:"true"`
	Port         string `envconfig:"FLOOR_APP_PORT" default:"5001"`
	LogLevel     string `envconfig:"FLOOR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLOOR_LOG_WARN_STACK" default:"false"`
	TimeZone     string `envconfig:"FLOOR_TIMEZONE" default:"UTC"`

	CORSOrigins     []string      `envconfig:"FLOOR_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"FLOOR_SHUTDOWN_TIMEOUT" default:"10s"`
	StreamKeepAlive time.Duration `envconfig:"FLOOR_STREAM_KEEPALIVE" default:"20s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the business time zone used for daily totals.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}

type StorageConfig struct {
	RemoteDSN      string        `envconfig:"FLOOR_STORAGE_REMOTE_DSN"`
	ConnectTimeout time.Duration `envconfig:"FLOOR_STORAGE_CONNECT_TIMEOUT" default:"3s"`
	OpTimeout      time.Duration `envconfig:"FLOOR_STORAGE_OP_TIMEOUT" default:"5s"`
	DataDir        string        `envconfig:"FLOOR_STORAGE_DATA_DIR" default:"data"`
	AutoMigrate    bool          `envconfig:"FLOOR_STORAGE_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"FLOOR_STORAGE_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"FLOOR_STORAGE_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"FLOOR_STORAGE_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLOOR_STORAGE_CONN_MAX_IDLE_TIME" default:"10m"`
}

// LocalPath returns the sqlite file used when the remote store is unavailable.
func (s StorageConfig) LocalPath() string {
	dir := strings.TrimRight(strings.TrimSpace(s.DataDir), "/")
	if dir == "" {
		dir = "."
	}
	return dir + "/" + LocalDBFile
}

type RedisConfig struct {
	URL          string        `envconfig:"FLOOR_REDIS_URL"`
	Address      string        `envconfig:"FLOOR_REDIS_ADDR"`
	Password     string        `envconfig:"FLOOR_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLOOR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLOOR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLOOR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLOOR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLOOR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLOOR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FLOOR_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"FLOOR_PUBSUB_EVENTS_TOPIC" default:"floor-events"`
	EventsSubscription string `envconfig:"FLOOR_PUBSUB_EVENTS_SUBSCRIPTION"`
}

type BroadcastConfig struct {
	Bridge       string        `envconfig:"FLOOR_BROADCAST_BRIDGE" default:"none"`
	BufferSize   int           `envconfig:"FLOOR_BROADCAST_BUFFER_SIZE" default:"32"`
	PollInterval time.Duration `envconfig:"FLOOR_BROADCAST_POLL_INTERVAL" default:"15s"`
	Channel      string        `envconfig:"FLOOR_BROADCAST_CHANNEL" default:"live"`
}

// BridgeKind returns the normalized bridge selector.
func (b BroadcastConfig) BridgeKind() string {
	kind := strings.ToLower(strings.TrimSpace(b.Bridge))
	if kind == "" {
		return BridgeNone
	}
	return kind
}

type FloorConfig struct {
	Tables []string `envconfig:"FLOOR_TABLES" default:"1,2,3,4,5,6,7,8,9,10,11,12,VIP1,VIP2"`
}

// RateLimitConfig throttles alert creation; a zero limit disables that dimension.
// Limits only apply when redis is configured.
type RateLimitConfig struct {
	AlertWindow     time.Duration `envconfig:"FLOOR_RATE_LIMIT_ALERT_WINDOW" default:"1m"`
	AlertTableLimit int           `envconfig:"FLOOR_RATE_LIMIT_ALERT_TABLE" default:"6"`
	AlertIPLimit    int           `envconfig:"FLOOR_RATE_LIMIT_ALERT_IP" default:"60"`
}

// JobsConfig drives the maintenance worker.
type JobsConfig struct {
	Interval   time.Duration `envconfig:"FLOOR_JOBS_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"FLOOR_JOBS_LOCK_TTL" default:"55m"`
	Resync     bool          `envconfig:"FLOOR_JOBS_RESYNC" default:"true"`
	BackupDir  string        `envconfig:"FLOOR_JOBS_BACKUP_DIR"`
	BackupKeep int           `envconfig:"FLOOR_JOBS_BACKUP_KEEP" default:"5"`
}

// BackupPath returns the snapshot directory, defaulting to backups/ under the data dir.
func (j JobsConfig) BackupPath(storage StorageConfig) string {
	if dir := strings.TrimSpace(j.BackupDir); dir != "" {
		return strings.TrimRight(dir, "/")
	}
	dir := strings.TrimRight(strings.TrimSpace(storage.DataDir), "/")
	if dir == "" {
		dir = "."
	}
	return dir + "/backups"
}

func (c *Config) validate() error {
	if c.Broadcast.PollInterval < MinPollInterval || c.Broadcast.PollInterval > MaxPollInterval {
		return fmt.Errorf("%s must be between %s and %s", EnvBroadcastPollInterval, MinPollInterval, MaxPollInterval)
	}
	if c.Broadcast.BufferSize <= 0 {
		return fmt.Errorf("%s must be positive", EnvBroadcastBufferSize)
	}
	if c.Storage.OpTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvStorageOpTimeout)
	}
	if err := validateRemoteDSN(c.Storage.RemoteDSN); err != nil {
		return err
	}
	if c.Jobs.Interval <= 0 {
		return fmt.Errorf("%s must be positive", EnvJobsInterval)
	}

	switch c.Broadcast.BridgeKind() {
	case BridgeNone:
	case BridgeRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s=redis requires %s or %s", EnvBroadcastBridge, EnvRedisURL, EnvRedisAddr)
		}
	case BridgePubSub:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s=pubsub requires %s", EnvBroadcastBridge, EnvGCPProjectID)
		}
		if strings.TrimSpace(c.PubSub.EventsSubscription) == "" {
			return fmt.Errorf("%s=pubsub requires %s", EnvBroadcastBridge, EnvPubSubEventsSub)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvBroadcastBridge, c.Broadcast.Bridge)
	}
	return nil
}

// validateRemoteDSN rejects malformed postgres URLs at startup instead of on
// the first failed dial. Keyword/value DSNs are left to the driver.
func validateRemoteDSN(dsn string) error {
	dsn = strings.TrimSpace(dsn)
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}
	if _, err := pq.ParseURL(dsn); err != nil {
		return fmt.Errorf("%s: %w", EnvStorageRemoteDSN, err)
	}
	return nil
}
