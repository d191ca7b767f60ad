package config

import "time"

const (
	EnvPrefix = "FLOOR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	LocalDBFile = "floor.db"

	BridgeNone   = "none"
	BridgeRedis  = "redis"
	BridgePubSub = "pubsub"

	MinPollInterval = 10 * time.Second
	MaxPollInterval = 30 * time.Second
)

const (
	EnvAppEnv                = "FLOOR_APP_ENV"
	EnvPort                  = "FLOOR_APP_PORT"
	EnvTimeZone              = "FLOOR_TIMEZONE"
	EnvStorageRemoteDSN      = "FLOOR_STORAGE_REMOTE_DSN"
	EnvStorageDataDir        = "FLOOR_STORAGE_DATA_DIR"
	EnvStorageOpTimeout      = "FLOOR_STORAGE_OP_TIMEOUT"
	EnvRedisURL              = "FLOOR_REDIS_URL"
	EnvRedisAddr             = "FLOOR_REDIS_ADDR"
	EnvGCPProjectID          = "FLOOR_GCP_PROJECT_ID"
	EnvPubSubEventsTopic     = "FLOOR_PUBSUB_EVENTS_TOPIC"
	EnvPubSubEventsSub       = "FLOOR_PUBSUB_EVENTS_SUBSCRIPTION"
	EnvBroadcastBridge       = "FLOOR_BROADCAST_BRIDGE"
	EnvBroadcastBufferSize   = "FLOOR_BROADCAST_BUFFER_SIZE"
	EnvBroadcastPollInterval = "FLOOR_BROADCAST_POLL_INTERVAL"
	EnvFloorTables           = "FLOOR_TABLES"
	EnvJobsInterval          = "FLOOR_JOBS_INTERVAL"
)
