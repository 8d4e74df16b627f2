package coordinator

import "time"

// ShardEndpoint names one shard node and where to reach it.
type ShardEndpoint struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Config holds the coordinator's routing knobs.
type Config struct {
	// Shards lists the shard endpoints to fan out to.
	Shards []ShardEndpoint `json:"shards"`

	// QueryTimeout is the budget for a whole query, scatter through merge.
	// Coordinator does not read it; PerShardTimeout is the only deadline
	// it applies.
	QueryTimeout time.Duration `json:"query_timeout"`

	// PerShardTimeout bounds one shard's answer.
	PerShardTimeout time.Duration `json:"per_shard_timeout"`

	// ConnectTimeout is the budget for dialing a shard. Coordinator does
	// not read it.
	ConnectTimeout time.Duration `json:"connect_timeout"`

	// MaxRetries is a retry count for transiently failing shards.
	// Coordinator does not read it and makes one attempt per shard.
	MaxRetries int `json:"max_retries"`

	// HealthCheckInterval is a cadence for health polls. Coordinator does
	// not read it and runs no background poller; CheckHealth polls only
	// when called.
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

// DefaultConfig returns the defaults used when no config file is given.
func DefaultConfig() Config {
	return Config{
		QueryTimeout:        10 * time.Second,
		PerShardTimeout:     5 * time.Second,
		ConnectTimeout:      2 * time.Second,
		MaxRetries:          1,
		HealthCheckInterval: 10 * time.Second,
	}
}
