// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNATS   = "nats"
)

type Config struct {
	MatchModes []string `env:"MATCH_MODES" envDefault:"OneVsOne,TwoVsTwo,ThreeVsThree,FourVsFour,FiveVsFive" envSeparator:"," envDocs:"active match modes, by name or party size"`

	MatchTimeoutSecond   int           `env:"MATCH_TIMEOUT_SECOND"     envDefault:"180" envDocs:"owner is dropped once it waited longer than this"`
	MatchRetryCount      int           `env:"MATCH_RETRY_COUNT"        envDefault:"3"   envDocs:"owner claim batches and search expansions per attempt"`
	QueueBatchSize       int           `env:"QUEUE_BATCH_SIZE"         envDefault:"10"  envDocs:"owner scan batch size"`
	BalancerWindowSize   int           `env:"BALANCER_WINDOW_SIZE"     envDefault:"300" envDocs:"number of match times kept by the balancer"`
	BalancerResetTimeout time.Duration `env:"BALANCER_RESET_THRESHOLD" envDefault:"5s"  envDocs:"balancer window is cleared when idle for longer than this"`

	WorkerMin         int           `env:"WORKER_MIN"          envDefault:"1"     envDocs:"minimum workers per mode"`
	WorkerMax         int           `env:"WORKER_MAX"          envDefault:"2"     envDocs:"maximum workers per mode"`
	WorkerCooldown    time.Duration `env:"WORKER_COOLDOWN"     envDefault:"2s"    envDocs:"minimum interval between two resizes of a mode"`
	WorkerStopTimeout time.Duration `env:"WORKER_STOP_TIMEOUT" envDefault:"5s"    envDocs:"how long a scale down waits for the cancelled worker"`
	WorkerIdleBackoff time.Duration `env:"WORKER_IDLE_BACKOFF" envDefault:"100ms" envDocs:"sleep after an attempt that formed no match"`
	WorkerPacingDelay time.Duration `env:"WORKER_PACING_DELAY" envDefault:"30ms"  envDocs:"sleep after every attempt"`

	ScaleUpInterval        time.Duration `env:"SCALE_UP_INTERVAL"              envDefault:"2s"  envDocs:"scale up evaluation interval"`
	ScaleDownInterval      time.Duration `env:"SCALE_DOWN_INTERVAL"            envDefault:"3s"  envDocs:"scale down evaluation interval"`
	WorkingThresholdSecond int           `env:"SCALE_WORKING_THRESHOLD_SECOND" envDefault:"3"   envDocs:"average match time that signals backlog"`
	MinCountThreshold      int64         `env:"SCALE_MIN_COUNT_THRESHOLD"      envDefault:"300" envDocs:"queue depth that signals backlog"`

	StoreBackend    string `env:"STORE_BACKEND"     envDefault:"redis" envDocs:"queue store backend: redis or memory"`
	EventBusBackend string `env:"EVENT_BUS_BACKEND" envDefault:"redis" envDocs:"event bus backend: redis, nats or memory"`
	RedisAddr       string `env:"REDIS_ADDR"        envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"    envDefault:""`
	RedisDB         int    `env:"REDIS_DB"          envDefault:"0"`
	NATSURL         string `env:"NATS_URL"          envDefault:"nats://127.0.0.1:4222"`

	ResetQueuesOnStart bool   `env:"RESET_QUEUES_ON_START" envDefault:"true" envDocs:"clear every active mode queue at boot"`
	MetricsAddr        string `env:"METRICS_ADDR"          envDefault:":8080" envDocs:"prometheus listener, empty disables it"`
	ZipkinEndpoint     string `env:"ZIPKIN_ENDPOINT"       envDefault:""      envDocs:"zipkin collector url, empty disables tracing export"`
	LogLevel           string `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat          string `env:"LOG_FORMAT"            envDefault:"json"  envDocs:"json or text"`

	SeedPlayers int `env:"SEED_PLAYERS" envDefault:"0"   envDocs:"synthetic players submitted at boot"`
	SeedMaxMMR  int `env:"SEED_MAX_MMR" envDefault:"100" envDocs:"upper bound of synthetic player mmr"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.WorkerMin < 1 {
		return errors.New("WORKER_MIN must be at least 1")
	}
	if c.WorkerMax < c.WorkerMin {
		return fmt.Errorf("WORKER_MAX (%d) must not be less than WORKER_MIN (%d)", c.WorkerMax, c.WorkerMin)
	}
	if c.MatchRetryCount < 1 || c.QueueBatchSize < 1 || c.BalancerWindowSize < 1 {
		return errors.New("MATCH_RETRY_COUNT, QUEUE_BATCH_SIZE and BALANCER_WINDOW_SIZE must be positive")
	}
	if _, err := c.Modes(); err != nil {
		return err
	}

	switch c.StoreBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.EventBusBackend {
	case BackendRedis, BackendNATS, BackendMemory:
	default:
		return fmt.Errorf("unknown EVENT_BUS_BACKEND %q", c.EventBusBackend)
	}

	return nil
}

// Modes resolves MatchModes, skipping duplicates. None is rejected.
func (c *Config) Modes() ([]models.MatchMode, error) {
	seen := make(map[models.MatchMode]bool, len(c.MatchModes))
	modes := make([]models.MatchMode, 0, len(c.MatchModes))
	for _, name := range c.MatchModes {
		mode, err := models.ParseMatchMode(name)
		if err != nil {
			return nil, err
		}
		if seen[mode] {
			continue
		}
		seen[mode] = true
		modes = append(modes, mode)
	}
	if len(modes) == 0 {
		return nil, errors.New("MATCH_MODES must name at least one mode")
	}

	return modes, nil
}

func (c *Config) MatchTimeout() time.Duration {
	return time.Duration(c.MatchTimeoutSecond) * time.Second
}

// Default returns the configuration every envDefault describes, without reading the environment.
func Default() *Config {
	return &Config{
		MatchModes:             []string{"OneVsOne", "TwoVsTwo", "ThreeVsThree", "FourVsFour", "FiveVsFive"},
		MatchTimeoutSecond:     int(constants.DefaultMatchTimeout / time.Second),
		MatchRetryCount:        constants.DefaultRetryCount,
		QueueBatchSize:         constants.DefaultQueueBatchSize,
		BalancerWindowSize:     constants.DefaultBalancerWindowSize,
		BalancerResetTimeout:   constants.DefaultBalancerResetWindow,
		WorkerMin:              constants.DefaultMinWorkers,
		WorkerMax:              constants.DefaultMaxWorkers,
		WorkerCooldown:         constants.DefaultWorkerCooldown,
		WorkerStopTimeout:      constants.DefaultWorkerStopTimeout,
		WorkerIdleBackoff:      constants.DefaultIdleBackoff,
		WorkerPacingDelay:      constants.DefaultPacingDelay,
		ScaleUpInterval:        constants.DefaultScaleUpInterval,
		ScaleDownInterval:      constants.DefaultScaleDownInterval,
		WorkingThresholdSecond: constants.DefaultWorkingThresholdSecond,
		MinCountThreshold:      constants.DefaultMinCountThreshold,
		StoreBackend:           BackendRedis,
		EventBusBackend:        BackendRedis,
		RedisAddr:              "localhost:6379",
		NATSURL:                "nats://127.0.0.1:4222",
		ResetQueuesOnStart:     true,
		MetricsAddr:            ":8080",
		LogLevel:               "info",
		LogFormat:              "json",
		SeedMaxMMR:             100,
	}
}
