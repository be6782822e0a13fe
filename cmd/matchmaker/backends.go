// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/config"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/eventbus"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store/memstore"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store/redisstore"
)

// backends holds the queue store, the event bus and the clients behind them.
type backends struct {
	store store.QueueStore
	bus   eventbus.Bus

	redis *redis.Client
	nats  *nats.Conn
}

func newBackends(cfg *config.Config) (*backends, error) {
	b := &backends{}

	if cfg.StoreBackend == config.BackendRedis || cfg.EventBusBackend == config.BackendRedis {
		b.redis = redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := b.redis.Ping(context.Background()).Err(); err != nil {
			_ = b.redis.Close()
			return nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
		}
	}

	switch cfg.StoreBackend {
	case config.BackendRedis:
		b.store = redisstore.New(b.redis)
	case config.BackendMemory:
		b.store = memstore.New()
	default:
		return nil, errors.Join(fmt.Errorf("unknown store backend %q", cfg.StoreBackend), b.Close())
	}

	switch cfg.EventBusBackend {
	case config.BackendRedis:
		b.bus = eventbus.NewRedisBus(b.redis)
	case config.BackendNATS:
		conn, err := eventbus.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect nats at %s: %w", cfg.NATSURL, err), b.Close())
		}
		b.nats = conn
		b.bus = eventbus.NewNATSBus(conn)
	case config.BackendMemory:
		b.bus = eventbus.NewMemoryBus(1024)
	default:
		return nil, errors.Join(fmt.Errorf("unknown event bus backend %q", cfg.EventBusBackend), b.Close())
	}

	return b, nil
}

// Close ends the bus before the clients it runs on.
func (b *backends) Close() error {
	var errs []error
	if b.bus != nil {
		errs = append(errs, b.bus.Close())
	}
	if b.nats != nil {
		errs = append(errs, b.nats.Drain())
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}

	return errors.Join(errs...)
}
