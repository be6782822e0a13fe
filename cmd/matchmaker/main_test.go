// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/config"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/eventbus"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store/memstore"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store/redisstore"
)

type stubSubmitter struct {
	modes   []models.MatchMode
	entries map[models.MatchMode][]models.QueueEntry
	failID  int64
}

func (s *stubSubmitter) Modes() []models.MatchMode {
	return s.modes
}

func (s *stubSubmitter) Submit(_ context.Context, mode models.MatchMode, entry models.QueueEntry) error {
	if entry.ID == s.failID {
		return errors.New("rejected")
	}
	s.entries[mode] = append(s.entries[mode], entry)
	return nil
}

func TestSeedPlayers(t *testing.T) {
	s := &stubSubmitter{
		modes:   []models.MatchMode{models.MatchModeOneVsOne, models.MatchModeTwoVsTwo},
		entries: make(map[models.MatchMode][]models.QueueEntry),
		failID:  3,
	}

	submitted := seedPlayers(context.Background(), s, 50, 100)

	assert.Equal(t, 49, submitted)
	total := 0
	for mode, entries := range s.entries {
		assert.Contains(t, s.modes, mode)
		for _, entry := range entries {
			assert.GreaterOrEqual(t, entry.MMR, 1)
			assert.LessOrEqual(t, entry.MMR, 100)
		}
		total += len(entries)
	}
	assert.Equal(t, 49, total)
}

func TestSeedPlayersDisabled(t *testing.T) {
	s := &stubSubmitter{modes: []models.MatchMode{models.MatchModeOneVsOne}, entries: map[models.MatchMode][]models.QueueEntry{}}

	assert.Zero(t, seedPlayers(context.Background(), s, 0, 100))
	assert.Empty(t, s.entries)
}

func TestNewBackendsMemory(t *testing.T) {
	cfg := config.Default()
	cfg.StoreBackend = config.BackendMemory
	cfg.EventBusBackend = config.BackendMemory

	b, err := newBackends(cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &memstore.Store{}, b.store)
	assert.IsType(t, &eventbus.MemoryBus{}, b.bus)
	assert.Nil(t, b.redis)
}

func TestNewBackendsRedis(t *testing.T) {
	server := miniredis.RunT(t)
	cfg := config.Default()
	cfg.RedisAddr = server.Addr()

	b, err := newBackends(cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &redisstore.Store{}, b.store)
	assert.IsType(t, &eventbus.RedisBus{}, b.bus)
}

func TestNewBackendsRedisUnreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	cfg := config.Default()
	cfg.RedisAddr = addr

	_, err := newBackends(cfg)
	assert.Error(t, err)
}
