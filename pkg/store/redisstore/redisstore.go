// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package redisstore keeps the match queues in Redis sorted sets.
//
//	match:queue:{Mode}  member = user id, score = packed score
//	match:score:{Mode}  member = user id, score = mmr
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store"
)

type Store struct {
	client redis.UniversalClient
	intn   func(int64) int64
}

var _ store.QueueStore = (*Store)(nil)

func New(client redis.UniversalClient) *Store {
	return &Store{
		client: client,
		intn:   rand.Int64N,
	}
}

// NewClient builds a client the way the rest of the services do.
func NewClient(addr, password string, db int) *redis.Client {
	logrus.WithField("addr", addr).WithField("db", db).Info("connecting to redis")

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// WithRandom replaces the sample offset source, for deterministic tests.
func (s *Store) WithRandom(intn func(int64) int64) *Store {
	s.intn = intn
	return s
}

func QueueKey(mode models.MatchMode) string {
	return fmt.Sprintf(constants.MatchQueueKeyFormat, mode.String())
}

func ScoreKey(mode models.MatchMode) string {
	return fmt.Sprintf(constants.MatchScoreKeyFormat, mode.String())
}

func memberKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toMembers(zs []redis.Z) ([]store.Member, error) {
	members := make([]store.Member, 0, len(zs))
	for _, z := range zs {
		raw, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected sorted set member type %T", z.Member)
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sorted set member %q is not a user id: %w", raw, err)
		}
		members = append(members, store.Member{ID: id, Score: int64(z.Score)})
	}
	return members, nil
}

func (s *Store) Length(ctx context.Context, mode models.MatchMode) (int64, error) {
	return s.client.ZCard(ctx, QueueKey(mode)).Result()
}

func (s *Store) ScanByScoreAscending(ctx context.Context, mode models.MatchMode, rankStart, rankEnd int64) ([]store.Member, error) {
	zs, err := s.client.ZRangeWithScores(ctx, QueueKey(mode), rankStart, rankEnd).Result()
	if err != nil {
		return nil, err
	}
	return toMembers(zs)
}

func (s *Store) SampleByScoreRange(ctx context.Context, mode models.MatchMode, minScore, maxScore int64, count int) ([]store.Member, error) {
	if count <= 0 || minScore > maxScore {
		return nil, nil
	}

	key := ScoreKey(mode)
	lo, hi := strconv.FormatInt(minScore, 10), strconv.FormatInt(maxScore, 10)

	total, err := s.client.ZCount(ctx, key, lo, hi).Result()
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	zs, err := s.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min:    lo,
		Max:    hi,
		Offset: store.SampleOffset(total, count, s.intn),
		Count:  int64(count),
	}).Result()
	if err != nil {
		return nil, err
	}
	return toMembers(zs)
}

func (s *Store) ScoreOf(ctx context.Context, mode models.MatchMode, id int64) (int64, bool, error) {
	score, err := s.client.ZScore(ctx, QueueKey(mode), memberKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int64(score), true, nil
}

// InsertAtomic writes both sorted sets in one MULTI/EXEC. Redis still applies the
// other commands of a transaction when one of them fails, so a half write is undone.
func (s *Store) InsertAtomic(ctx context.Context, mode models.MatchMode, entry models.QueueEntry) error {
	var queueAdd, scoreAdd *redis.IntCmd
	member := memberKey(entry.ID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueAdd = pipe.ZAdd(ctx, QueueKey(mode), redis.Z{Score: float64(entry.PackedScore), Member: member})
		scoreAdd = pipe.ZAdd(ctx, ScoreKey(mode), redis.Z{Score: float64(entry.MMR), Member: member})
		return nil
	})
	if err == nil {
		return nil
	}

	switch {
	case queueAdd != nil && queueAdd.Err() == nil && scoreAdd != nil && scoreAdd.Err() != nil:
		s.undo(ctx, QueueKey(mode), member)
	case scoreAdd != nil && scoreAdd.Err() == nil && queueAdd != nil && queueAdd.Err() != nil:
		s.undo(ctx, ScoreKey(mode), member)
	}

	return fmt.Errorf("%w: insert %d into %s: %w", models.ErrStoreTransaction, entry.ID, mode, err)
}

// RemoveAtomic reports false when the user had already left the queue.
// When only one ZREM of the transaction applies, the removed member is put back
// with the scores read beforehand.
func (s *Store) RemoveAtomic(ctx context.Context, mode models.MatchMode, id int64) (bool, error) {
	var queueRem, scoreRem *redis.IntCmd
	member := memberKey(id)

	packed, queued, err := s.ScoreOf(ctx, mode, id)
	if err != nil {
		return false, fmt.Errorf("%w: read %d in %s: %w", models.ErrStoreTransaction, id, mode, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueRem = pipe.ZRem(ctx, QueueKey(mode), member)
		scoreRem = pipe.ZRem(ctx, ScoreKey(mode), member)
		return nil
	})
	if err != nil {
		if queued {
			switch {
			case queueRem != nil && queueRem.Err() == nil && queueRem.Val() > 0 && scoreRem != nil && scoreRem.Err() != nil:
				s.restore(ctx, QueueKey(mode), member, float64(packed))
			case scoreRem != nil && scoreRem.Err() == nil && scoreRem.Val() > 0 && queueRem != nil && queueRem.Err() != nil:
				s.restore(ctx, ScoreKey(mode), member, float64(packed%constants.MMRMultiplier))
			}
		}
		return false, fmt.Errorf("%w: remove %d from %s: %w", models.ErrStoreTransaction, id, mode, err)
	}

	return queueRem.Val() > 0, nil
}

func (s *Store) Clear(ctx context.Context, mode models.MatchMode) error {
	return s.client.Del(ctx, QueueKey(mode), ScoreKey(mode)).Err()
}

func (s *Store) undo(ctx context.Context, key string, member string) {
	if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
		logrus.WithField("key", key).WithField("member", member).Errorf("unable to undo partial queue write: %s", err)
	}
}

func (s *Store) restore(ctx context.Context, key string, member string, score float64) {
	if err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		logrus.WithField("key", key).WithField("member", member).Errorf("unable to restore partially removed entry: %s", err)
	}
}
