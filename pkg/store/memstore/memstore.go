// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package memstore is an in-process QueueStore backed by B-trees.
// One mutex covers every mode, so each call is a transaction.
package memstore

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/tidwall/btree"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store"
)

type modeQueue struct {
	queue *btree.BTreeG[store.Member]
	mmr   *btree.BTreeG[store.Member]
	byID  map[int64]models.QueueEntry
}

func lessMember(a, b store.Member) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ID < b.ID
}

func newModeQueue() *modeQueue {
	opts := btree.Options{NoLocks: true}
	return &modeQueue{
		queue: btree.NewBTreeGOptions(lessMember, opts),
		mmr:   btree.NewBTreeGOptions(lessMember, opts),
		byID:  make(map[int64]models.QueueEntry),
	}
}

type Store struct {
	mu    sync.Mutex
	modes map[models.MatchMode]*modeQueue
	intn  func(int64) int64
}

var _ store.QueueStore = (*Store)(nil)

func New() *Store {
	return &Store{
		modes: make(map[models.MatchMode]*modeQueue),
		intn:  rand.Int64N,
	}
}

// WithRandom replaces the sample offset source, for deterministic tests.
func (s *Store) WithRandom(intn func(int64) int64) *Store {
	s.intn = intn
	return s
}

func (s *Store) mode(mode models.MatchMode) *modeQueue {
	q, ok := s.modes[mode]
	if !ok {
		q = newModeQueue()
		s.modes[mode] = q
	}
	return q
}

func (s *Store) Length(ctx context.Context, mode models.MatchMode) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(s.mode(mode).queue.Len()), nil
}

// ScanByScoreAscending follows ZRANGE rank semantics, negative ranks count from the end.
func (s *Store) ScanByScoreAscending(ctx context.Context, mode models.MatchMode, rankStart, rankEnd int64) ([]store.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.mode(mode)
	length := int64(q.queue.Len())
	if rankStart < 0 {
		rankStart += length
	}
	if rankEnd < 0 {
		rankEnd += length
	}
	rankStart = max(rankStart, 0)
	rankEnd = min(rankEnd, length-1)
	if rankStart > rankEnd {
		return nil, nil
	}

	members := make([]store.Member, 0, rankEnd-rankStart+1)
	for i := rankStart; i <= rankEnd; i++ {
		member, ok := q.queue.GetAt(int(i))
		if !ok {
			break
		}
		members = append(members, member)
	}

	return members, nil
}

func (s *Store) SampleByScoreRange(ctx context.Context, mode models.MatchMode, minScore, maxScore int64, count int) ([]store.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 || minScore > maxScore {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var inRange []store.Member
	s.mode(mode).mmr.Ascend(store.Member{Score: minScore, ID: math.MinInt64}, func(member store.Member) bool {
		if member.Score > maxScore {
			return false
		}
		inRange = append(inRange, member)
		return true
	})
	if len(inRange) == 0 {
		return nil, nil
	}

	offset := store.SampleOffset(int64(len(inRange)), count, s.intn)
	end := min(offset+int64(count), int64(len(inRange)))

	sample := make([]store.Member, end-offset)
	copy(sample, inRange[offset:end])

	return sample, nil
}

func (s *Store) ScoreOf(ctx context.Context, mode models.MatchMode, id int64) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.mode(mode).byID[id]
	if !ok {
		return 0, false, nil
	}

	return entry.PackedScore, true, nil
}

// InsertAtomic replaces any previous entry of the same id, as ZADD does.
func (s *Store) InsertAtomic(ctx context.Context, mode models.MatchMode, entry models.QueueEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", models.ErrStoreTransaction, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.mode(mode)
	if previous, ok := q.byID[entry.ID]; ok {
		q.queue.Delete(store.Member{ID: previous.ID, Score: previous.PackedScore})
		q.mmr.Delete(store.Member{ID: previous.ID, Score: int64(previous.MMR)})
	}
	q.queue.Set(store.Member{ID: entry.ID, Score: entry.PackedScore})
	q.mmr.Set(store.Member{ID: entry.ID, Score: int64(entry.MMR)})
	q.byID[entry.ID] = entry

	return nil
}

func (s *Store) RemoveAtomic(ctx context.Context, mode models.MatchMode, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", models.ErrStoreTransaction, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.mode(mode)
	entry, ok := q.byID[id]
	if !ok {
		return false, nil
	}
	q.queue.Delete(store.Member{ID: id, Score: entry.PackedScore})
	q.mmr.Delete(store.Member{ID: id, Score: int64(entry.MMR)})
	delete(q.byID, id)

	return true, nil
}

func (s *Store) Clear(ctx context.Context, mode models.MatchMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.modes[mode] = newModeQueue()

	return nil
}
