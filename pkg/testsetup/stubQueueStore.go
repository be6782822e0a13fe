// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store"
)

var ErrInjected = errors.New("injected store failure")

// StubQueueStore wraps a real QueueStore and fails selected calls on demand.
// A failure counter set to n fails the next n calls of that operation, -1 fails all of them.
type StubQueueStore struct {
	store.QueueStore

	FailLength int64
	FailScan   int64
	FailSample int64
	FailScore  int64
	FailInsert int64
	FailRemove int64

	// FailInsertFor fails InsertAtomic only for the listed ids.
	FailInsertFor map[int64]bool

	mu      sync.Mutex
	inserts []int64
	removes []int64
}

var _ store.QueueStore = (*StubQueueStore)(nil)

func NewStubQueueStore(inner store.QueueStore) *StubQueueStore {
	return &StubQueueStore{QueueStore: inner}
}

func shouldFail(counter *int64) bool {
	for {
		current := atomic.LoadInt64(counter)
		if current == 0 {
			return false
		}
		if current < 0 {
			return true
		}
		if atomic.CompareAndSwapInt64(counter, current, current-1) {
			return true
		}
	}
}

func (s *StubQueueStore) Length(ctx context.Context, mode models.MatchMode) (int64, error) {
	if shouldFail(&s.FailLength) {
		return 0, ErrInjected
	}
	return s.QueueStore.Length(ctx, mode)
}

func (s *StubQueueStore) ScanByScoreAscending(ctx context.Context, mode models.MatchMode, rankStart, rankEnd int64) ([]store.Member, error) {
	if shouldFail(&s.FailScan) {
		return nil, ErrInjected
	}
	return s.QueueStore.ScanByScoreAscending(ctx, mode, rankStart, rankEnd)
}

func (s *StubQueueStore) SampleByScoreRange(ctx context.Context, mode models.MatchMode, minScore, maxScore int64, count int) ([]store.Member, error) {
	if shouldFail(&s.FailSample) {
		return nil, ErrInjected
	}
	return s.QueueStore.SampleByScoreRange(ctx, mode, minScore, maxScore, count)
}

func (s *StubQueueStore) ScoreOf(ctx context.Context, mode models.MatchMode, id int64) (int64, bool, error) {
	if shouldFail(&s.FailScore) {
		return 0, false, ErrInjected
	}
	return s.QueueStore.ScoreOf(ctx, mode, id)
}

func (s *StubQueueStore) InsertAtomic(ctx context.Context, mode models.MatchMode, entry models.QueueEntry) error {
	s.mu.Lock()
	s.inserts = append(s.inserts, entry.ID)
	failFor := s.FailInsertFor[entry.ID]
	s.mu.Unlock()

	if failFor || shouldFail(&s.FailInsert) {
		return ErrInjected
	}
	return s.QueueStore.InsertAtomic(ctx, mode, entry)
}

func (s *StubQueueStore) RemoveAtomic(ctx context.Context, mode models.MatchMode, id int64) (bool, error) {
	s.mu.Lock()
	s.removes = append(s.removes, id)
	s.mu.Unlock()

	if shouldFail(&s.FailRemove) {
		return false, ErrInjected
	}
	return s.QueueStore.RemoveAtomic(ctx, mode, id)
}

// Inserts returns the ids passed to InsertAtomic, in call order.
func (s *StubQueueStore) Inserts() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.inserts...)
}

func (s *StubQueueStore) Removes() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.removes...)
}
