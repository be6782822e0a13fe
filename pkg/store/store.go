// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package store defines the ordered storage that backs every mode's match queue.
//
// Each mode keeps two orderings of the same users: the queue ordering, sorted by
// packed score (oldest arrival first), and the score ordering, sorted by MMR.
// Implementations must apply every multi-key write as one transaction so no reader
// observes a user present in one ordering but not the other.
package store

import (
	"context"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// Member is one element of an ordering. Score is the packed score in the queue
// ordering and the MMR in the score ordering.
type Member struct {
	ID    int64
	Score int64
}

type QueueStore interface {
	// Length returns the number of users queued in mode.
	Length(ctx context.Context, mode models.MatchMode) (int64, error)

	// ScanByScoreAscending returns queue members ranked [rankStart, rankEnd], inclusive, oldest first.
	ScanByScoreAscending(ctx context.Context, mode models.MatchMode, rankStart, rankEnd int64) ([]Member, error)

	// SampleByScoreRange returns up to count members whose MMR is within [minScore, maxScore],
	// starting at a random offset inside the range.
	SampleByScoreRange(ctx context.Context, mode models.MatchMode, minScore, maxScore int64, count int) ([]Member, error)

	// ScoreOf returns the packed score of id, ok is false when id is not queued.
	ScoreOf(ctx context.Context, mode models.MatchMode, id int64) (score int64, ok bool, err error)

	// InsertAtomic writes entry into both orderings in one transaction.
	InsertAtomic(ctx context.Context, mode models.MatchMode, entry models.QueueEntry) error

	// RemoveAtomic removes id from both orderings in one transaction.
	// It returns false when id was not queued.
	RemoveAtomic(ctx context.Context, mode models.MatchMode, id int64) (bool, error)

	// Clear drops every user queued in mode.
	Clear(ctx context.Context, mode models.MatchMode) error
}

// SampleOffset picks where a sample of count members starts inside a range holding total members.
func SampleOffset(total int64, count int, intn func(int64) int64) int64 {
	if total <= int64(count) {
		return 0
	}
	return intn(total - int64(count))
}
