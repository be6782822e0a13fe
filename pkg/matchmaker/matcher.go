// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	pie "github.com/elliotchance/pie/v2"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/balancer"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/score"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store"
)

type Option func(*Matcher)

// WithRetryCount sets both the number of owner scan batches and the number of search expansions.
func WithRetryCount(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.retryCount = n
		}
	}
}

func WithBatchSize(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

func WithMatchTimeout(d time.Duration) Option {
	return func(m *Matcher) {
		if d > 0 {
			m.matchTimeout = d
		}
	}
}

func WithCodec(codec score.Codec) Option {
	return func(m *Matcher) {
		m.codec = codec
	}
}

// Matcher implements QueueMatcher for one mode on top of a QueueStore.
type Matcher struct {
	mode      models.MatchMode
	partySize int
	store     store.QueueStore
	balancer  *balancer.Balancer
	locks     *UserLocks
	pool      *models.Pool

	codec        score.Codec
	retryCount   int
	batchSize    int
	matchTimeout time.Duration
}

var _ QueueMatcher = (*Matcher)(nil)

func New(mode models.MatchMode, queueStore store.QueueStore, b *balancer.Balancer, opts ...Option) *Matcher {
	m := &Matcher{
		mode:         mode,
		partySize:    mode.PartySize(),
		store:        queueStore,
		balancer:     b,
		locks:        NewUserLocks(),
		pool:         models.NewPool(mode.PartySize()),
		codec:        score.Codec{Now: time.Now},
		retryCount:   constants.DefaultRetryCount,
		batchSize:    constants.DefaultQueueBatchSize,
		matchTimeout: constants.DefaultMatchTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Matcher) Mode() models.MatchMode {
	return m.mode
}

// Locks exposes the claim set of this mode.
func (m *Matcher) Locks() *UserLocks {
	return m.locks
}

func (m *Matcher) Submit(rootScope *envelope.Scope, entry models.QueueEntry) (models.QueueEntry, error) {
	scope := rootScope.NewChildScope("Matcher.Submit")
	defer scope.Finish()
	scope.SetAttributes(envelope.ModeTag, m.mode)
	scope.SetAttributes(envelope.UserIDTag, entry.ID)

	if entry.MMR <= constants.MinMMR || entry.MMR > constants.MaxMMR {
		return entry, fmt.Errorf("%w: user %d has mmr %d", models.ErrInvalidMMR, entry.ID, entry.MMR)
	}
	if m.locks.IsLocked(entry.ID) {
		return entry, fmt.Errorf("%w: user %d is being matched in %s", models.ErrAlreadyQueued, entry.ID, m.mode)
	}

	entry.PackedScore = m.codec.Encode(entry.MMR)
	entry.WaitTime = 0
	if err := m.store.InsertAtomic(scope.Ctx, m.mode, entry); err != nil {
		return entry, storeError(fmt.Sprintf("queue user %d", entry.ID), err)
	}

	return entry, nil
}

func (m *Matcher) Cancel(rootScope *envelope.Scope, userID int64) (bool, error) {
	scope := rootScope.NewChildScope("Matcher.Cancel")
	defer scope.Finish()
	scope.SetAttributes(envelope.ModeTag, m.mode)
	scope.SetAttributes(envelope.UserIDTag, userID)

	if !m.locks.TryLock(userID) {
		return false, nil
	}
	removed, err := m.store.RemoveAtomic(scope.Ctx, m.mode, userID)
	unlockErr := m.locks.Unlock(userID)
	if err != nil {
		return false, errors.Join(storeError(fmt.Sprintf("cancel user %d", userID), err), unlockErr)
	}

	return removed, unlockErr
}

func (m *Matcher) Status(rootScope *envelope.Scope, userID int64) (models.MatchStatus, error) {
	if m.locks.IsLocked(userID) {
		return models.MatchStatusPending, nil
	}
	_, queued, err := m.store.ScoreOf(rootScope.Ctx, m.mode, userID)
	if err != nil {
		return models.MatchStatusNone, err
	}
	if queued {
		return models.MatchStatusWaiting, nil
	}

	return models.MatchStatusNone, nil
}

func (m *Matcher) Attempt(rootScope *envelope.Scope) (Result, error) {
	scope := rootScope.NewChildScope("Matcher.Attempt")
	defer scope.Finish()
	scope.SetAttributes(envelope.ModeTag, m.mode)
	scope.SetAttributes(envelope.PartySizeTag, m.partySize)

	result, err := m.attempt(scope)
	scope.SetAttributes(envelope.OutcomeTag, result.Status)

	return result, err
}

func (m *Matcher) attempt(scope *envelope.Scope) (Result, error) {
	length, err := m.store.Length(scope.Ctx, m.mode)
	if err != nil {
		return Result{Status: StatusFailed}, fmt.Errorf("read queue length: %w", err)
	}
	if length == 0 {
		return Result{Status: StatusEmpty}, nil
	}

	owner, claimed, err := m.claimOwner(scope)
	if err != nil {
		return Result{Status: StatusFailed}, err
	}
	if !claimed {
		return Result{Status: StatusNoOwner}, nil
	}
	scope = scope.WithField("ownerID", owner.ID)

	if owner.MMR <= constants.MinMMR {
		invalid := fmt.Errorf("%w: owner %d decoded to mmr %d", models.ErrInvalidMMR, owner.ID, owner.MMR)
		return Result{Status: StatusFailed, Owner: owner}, errors.Join(invalid, m.locks.Unlock(owner.ID))
	}
	if time.Duration(owner.WaitTime)*time.Second > m.matchTimeout {
		scope.Log.Debugf("owner waited %ds, dropping it", owner.WaitTime)
		return Result{Status: StatusTimedOut, Owner: owner}, m.locks.Unlock(owner.ID)
	}

	selected := m.pool.GetEntries()
	defer func() { m.pool.PutEntries(selected) }()

	selected, err = m.search(scope, owner, selected)
	selected = append(selected, owner)
	if err != nil {
		return Result{Status: StatusFailed, Owner: owner}, errors.Join(err, m.rollback(scope, selected))
	}

	if len(selected) != m.partySize {
		scope.Log.Debugf("found %d of %d users, rolling back", len(selected), m.partySize)
		if rollbackErr := m.rollback(scope, selected); rollbackErr != nil {
			return Result{Status: StatusFailed, Owner: owner}, rollbackErr
		}
		return Result{Status: StatusRolledBack, Owner: owner}, nil
	}

	return m.commit(owner, selected)
}

// claimOwner walks the queue oldest first, batch by batch, and claims the first free user.
func (m *Matcher) claimOwner(scope *envelope.Scope) (models.QueueEntry, bool, error) {
	for batch := 0; batch < m.retryCount; batch++ {
		start := int64(batch * m.batchSize)
		members, err := m.store.ScanByScoreAscending(scope.Ctx, m.mode, start, start+int64(m.batchSize)-1)
		if err != nil {
			return models.QueueEntry{}, false, storeError("scan queue", err)
		}
		if len(members) == 0 {
			break
		}
		for _, member := range members {
			entry, claimed, err := m.claim(scope.Ctx, member.ID)
			if err != nil {
				return models.QueueEntry{}, false, err
			}
			if claimed {
				return entry, true, nil
			}
		}
	}

	return models.QueueEntry{}, false, nil
}

// search widens the MMR window around owner until the party is full or the retries run out.
// Members claimed before an error are returned alongside it so the caller can roll them back.
func (m *Matcher) search(scope *envelope.Scope, owner models.QueueEntry, selected []models.QueueEntry) ([]models.QueueEntry, error) {
	needed := m.partySize - 1

	for try := 1; try <= m.retryCount && len(selected) < needed; try++ {
		tolerance := m.balancer.AdjustmentFor(owner.WaitTime)
		minScore := mathutil.Max(constants.MinMMR, (owner.MMR-tolerance)*try)
		maxScore := mathutil.Min(constants.MaxMMR, (owner.MMR+tolerance)*try)

		candidates, err := m.store.SampleByScoreRange(scope.Ctx, m.mode, int64(minScore), int64(maxScore), needed-len(selected))
		if err != nil {
			return selected, storeError("sample candidates", err)
		}

		for _, candidate := range candidates {
			if candidate.ID == owner.ID || pie.FindFirstUsing(selected, func(e models.QueueEntry) bool { return e.ID == candidate.ID }) >= 0 {
				continue
			}
			entry, claimed, err := m.claim(scope.Ctx, candidate.ID)
			if err != nil {
				return selected, err
			}
			if !claimed {
				continue
			}
			if entry.MMR <= constants.MinMMR {
				// corrupted entry, leave it out of the queue
				scope.Log.Warnf("dropping user %d with undecodable score %d", entry.ID, entry.PackedScore)
				if err := m.locks.Unlock(entry.ID); err != nil {
					return selected, err
				}
				continue
			}
			selected = append(selected, entry)
			if len(selected) == needed {
				break
			}
		}
	}

	return selected, nil
}

// claim locks id then removes it from the store, reading back its packed score first.
// A user already locked, or no longer queued, is not claimed and leaves no lock behind.
func (m *Matcher) claim(ctx context.Context, id int64) (models.QueueEntry, bool, error) {
	if !m.locks.TryLock(id) {
		return models.QueueEntry{}, false, nil
	}

	packed, queued, err := m.store.ScoreOf(ctx, m.mode, id)
	if err != nil || !queued {
		return models.QueueEntry{}, false, errors.Join(wrapIf(err, "read score of user %d", id), m.locks.Unlock(id))
	}
	removed, err := m.store.RemoveAtomic(ctx, m.mode, id)
	if err != nil || !removed {
		return models.QueueEntry{}, false, errors.Join(wrapIf(err, "claim user %d", id), m.locks.Unlock(id))
	}

	mmr, waitTime := m.codec.Decode(packed)
	return models.QueueEntry{ID: id, MMR: mmr, WaitTime: waitTime, PackedScore: packed}, true, nil
}

// rollback requeues every entry with its original packed score, then releases its lock.
// A cancelled attempt still rolls back fully.
func (m *Matcher) rollback(scope *envelope.Scope, entries []models.QueueEntry) error {
	ctx := context.WithoutCancel(scope.Ctx)

	var errs []error
	for _, entry := range entries {
		if err := m.store.InsertAtomic(ctx, m.mode, entry); err != nil {
			scope.Log.Errorf("user %d lost during rollback: %s", entry.ID, err)
			errs = append(errs, fmt.Errorf("%w: user %d: %w", models.ErrRollback, entry.ID, err))
		}
		if err := m.locks.Unlock(entry.ID); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *Matcher) commit(owner models.QueueEntry, selected []models.QueueEntry) (Result, error) {
	if len(selected) != m.partySize {
		return Result{Status: StatusFailed, Owner: owner},
			fmt.Errorf("%w: %d members for party size %d", models.ErrPartySize, len(selected), m.partySize)
	}

	var errs []error
	for _, member := range selected {
		if err := m.locks.Unlock(member.ID); err != nil {
			errs = append(errs, err)
		}
		m.balancer.AddMatchTime(member.WaitTime)
	}

	members := make([]models.QueueEntry, len(selected))
	copy(members, selected)

	return Result{Status: StatusMatched, Owner: owner, Members: members}, errors.Join(errs...)
}

func storeError(action string, err error) error {
	if errors.Is(err, models.ErrStoreTransaction) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", action, err)
	}
	return fmt.Errorf("%s: %w: %w", action, models.ErrStoreTransaction, err)
}

func wrapIf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return storeError(fmt.Sprintf(format, args...), err)
}
