// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package matchmaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	pie "github.com/elliotchance/pie/v2"
	. "github.com/onsi/gomega"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/balancer"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/score"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store/memstore"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/testsetup"
)

type matcherFixture struct {
	matcher  *Matcher
	store    store.QueueStore
	balancer *balancer.Balancer
	clock    *testsetup.FakeClock
}

func newMatcherFixture(mode models.MatchMode, wrap func(store.QueueStore) store.QueueStore) matcherFixture {
	clock := testsetup.NewFakeClock(time.Unix(1_700_000_000, 0))
	var queueStore store.QueueStore = memstore.New().WithRandom(func(int64) int64 { return 0 })
	if wrap != nil {
		queueStore = wrap(queueStore)
	}
	b := balancer.New(balancer.WithClock(clock.Now))
	m := New(mode, queueStore, b, WithCodec(score.Codec{Now: clock.Now}))

	return matcherFixture{matcher: m, store: queueStore, balancer: b, clock: clock}
}

func (f matcherFixture) submit(g testsetup.GomegaWithScope, mmrs ...int) []models.QueueEntry {
	entries := make([]models.QueueEntry, 0, len(mmrs))
	for i, mmr := range mmrs {
		entry, err := f.matcher.Submit(g.TestScope, models.QueueEntry{ID: int64(i + 1), MMR: mmr})
		g.Expect(err).ToNot(HaveOccurred())
		entries = append(entries, entry)
	}
	return entries
}

func (f matcherFixture) expectQueued(g testsetup.GomegaWithScope, entries []models.QueueEntry) {
	for _, entry := range entries {
		packed, ok, err := f.store.ScoreOf(context.Background(), f.matcher.Mode(), entry.ID)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeTrue(), "user %d should be queued", entry.ID)
		g.Expect(packed).To(Equal(entry.PackedScore), "user %d should keep its score", entry.ID)
	}
}

func TestMatcher_AttemptOnEmptyQueue(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Status).To(Equal(StatusEmpty))
	g.Expect(result.Matched()).To(BeFalse())
}

func TestMatcher_SubmitRejectsInvalidMMR(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)

	for _, mmr := range []int{-1, 0, 10000} {
		_, err := f.matcher.Submit(g.TestScope, models.QueueEntry{ID: 7, MMR: mmr})
		g.Expect(errors.Is(err, models.ErrInvalidMMR)).To(BeTrue(), "mmr %d", mmr)
	}

	length, err := f.store.Length(context.Background(), models.MatchModeOneVsOne)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(length).To(BeZero())
}

func TestMatcher_SubmitStampsPackedScore(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)

	entry, err := f.matcher.Submit(g.TestScope, models.QueueEntry{ID: 7, MMR: 1500})

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(entry.PackedScore).To(Equal(int64(1_700_000_000*10000 + 1500)))
	f.expectQueued(g, []models.QueueEntry{entry})

	status, err := f.matcher.Status(g.TestScope, 7)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(status).To(Equal(models.MatchStatusWaiting))
}

func TestMatcher_SubmitRejectsClaimedUser(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)
	g.Expect(f.matcher.Locks().TryLock(7)).To(BeTrue())

	_, err := f.matcher.Submit(g.TestScope, models.QueueEntry{ID: 7, MMR: 1500})

	g.Expect(errors.Is(err, models.ErrAlreadyQueued)).To(BeTrue())
	status, err := f.matcher.Status(g.TestScope, 7)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(status).To(Equal(models.MatchStatusPending))
}

func TestMatcher_MatchesOneVsOne(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)
	f.submit(g, 100, 120)
	f.clock.Advance(10 * time.Second)

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Matched()).To(BeTrue(), spew.Sdump(result))
	g.Expect(result.Owner.ID).To(Equal(int64(1)))
	g.Expect(pie.Map(result.Members, func(e models.QueueEntry) int64 { return e.ID })).To(ConsistOf(int64(1), int64(2)))
	for _, member := range result.Members {
		g.Expect(member.WaitTime).To(Equal(10))
	}

	length, err := f.store.Length(context.Background(), models.MatchModeOneVsOne)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(length).To(BeZero())
	g.Expect(f.matcher.Locks().Len()).To(BeZero())
	g.Expect(f.balancer.Samples()).To(Equal(2))
	g.Expect(f.balancer.AverageMatchTime()).To(Equal(10))
}

func TestMatcher_MatchesFullParty(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeFiveVsFive, nil)
	f.submit(g, 500, 510, 520, 530, 540, 550, 560, 570, 580, 590, 600)

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Matched()).To(BeTrue(), spew.Sdump(result))
	ids := pie.Map(result.Members, func(e models.QueueEntry) int64 { return e.ID })
	g.Expect(ids).To(HaveLen(10))
	g.Expect(pie.Unique(ids)).To(HaveLen(10))

	length, err := f.store.Length(context.Background(), models.MatchModeFiveVsFive)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(length).To(Equal(int64(1)))
	for _, id := range ids {
		_, ok, err := f.store.ScoreOf(context.Background(), models.MatchModeFiveVsFive, id)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeFalse(), "matched user %d must not stay queued", id)
	}
}

func TestMatcher_RollsBackIncompleteParty(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeTwoVsTwo, nil)
	entries := f.submit(g, 100, 110, 120)

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Status).To(Equal(StatusRolledBack))
	f.expectQueued(g, entries)
	g.Expect(f.matcher.Locks().Len()).To(BeZero())
	g.Expect(f.balancer.Samples()).To(BeZero())
}

func TestMatcher_RollsBackWhenNobodyIsInRange(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)
	// a fresh owner searches 650 around itself, tripled at most: [0, 2250]
	entries := f.submit(g, 100, 9000)

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Status).To(Equal(StatusRolledBack))
	g.Expect(result.Owner.ID).To(Equal(int64(1)))
	f.expectQueued(g, entries)
}

func TestMatcher_DropsTimedOutOwner(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)
	entries := f.submit(g, 100)
	f.clock.Advance(181 * time.Second)
	late, err := f.matcher.Submit(g.TestScope, models.QueueEntry{ID: 2, MMR: 100})
	g.Expect(err).ToNot(HaveOccurred())

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Status).To(Equal(StatusTimedOut))
	g.Expect(result.Owner.ID).To(Equal(entries[0].ID))
	g.Expect(result.Owner.WaitTime).To(Equal(181))

	_, ok, err := f.store.ScoreOf(context.Background(), models.MatchModeOneVsOne, entries[0].ID)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeFalse())
	f.expectQueued(g, []models.QueueEntry{late})
	g.Expect(f.matcher.Locks().Len()).To(BeZero())
}

func TestMatcher_RejectsCorruptedOwner(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)
	err := f.store.InsertAtomic(context.Background(), models.MatchModeOneVsOne, models.QueueEntry{
		ID: 9, MMR: 0, PackedScore: 1_700_000_000 * 10000,
	})
	g.Expect(err).ToNot(HaveOccurred())

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(errors.Is(err, models.ErrInvalidMMR)).To(BeTrue())
	g.Expect(models.IsInvariantViolation(err)).To(BeFalse())
	g.Expect(result.Status).To(Equal(StatusFailed))
	g.Expect(f.matcher.Locks().Len()).To(BeZero())
}

func TestMatcher_RollsBackOnStoreFailure(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	var stub *testsetup.StubQueueStore
	f := newMatcherFixture(models.MatchModeTwoVsTwo, func(inner store.QueueStore) store.QueueStore {
		stub = testsetup.NewStubQueueStore(inner)
		return stub
	})
	entries := f.submit(g, 100, 110, 120, 130)
	stub.FailSample = 1

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(errors.Is(err, models.ErrStoreTransaction)).To(BeTrue())
	g.Expect(errors.Is(err, testsetup.ErrInjected)).To(BeTrue())
	g.Expect(result.Status).To(Equal(StatusFailed))
	f.expectQueued(g, entries)
	g.Expect(f.matcher.Locks().Len()).To(BeZero())
}

func TestMatcher_ReleasesLocksWhenRequeueFails(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	var stub *testsetup.StubQueueStore
	f := newMatcherFixture(models.MatchModeTwoVsTwo, func(inner store.QueueStore) store.QueueStore {
		stub = testsetup.NewStubQueueStore(inner)
		return stub
	})
	entries := f.submit(g, 100, 110, 120)
	stub.FailInsertFor = map[int64]bool{entries[0].ID: true}

	result, err := f.matcher.Attempt(g.TestScope)

	g.Expect(errors.Is(err, models.ErrRollback)).To(BeTrue())
	g.Expect(result.Status).To(Equal(StatusFailed))
	f.expectQueued(g, entries[1:])
	g.Expect(f.matcher.Locks().Len()).To(BeZero())
}

type cancelOnSample struct {
	store.QueueStore
	cancel context.CancelFunc
}

func (c cancelOnSample) SampleByScoreRange(ctx context.Context, mode models.MatchMode, minScore, maxScore int64, count int) ([]store.Member, error) {
	c.cancel()
	return c.QueueStore.SampleByScoreRange(ctx, mode, minScore, maxScore, count)
}

func TestMatcher_RollbackSurvivesCancellation(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newMatcherFixture(models.MatchModeTwoVsTwo, func(inner store.QueueStore) store.QueueStore {
		return cancelOnSample{QueueStore: inner, cancel: cancel}
	})
	entries := f.submit(g, 100, 110, 120, 130)

	result, err := f.matcher.Attempt(g.TestScope.WithContext(ctx))

	g.Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	g.Expect(result.Status).To(Equal(StatusFailed))
	f.expectQueued(g, entries)
	g.Expect(f.matcher.Locks().Len()).To(BeZero())
}

func TestMatcher_Cancel(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	f := newMatcherFixture(models.MatchModeOneVsOne, nil)
	f.submit(g, 100, 200)

	removed, err := f.matcher.Cancel(g.TestScope, 1)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(removed).To(BeTrue())

	removed, err = f.matcher.Cancel(g.TestScope, 1)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(removed).To(BeFalse())

	g.Expect(f.matcher.Locks().TryLock(2)).To(BeTrue())
	removed, err = f.matcher.Cancel(g.TestScope, 2)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(removed).To(BeFalse(), "a claimed user cannot be cancelled")

	status, err := f.matcher.Status(g.TestScope, 1)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(status).To(Equal(models.MatchStatusNone))
}

func TestMatcher_ConcurrentAttemptsNeverShareUsers(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	const users = 200
	queueStore := memstore.New()
	b := balancer.New()
	m := New(models.MatchModeTwoVsTwo, queueStore, b)

	var submitted []models.QueueEntry
	for i := 0; i < users; i++ {
		entry, err := m.Submit(g.TestScope, models.QueueEntry{ID: int64(i), MMR: 1 + i%100})
		g.Expect(err).ToNot(HaveOccurred())
		submitted = append(submitted, entry)
	}

	var (
		mu      sync.Mutex
		matches [][]int64
		wg      sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				result, err := m.Attempt(testsetup.NewTestScope())
				if err != nil {
					t.Errorf("attempt failed: %s", err)
					return
				}
				if result.Status == StatusEmpty {
					return
				}
				if result.Matched() {
					mu.Lock()
					matches = append(matches, pie.Map(result.Members, func(e models.QueueEntry) int64 { return e.ID }))
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool, users)
	for _, match := range matches {
		g.Expect(match).To(HaveLen(4))
		for _, id := range match {
			g.Expect(seen[id]).To(BeFalse(), "user %d matched twice:\n%s", id, spew.Sdump(matches))
			seen[id] = true
		}
	}

	length, err := queueStore.Length(context.Background(), models.MatchModeTwoVsTwo)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(int(length) + len(seen)).To(Equal(len(submitted)))
	g.Expect(m.Locks().Len()).To(BeZero())
}
