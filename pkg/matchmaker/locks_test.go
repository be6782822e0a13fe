// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package matchmaker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

func TestUserLocks(t *testing.T) {
	locks := NewUserLocks()

	require.True(t, locks.TryLock(1))
	assert.False(t, locks.TryLock(1), "second claim of the same user")
	assert.True(t, locks.IsLocked(1))
	assert.Equal(t, 1, locks.Len())

	require.NoError(t, locks.Unlock(1))
	assert.False(t, locks.IsLocked(1))
	assert.True(t, locks.TryLock(1), "released user can be claimed again")
}

func TestUserLocks_UnlockNotHeldIsInvariantViolation(t *testing.T) {
	locks := NewUserLocks()

	err := locks.Unlock(42)

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrLockNotHeld))
	assert.True(t, models.IsInvariantViolation(err))
}

func TestUserLocks_OneWinnerPerUser(t *testing.T) {
	locks := NewUserLocks()

	var (
		winners atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if locks.TryLock(7) {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusEmpty, "empty"},
		{StatusNoOwner, "no_owner"},
		{StatusTimedOut, "timed_out"},
		{StatusRolledBack, "rolled_back"},
		{StatusMatched, "matched"},
		{StatusFailed, "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}
