// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package matchmaker

import (
	"fmt"
	"sync"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// UserLocks is the set of user ids claimed by in-flight attempts of one mode.
type UserLocks struct {
	mu    sync.Mutex
	users map[int64]struct{}
}

func NewUserLocks() *UserLocks {
	return &UserLocks{users: make(map[int64]struct{})}
}

// TryLock claims id, returning false when it is already claimed.
func (l *UserLocks) TryLock(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.users[id]; held {
		return false
	}
	l.users[id] = struct{}{}

	return true
}

func (l *UserLocks) Unlock(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.users[id]; !held {
		return fmt.Errorf("%w: user %d", models.ErrLockNotHeld, id)
	}
	delete(l.users, id)

	return nil
}

func (l *UserLocks) IsLocked(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, held := l.users[id]
	return held
}

func (l *UserLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.users)
}
