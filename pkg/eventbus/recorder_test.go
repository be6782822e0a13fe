// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package eventbus

import (
	"fmt"
	"sync"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// recorder collects received events as "increase:Mode" and "decrease:Mode:count".
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) OnIncrease(mode models.MatchMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("increase:%s", mode))
}

func (r *recorder) OnDecrease(mode models.MatchMode, matchedCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("decrease:%s:%d", mode, matchedCount))
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
