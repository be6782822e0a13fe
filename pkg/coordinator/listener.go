// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package coordinator

import (
	"github.com/AccelByte/extend-queue-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// Listener receives the outcome signals of matching attempts. Calls come from worker goroutines.
type Listener interface {
	OnMatchSuccess(scope *envelope.Scope, result models.MatchResult)

	// OnMatchFailure is called for an owner that waited past the match timeout. The owner is no longer queued.
	OnMatchFailure(scope *envelope.Scope, mode models.MatchMode, owner models.QueueEntry)
}

type logListener struct{}

func (logListener) OnMatchSuccess(scope *envelope.Scope, result models.MatchResult) {
	scope.Log.WithField("matchID", result.MatchID).Infof("match found in %s: %v", result.Mode, result.UserIDs())
}

func (logListener) OnMatchFailure(scope *envelope.Scope, mode models.MatchMode, owner models.QueueEntry) {
	scope.Log.WithField("userID", owner.ID).Infof("no match in %s after %ds, user dropped", mode, owner.WaitTime)
}
