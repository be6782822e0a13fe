// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package matchmaker forms fixed size matches out of one mode's queue.
package matchmaker

import (
	"github.com/AccelByte/extend-queue-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

/*
QueueMatcher is the matching engine of a single mode.

Attempt runs one matching pass: it claims the oldest claimable user as the owner,
searches the MMR ordering around the owner for the rest of the party, then either
commits the whole party or puts every claimed user back. A claimed user is locked
and removed from the queue store until the attempt ends, so concurrent attempts in
the same process never share a user.

Submit queues a user, Cancel takes a waiting user out of the queue and Status
reports where a user currently is.
*/
type QueueMatcher interface {
	// Attempt runs one matching pass. When the pass is aborted the error is set and
	// Result.Status is StatusFailed. A committed match whose locks were not all held
	// comes back as StatusMatched together with an invariant violation.
	Attempt(scope *envelope.Scope) (Result, error)

	// Submit validates the entry, stamps its packed score and queues it.
	Submit(scope *envelope.Scope, entry models.QueueEntry) (models.QueueEntry, error)

	// Cancel removes a waiting user. It returns false when the user is not queued
	// or is currently claimed by an attempt.
	Cancel(scope *envelope.Scope, userID int64) (bool, error)

	Status(scope *envelope.Scope, userID int64) (models.MatchStatus, error)

	Mode() models.MatchMode
}
