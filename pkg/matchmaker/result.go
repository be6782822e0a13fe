// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package matchmaker

import (
	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// Status is the terminal state of one Attempt.
type Status int

const (
	// StatusEmpty means the queue held nobody.
	StatusEmpty Status = iota
	// StatusNoOwner means every scanned user was already claimed elsewhere.
	StatusNoOwner
	// StatusTimedOut means the owner waited past the match timeout and was dropped.
	StatusTimedOut
	// StatusRolledBack means the party could not be filled and every claimed user was requeued.
	StatusRolledBack
	StatusMatched
	// StatusFailed accompanies a non-nil error from Attempt.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return constants.OutcomeEmpty
	case StatusNoOwner:
		return constants.OutcomeNoOwner
	case StatusTimedOut:
		return constants.OutcomeTimedOut
	case StatusRolledBack:
		return constants.OutcomeRolledBack
	case StatusMatched:
		return constants.OutcomeMatched
	default:
		return constants.OutcomeError
	}
}

// Result describes how an Attempt ended.
// Owner is set from StatusTimedOut onward, Members only for StatusMatched and includes the owner.
type Result struct {
	Status  Status
	Owner   models.QueueEntry
	Members []models.QueueEntry
}

func (r Result) Matched() bool {
	return r.Status == StatusMatched
}
