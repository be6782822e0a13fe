// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMMR    = errors.New("mmr must be within [1, 9999]")
	ErrUnknownMode   = errors.New("unknown match mode")
	ErrAlreadyQueued = errors.New("user is already queued")

	ErrStoreTransaction = errors.New("queue store transaction failed")
	ErrRollback         = errors.New("rollback could not reinsert every member")

	ErrInvariantViolation = errors.New("matching invariant violated")
	ErrLockNotHeld        = fmt.Errorf("%w: releasing a user lock that is not held", ErrInvariantViolation)
	ErrPartySize          = fmt.Errorf("%w: committing a match with the wrong member count", ErrInvariantViolation)
)

var errorCodeMap = map[error]int{
	ErrInvalidMMR:         510201,
	ErrUnknownMode:        510202,
	ErrAlreadyQueued:      510203,
	ErrStoreTransaction:   510210,
	ErrRollback:           510211,
	ErrInvariantViolation: 510220,
}

// ErrorCode returns a code for the error, matching wrapped errors too.
// It returns 20002 if the error is not registered in the map.
func ErrorCode(err error) int {
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	for known, code := range errorCodeMap {
		if errors.Is(err, known) {
			return code
		}
	}
	return 20002
}

// IsInvariantViolation reports whether err signals a bookkeeping bug in the matching protocol.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
