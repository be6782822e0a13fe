// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package score packs a user's arrival time and MMR into one sortable key.
//
//	score = arrival * 10000 + mmr
//
// e.g. mmr 1500 queued at unix second 1000 is 10001500.
package score

import (
	"time"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
)

// Codec encodes and decodes packed scores against a clock.
type Codec struct {
	Now func() time.Time
}

var defaultCodec = Codec{Now: time.Now}

func (c Codec) now() int64 {
	if c.Now == nil {
		return time.Now().Unix()
	}
	return c.Now().Unix()
}

// Encode packs the current time with mmr. Callers validate mmr first.
func (c Codec) Encode(mmr int) int64 {
	return c.now()*constants.MMRMultiplier + int64(mmr)
}

// Decode unpacks mmr and the seconds waited since arrival.
// A score whose low digits are not a valid mmr decodes to (0, 0).
func (c Codec) Decode(score int64) (mmr int, waitTime int) {
	low := score % constants.MMRMultiplier
	if low < constants.MinMMR || low > constants.MaxMMR {
		return 0, 0
	}

	waitTime = int(c.now() - score/constants.MMRMultiplier)
	if waitTime < 0 {
		waitTime = 0
	}

	return int(low), waitTime
}

func Arrival(score int64) int64 {
	return score / constants.MMRMultiplier
}

func Encode(mmr int) int64 {
	return defaultCodec.Encode(mmr)
}

func Decode(score int64) (mmr int, waitTime int) {
	return defaultCodec.Decode(score)
}
