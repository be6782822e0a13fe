// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"time"

	"github.com/elliotchance/pie/v2"
)

// QueueEntry is one waiting user. PackedScore = arrival * 10000 + MMR, and WaitTime is derived from it.
type QueueEntry struct {
	ID          int64 `json:"id"`
	MMR         int   `json:"mmr"`
	WaitTime    int   `json:"waitTime"`
	PackedScore int64 `json:"packedScore"`
}

// MatchResult is a committed match.
type MatchResult struct {
	MatchID   string       `json:"matchID"`
	Mode      MatchMode    `json:"mode"`
	Members   []QueueEntry `json:"members"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (r MatchResult) UserIDs() []int64 {
	return pie.Map(r.Members, func(member QueueEntry) int64 { return member.ID })
}
