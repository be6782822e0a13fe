// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"gopkg.in/typ.v4/sync2"
)

// Pool reusable objects to reduce garbage collector
type Pool struct {
	Entries *sync2.Pool[[]QueueEntry]
}

func NewPool(capacity int) *Pool {
	return &Pool{
		Entries: &sync2.Pool[[]QueueEntry]{
			New: func() []QueueEntry {
				return make([]QueueEntry, 0, capacity)
			},
		},
	}
}

// GetEntries returns an empty slice from the pool.
func (p *Pool) GetEntries() []QueueEntry {
	return p.Entries.Get()[:0]
}

func (p *Pool) PutEntries(entries []QueueEntry) {
	p.Entries.Put(entries[:0])
}
