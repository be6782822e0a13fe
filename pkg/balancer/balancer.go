// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package balancer derives the MMR search tolerance of a mode from how long its
// recent matches took to form.
package balancer

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
)

type Option func(*Balancer)

func WithWindowSize(size int) Option {
	return func(b *Balancer) {
		if size > 0 {
			b.window = make([]int, size)
		}
	}
}

// WithResetThreshold sets how long the window may go without a new sample before it is considered stale.
func WithResetThreshold(d time.Duration) Option {
	return func(b *Balancer) {
		b.resetThreshold = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Balancer) {
		if now != nil {
			b.now = now
		}
	}
}

// Balancer keeps the last W match times of a mode in a ring buffer.
// sum always equals the total of the occupied slots.
type Balancer struct {
	mu             sync.Mutex
	window         []int
	cursor         int
	filled         int
	sum            int
	lastUpdate     time.Time
	resetThreshold time.Duration
	now            func() time.Time
}

func New(opts ...Option) *Balancer {
	b := &Balancer{
		window:         make([]int, constants.DefaultBalancerWindowSize),
		resetThreshold: constants.DefaultBalancerResetWindow,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// AddMatchTime records how many seconds a matched user waited.
func (b *Balancer) AddMatchTime(seconds int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.filled < len(b.window) {
		b.window[b.filled] = seconds
		b.filled++
	} else {
		b.sum -= b.window[b.cursor]
		b.window[b.cursor] = seconds
		b.cursor = (b.cursor + 1) % len(b.window)
	}
	b.sum += seconds
	b.lastUpdate = b.now()
}

// AverageMatchTime returns the integer mean of the recorded samples.
// A window idle for longer than the reset threshold is cleared and reports 0.
func (b *Balancer) AverageMatchTime() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.filled == 0 {
		return 0
	}
	if b.now().Sub(b.lastUpdate) > b.resetThreshold {
		b.reset()
		return 0
	}

	return b.sum / b.filled
}

// Samples returns the number of occupied slots.
func (b *Balancer) Samples() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.filled
}

func (b *Balancer) reset() {
	clear(b.window)
	b.cursor = 0
	b.filled = 0
	b.sum = 0
}

// AdjustmentFor returns the half width, in MMR points, of the window searched
// around a user who waited waitTime seconds.
func (b *Balancer) AdjustmentFor(waitTime int) int {
	return processWeight(b.AverageMatchTime()) + waitWeight(waitTime)
}

func processWeight(average int) int {
	switch {
	case average > 10 && average <= 30:
		return constants.Weight / 10
	case average > 30 && average <= 60:
		return constants.Weight / 5
	default:
		return constants.Weight / 4
	}
}

// waitWeight gives short waits (<= 5s) the same widest tier as waits over 40s.
func waitWeight(waitTime int) int {
	switch {
	case waitTime > 5 && waitTime <= 15:
		return constants.Weight / 10
	case waitTime > 15 && waitTime <= 30:
		return constants.Weight / 5
	case waitTime > 30 && waitTime <= 40:
		return constants.Weight * 3 / 10
	default:
		return constants.Weight * 2 / 5
	}
}
