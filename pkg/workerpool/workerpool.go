// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package workerpool runs a bounded, cooldown gated set of cancellable workers.
package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/common"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
)

type Option func(*Pool)

func WithBounds(minWorkers, maxWorkers int) Option {
	return func(p *Pool) {
		p.minWorkers = minWorkers
		p.maxWorkers = maxWorkers
	}
}

// WithCooldown sets the minimum interval between two resizes.
func WithCooldown(d time.Duration) Option {
	return func(p *Pool) {
		p.cooldown = d
	}
}

// WithStopTimeout bounds how long DecreaseTask waits for the cancelled worker.
func WithStopTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.stopTimeout = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

type slot struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *slot) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Pool owns the workers of one mode. Slots are kept oldest first.
type Pool struct {
	name string
	log  *logrus.Entry

	mu         sync.Mutex
	slots      []*slot
	lastResize time.Time
	resizing   bool
	closed     bool

	minWorkers  int
	maxWorkers  int
	cooldown    time.Duration
	stopTimeout time.Duration
	now         func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	shutdown sync.Once
	stopped  chan struct{}
}

func New(name string, opts ...Option) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:        name,
		log:         logrus.WithField("pool", name),
		minWorkers:  constants.DefaultMinWorkers,
		maxWorkers:  constants.DefaultMaxWorkers,
		cooldown:    constants.DefaultWorkerCooldown,
		stopTimeout: constants.DefaultWorkerStopTimeout,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Pool) Name() string {
	return p.name
}

// Count returns the number of running workers, including one being stopped.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneLocked()
	return len(p.slots)
}

// IncreaseTask starts a worker running action, unless the pool is full or a resize happened within the cooldown.
// action must return once its context is cancelled.
func (p *Pool) IncreaseTask(action func(ctx context.Context)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneLocked()
	if p.closed || p.resizing || len(p.slots) >= p.maxWorkers || p.coolingDownLocked() {
		return false
	}

	ctx, cancel := context.WithCancel(p.ctx)
	s := &slot{id: common.GenerateUUID(), cancel: cancel, done: make(chan struct{})}
	go p.run(ctx, s, action)

	p.slots = append(p.slots, s)
	p.lastResize = p.now()
	p.log.WithField("workerID", s.id).Debugf("worker started, %d running", len(p.slots))

	return true
}

// DecreaseTask cancels the oldest worker and waits for it to return.
// When the worker does not stop within the stop timeout its slot is kept and false is returned.
func (p *Pool) DecreaseTask() bool {
	p.mu.Lock()
	p.pruneLocked()
	if p.closed || p.resizing || len(p.slots) <= p.minWorkers || p.coolingDownLocked() {
		p.mu.Unlock()
		return false
	}
	oldest := p.slots[0]
	p.resizing = true
	p.mu.Unlock()

	oldest.cancel()
	stopped := true
	timer := time.NewTimer(p.stopTimeout)
	select {
	case <-oldest.done:
	case <-timer.C:
		stopped = false
	}
	timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.resizing = false

	if !stopped {
		p.log.WithField("workerID", oldest.id).Warnf("worker did not stop within %s", p.stopTimeout)
		return false
	}
	p.removeLocked(oldest)
	p.lastResize = p.now()
	p.log.WithField("workerID", oldest.id).Debugf("worker stopped, %d running", len(p.slots))

	return true
}

// Shutdown cancels every worker and waits for all of them. Later calls wait for the first one to finish.
func (p *Pool) Shutdown() {
	p.shutdown.Do(func() {
		p.mu.Lock()
		p.closed = true
		slots := p.slots
		p.slots = nil
		p.mu.Unlock()

		p.cancel()
		for _, s := range slots {
			<-s.done
		}
		close(p.stopped)
	})
	<-p.stopped
}

func (p *Pool) run(ctx context.Context, s *slot, action func(ctx context.Context)) {
	defer close(s.done)
	defer s.cancel()
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("workerID", s.id).Errorf("worker panicked: %v", r)
		}
	}()

	action(ctx)
}

func (p *Pool) coolingDownLocked() bool {
	return !p.lastResize.IsZero() && p.now().Sub(p.lastResize) < p.cooldown
}

// pruneLocked drops slots whose worker already returned on its own.
func (p *Pool) pruneLocked() {
	if p.resizing {
		return
	}
	kept := p.slots[:0]
	for _, s := range p.slots {
		if !s.finished() {
			kept = append(kept, s)
		}
	}
	clear(p.slots[len(kept):])
	p.slots = kept
}

func (p *Pool) removeLocked(target *slot) {
	for i, s := range p.slots {
		if s == target {
			p.slots = append(p.slots[:i], p.slots[i+1:]...)
			return
		}
	}
}
