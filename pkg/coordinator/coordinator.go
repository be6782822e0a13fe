// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package coordinator owns the matcher, balancer and worker pool of every active
// mode, resizes the pools from queue pressure and relays queue events over the bus.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/balancer"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/config"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/eventbus"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/matchmaker"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/score"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/store"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/workerpool"
)

var ErrAlreadyStarted = errors.New("coordinator already started")

// submitStripes is the number of mutexes serializing Submit per user id.
const submitStripes = 64

type Option func(*Coordinator)

func WithMetrics(m metrics.QueueMetrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithListener(l Listener) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.listener = l
		}
	}
}

// WithClock replaces the wall clock used for scores, balancers, cooldowns and match ids.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// modeState is everything the coordinator keeps for one active mode.
type modeState struct {
	mode     models.MatchMode
	matcher  *matchmaker.Matcher
	balancer *balancer.Balancer
	pool     *workerpool.Pool
}

// nudgeKind is a set of requested passes; requests for one mode merge until the control loop takes them.
type nudgeKind uint8

const (
	nudgeScaleUp nudgeKind = 1 << iota
	nudgeScaleDown
)

type Coordinator struct {
	cfg      *config.Config
	store    store.QueueStore
	bus      eventbus.Bus
	metrics  metrics.QueueMetrics
	listener Listener
	now      func() time.Time

	modes map[models.MatchMode]*modeState
	order []models.MatchMode

	// newWorker builds the body every pool slot runs.
	newWorker func(st *modeState) func(ctx context.Context)

	nudgeMu sync.Mutex
	pending map[models.MatchMode]nudgeKind
	wake    chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	healthMu      sync.Mutex
	lastViolation error

	submitMu [submitStripes]sync.Mutex
}

// New builds one matcher, balancer and worker pool per mode of cfg. Nothing runs until Start.
func New(cfg *config.Config, queueStore store.QueueStore, bus eventbus.Bus, opts ...Option) (*Coordinator, error) {
	modes, err := cfg.Modes()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:      cfg,
		store:    queueStore,
		bus:      bus,
		metrics:  metrics.NewMetrics(prometheus.NewRegistry()),
		listener: logListener{},
		now:      time.Now,
		modes:    make(map[models.MatchMode]*modeState, len(modes)),
		order:    modes,
		pending:  make(map[models.MatchMode]nudgeKind, len(modes)),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.newWorker = c.worker

	for _, mode := range modes {
		b := balancer.New(
			balancer.WithWindowSize(cfg.BalancerWindowSize),
			balancer.WithResetThreshold(cfg.BalancerResetTimeout),
			balancer.WithClock(c.now),
		)
		c.modes[mode] = &modeState{
			mode:     mode,
			balancer: b,
			matcher: matchmaker.New(mode, queueStore, b,
				matchmaker.WithRetryCount(cfg.MatchRetryCount),
				matchmaker.WithBatchSize(cfg.QueueBatchSize),
				matchmaker.WithMatchTimeout(cfg.MatchTimeout()),
				matchmaker.WithCodec(score.Codec{Now: c.now}),
			),
			pool: workerpool.New(mode.String(),
				workerpool.WithBounds(cfg.WorkerMin, cfg.WorkerMax),
				workerpool.WithCooldown(cfg.WorkerCooldown),
				workerpool.WithStopTimeout(cfg.WorkerStopTimeout),
				workerpool.WithClock(c.now),
			),
		}
	}

	return c, nil
}

// Start subscribes to the bus, starts the first worker of every mode and the control loop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	handler := eventbus.HandlerFuncs{Increase: c.onIncreaseEvent, Decrease: c.onDecreaseEvent}
	if err := c.bus.Subscribe(runCtx, handler); err != nil {
		cancel()
		return fmt.Errorf("subscribe to queue events: %w", err)
	}

	for _, mode := range c.order {
		st := c.modes[mode]
		st.pool.IncreaseTask(c.newWorker(st))
		c.metrics.SetWorkerCount(mode.String(), st.pool.Count())
	}

	c.started = true
	c.cancel = cancel
	c.wg.Add(1)
	go c.control(runCtx)

	return nil
}

// Stop ends the control loop and every worker. The store and bus stay open.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	var wg sync.WaitGroup
	for _, st := range c.modes {
		wg.Add(1)
		go func(st *modeState) {
			defer wg.Done()
			st.pool.Shutdown()
			c.metrics.SetWorkerCount(st.mode.String(), 0)
		}(st)
	}
	wg.Wait()
}

// Reset drops every user queued in the active modes.
func (c *Coordinator) Reset(ctx context.Context) error {
	var errs []error
	for _, mode := range c.order {
		if err := c.store.Clear(ctx, mode); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", mode, err))
			continue
		}
		c.metrics.SetQueueDepth(mode.String(), 0)
	}

	return errors.Join(errs...)
}

// Submit queues entry in mode and announces the growth on the bus.
// A user may wait in one mode at a time.
func (c *Coordinator) Submit(ctx context.Context, mode models.MatchMode, entry models.QueueEntry) error {
	st, err := c.mode(mode)
	if err != nil {
		return err
	}

	scope := envelope.NewRootScope(ctx, "Coordinator.Submit", "")
	defer scope.Finish()
	scope = scope.WithField("mode", mode.String()).WithField("userID", entry.ID)

	// the lookup across modes and the insert must not interleave with another submit of the same id
	lock := c.submitLock(entry.ID)
	lock.Lock()
	defer lock.Unlock()

	for _, other := range c.order {
		status, err := c.modes[other].matcher.Status(scope, entry.ID)
		if err != nil {
			return fmt.Errorf("check user %d in %s: %w", entry.ID, other, err)
		}
		if status != models.MatchStatusNone {
			return fmt.Errorf("%w: user %d is %s in %s", models.ErrAlreadyQueued, entry.ID, status, other)
		}
	}

	if _, err := st.matcher.Submit(scope, entry); err != nil {
		return err
	}
	if err := c.bus.PublishIncrease(scope.Ctx, mode); err != nil {
		scope.Log.Warnf("unable to publish queue increase: %s", err)
	}

	return nil
}

// Cancel takes a waiting user out of mode. A user claimed by a running attempt is not cancelled.
func (c *Coordinator) Cancel(ctx context.Context, mode models.MatchMode, userID int64) (bool, error) {
	st, err := c.mode(mode)
	if err != nil {
		return false, err
	}

	scope := envelope.NewRootScope(ctx, "Coordinator.Cancel", "")
	defer scope.Finish()
	scope = scope.WithField("mode", mode.String()).WithField("userID", userID)

	removed, err := st.matcher.Cancel(scope, userID)
	if err != nil {
		return false, err
	}
	if removed {
		if err := c.bus.PublishDecrease(scope.Ctx, mode, 1); err != nil {
			scope.Log.Warnf("unable to publish queue decrease: %s", err)
		}
	}

	return removed, nil
}

func (c *Coordinator) Status(ctx context.Context, mode models.MatchMode, userID int64) (models.MatchStatus, error) {
	st, err := c.mode(mode)
	if err != nil {
		return models.MatchStatusNone, err
	}

	scope := envelope.NewRootScope(ctx, "Coordinator.Status", "")
	defer scope.Finish()

	return st.matcher.Status(scope, userID)
}

func (c *Coordinator) QueueDepth(ctx context.Context, mode models.MatchMode) (int64, error) {
	if _, err := c.mode(mode); err != nil {
		return 0, err
	}
	return c.store.Length(ctx, mode)
}

// WorkerCount returns the running workers of mode, 0 for an inactive mode.
func (c *Coordinator) WorkerCount(mode models.MatchMode) int {
	st, ok := c.modes[mode]
	if !ok {
		return 0
	}
	return st.pool.Count()
}

func (c *Coordinator) AverageMatchTime(mode models.MatchMode) int {
	st, ok := c.modes[mode]
	if !ok {
		return 0
	}
	return st.balancer.AverageMatchTime()
}

// Modes lists the active modes in configuration order.
func (c *Coordinator) Modes() []models.MatchMode {
	return append([]models.MatchMode(nil), c.order...)
}

// Health returns the last invariant violation seen by any worker, nil when there was none.
func (c *Coordinator) Health() error {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	return c.lastViolation
}

func (c *Coordinator) mode(mode models.MatchMode) (*modeState, error) {
	st, ok := c.modes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not active", models.ErrUnknownMode, mode)
	}
	return st, nil
}

func (c *Coordinator) submitLock(userID int64) *sync.Mutex {
	return &c.submitMu[uint64(userID)%submitStripes]
}

func (c *Coordinator) recordViolation(err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.lastViolation = err
}
