// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package coordinator

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// control runs the periodic scale passes and the passes nudged by events,
// so every resize happens on this one goroutine.
func (c *Coordinator) control(ctx context.Context) {
	defer c.wg.Done()

	upTicker := newTicker(c.cfg.ScaleUpInterval, constants.DefaultScaleUpInterval)
	defer upTicker.Stop()
	downTicker := newTicker(c.cfg.ScaleDownInterval, constants.DefaultScaleDownInterval)
	defer downTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-upTicker.C:
			for _, mode := range c.order {
				c.scaleUpMode(ctx, c.modes[mode])
			}
		case <-downTicker.C:
			for _, mode := range c.order {
				c.scaleDownMode(ctx, c.modes[mode])
			}
		case <-c.wake:
			pending := c.takeNudges()
			for _, mode := range c.order {
				kind := pending[mode]
				if kind&nudgeScaleDown != 0 {
					c.scaleDownMode(ctx, c.modes[mode])
				}
				if kind&nudgeScaleUp != 0 {
					c.scaleUpMode(ctx, c.modes[mode])
				}
			}
		}
	}
}

// scaleUpMode adds a worker when matches take long and the queue is deep.
func (c *Coordinator) scaleUpMode(ctx context.Context, st *modeState) {
	if st.pool.Count() >= c.cfg.WorkerMax {
		return
	}
	depth, ok := c.readDepth(ctx, st.mode)
	if !ok {
		return
	}

	average := st.balancer.AverageMatchTime()
	if average >= c.cfg.WorkingThresholdSecond && depth > c.cfg.MinCountThreshold {
		if st.pool.IncreaseTask(c.newWorker(st)) {
			logrus.WithField("mode", st.mode.String()).
				Infof("scaled up to %d workers, queue depth %d, average match time %ds", st.pool.Count(), depth, average)
		}
	}
	c.metrics.SetWorkerCount(st.mode.String(), st.pool.Count())
}

// scaleDownMode removes a worker once the queue is shallow again.
func (c *Coordinator) scaleDownMode(ctx context.Context, st *modeState) {
	if st.pool.Count() <= c.cfg.WorkerMin {
		return
	}
	depth, ok := c.readDepth(ctx, st.mode)
	if !ok {
		return
	}

	if depth <= c.cfg.MinCountThreshold {
		if st.pool.DecreaseTask() {
			logrus.WithField("mode", st.mode.String()).
				Infof("scaled down to %d workers, queue depth %d", st.pool.Count(), depth)
		}
	}
	c.metrics.SetWorkerCount(st.mode.String(), st.pool.Count())
}

func (c *Coordinator) readDepth(ctx context.Context, mode models.MatchMode) (int64, bool) {
	depth, err := c.store.Length(ctx, mode)
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithField("mode", mode.String()).Warnf("unable to read queue depth: %s", err)
		}
		return 0, false
	}
	c.metrics.SetQueueDepth(mode.String(), depth)

	return depth, true
}

// nudge asks the control loop for an extra pass of mode. A request made while the loop
// is busy merges with the pending ones and runs on its next wake.
func (c *Coordinator) nudge(mode models.MatchMode, kind nudgeKind) {
	c.nudgeMu.Lock()
	c.pending[mode] |= kind
	c.nudgeMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) takeNudges() map[models.MatchMode]nudgeKind {
	c.nudgeMu.Lock()
	defer c.nudgeMu.Unlock()

	pending := c.pending
	c.pending = make(map[models.MatchMode]nudgeKind, len(c.order))
	return pending
}

func (c *Coordinator) onIncreaseEvent(mode models.MatchMode) {
	if _, ok := c.modes[mode]; !ok {
		return
	}
	c.metrics.AddQueueEvent(mode.String(), constants.QueueEventIncrease)
	c.nudge(mode, nudgeScaleUp)
}

func (c *Coordinator) onDecreaseEvent(mode models.MatchMode, matchedCount int) {
	if _, ok := c.modes[mode]; !ok {
		return
	}
	logrus.WithField("mode", mode.String()).Debugf("queue shrank by %d", matchedCount)
	c.metrics.AddQueueEvent(mode.String(), constants.QueueEventDecrease)
	c.nudge(mode, nudgeScaleDown)
}
