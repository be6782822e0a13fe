// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/common"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/matchmaker"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// worker returns the loop one pool slot runs for st. It only ends on cancellation.
func (c *Coordinator) worker(st *modeState) func(ctx context.Context) {
	return func(ctx context.Context) {
		workerID := common.GenerateUUID()
		for ctx.Err() == nil {
			matched := c.runAttempt(ctx, st, workerID)
			if !matched && !sleep(ctx, c.cfg.WorkerIdleBackoff) {
				return
			}
			if !sleep(ctx, c.cfg.WorkerPacingDelay) {
				return
			}
		}
	}
}

// runAttempt runs one Attempt and handles its outcome. A panic ends the iteration, not the worker.
func (c *Coordinator) runAttempt(ctx context.Context, st *modeState, workerID string) (matched bool) {
	scope := envelope.NewRootScope(ctx, "Coordinator.worker", "")
	defer scope.Finish()
	scope = scope.WithField("mode", st.mode.String()).WithField("workerID", workerID)

	defer func() {
		if r := recover(); r != nil {
			scope.Log.Errorf("matching attempt panicked: %v", r)
			c.metrics.AddAttemptElapsedTimeMs(st.mode.String(), matchmaker.StatusFailed.String(), 0)
			matched = false
		}
	}()

	start := time.Now()
	result, err := st.matcher.Attempt(scope)
	c.metrics.AddAttemptElapsedTimeMs(st.mode.String(), result.Status.String(), time.Since(start))

	switch result.Status {
	case matchmaker.StatusMatched:
		c.commit(scope, st, result)
	case matchmaker.StatusTimedOut:
		c.listener.OnMatchFailure(scope, st.mode, result.Owner)
	}
	if err != nil {
		c.handleAttemptError(scope, st, err)
	}

	return result.Matched()
}

func (c *Coordinator) commit(scope *envelope.Scope, st *modeState, result matchmaker.Result) {
	now := c.now()
	match := models.MatchResult{
		MatchID:   ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Mode:      st.mode,
		Members:   result.Members,
		CreatedAt: now,
	}
	scope.SetAttributes(envelope.MatchIDTag, match.MatchID)

	for _, member := range match.Members {
		c.metrics.ObserveMatchWaitTime(st.mode.String(), member.WaitTime)
	}
	c.listener.OnMatchSuccess(scope, match)

	if err := c.bus.PublishDecrease(context.WithoutCancel(scope.Ctx), st.mode, len(match.Members)); err != nil {
		scope.Log.Warnf("unable to publish queue decrease: %s", err)
	}
	c.nudge(st.mode, nudgeScaleDown)
}

// handleAttemptError logs recoverable failures and raises the health alarm on invariant violations.
func (c *Coordinator) handleAttemptError(scope *envelope.Scope, st *modeState, err error) {
	switch {
	case errors.Is(err, context.Canceled):
	case models.IsInvariantViolation(err):
		scope.Log.WithField("errorCode", models.ErrorCode(err)).Errorf("matching invariant violated: %s", err)
		c.metrics.AddInvariantViolation(st.mode.String())
		c.recordViolation(err)
	default:
		scope.Log.WithField("errorCode", models.ErrorCode(err)).Warnf("matching attempt failed: %s", err)
	}
}
