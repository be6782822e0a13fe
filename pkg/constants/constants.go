// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package constants

import "time"

const (
	MinMMR        = 0
	MaxMMR        = 9999
	MMRMultiplier = 10000

	// Weight is the unit the balancer tiers are expressed in.
	Weight = 1000
)

const (
	DefaultMatchTimeout        = 180 * time.Second
	DefaultRetryCount          = 3
	DefaultQueueBatchSize      = 10
	DefaultBalancerWindowSize  = 300
	DefaultBalancerResetWindow = 5 * time.Second

	DefaultMinWorkers        = 1
	DefaultMaxWorkers        = 2
	DefaultWorkerCooldown    = 2 * time.Second
	DefaultWorkerStopTimeout = 5 * time.Second
	DefaultIdleBackoff       = 100 * time.Millisecond
	DefaultPacingDelay       = 30 * time.Millisecond

	DefaultScaleUpInterval         = 2 * time.Second
	DefaultScaleDownInterval       = 3 * time.Second
	DefaultWorkingThresholdSecond  = 3
	DefaultMinCountThreshold int64 = 300
)

// Both keys of a mode share a hash tag so one MULTI/EXEC can touch them on a cluster.
const (
	MatchQueueKeyFormat = "match:queue:{%s}"
	MatchScoreKeyFormat = "match:score:{%s}"

	ChannelMatchRequest  = "match:request"
	ChannelMatchComplete = "match:complete"
)

const (
	OutcomeEmpty      = "empty"
	OutcomeNoOwner    = "no_owner"
	OutcomeTimedOut   = "timed_out"
	OutcomeRolledBack = "rolled_back"
	OutcomeMatched    = "matched"
	OutcomeError      = "error"

	QueueEventIncrease = "increase"
	QueueEventDecrease = "decrease"
)
