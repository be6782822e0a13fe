// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type QueueMetrics interface {
	SetQueueDepth(mode string, depth int64)
	SetWorkerCount(mode string, count int)
	AddAttemptElapsedTimeMs(mode, outcome string, elapsedTime time.Duration)
	ObserveMatchWaitTime(mode string, waitTime int)
	AddQueueEvent(mode string, kind string)
	AddInvariantViolation(mode string)
}

func NewMetrics(registry *prometheus.Registry) QueueMetrics {
	return setupPrometheusMetrics(registry)
}
