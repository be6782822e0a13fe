// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/metrics"
)

type stubMetricsCollection struct{}

func (s stubMetricsCollection) SetQueueDepth(mode string, depth int64) {
}

func (s stubMetricsCollection) SetWorkerCount(mode string, count int) {
}

func (s stubMetricsCollection) AddAttemptElapsedTimeMs(mode, outcome string, elapsedTime time.Duration) {
}

func (s stubMetricsCollection) ObserveMatchWaitTime(mode string, waitTime int) {
}

func (s stubMetricsCollection) AddQueueEvent(mode string, kind string) {
}

func (s stubMetricsCollection) AddInvariantViolation(mode string) {
}

func NewMetrics() metrics.QueueMetrics {
	return stubMetricsCollection{}
}

// RecordingMetrics counts outcomes and invariant violations per mode.
type RecordingMetrics struct {
	stubMetricsCollection

	mu         sync.Mutex
	outcomes   map[string]int
	violations map[string]int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		outcomes:   make(map[string]int),
		violations: make(map[string]int),
	}
}

func (r *RecordingMetrics) AddAttemptElapsedTimeMs(mode, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[mode+"/"+outcome]++
}

func (r *RecordingMetrics) AddInvariantViolation(mode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations[mode]++
}

func (r *RecordingMetrics) Outcomes(mode, outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[mode+"/"+outcome]
}

func (r *RecordingMetrics) Violations(mode string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.violations[mode]
}
