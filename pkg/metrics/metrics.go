// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	queueDepth          prometheus.GaugeVec
	workers             prometheus.GaugeVec
	attemptElapsedTime  prometheus.HistogramVec
	matchWaitTime       prometheus.HistogramVec
	attemptOutcomes     prometheus.CounterVec
	queueEvents         prometheus.CounterVec
	invariantViolations prometheus.CounterVec
}

func setupPrometheusMetrics(registry *prometheus.Registry) prometheusMetrics {
	factory := promauto.With(registry)

	queueDepth := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mmq_queue_depth",
			Help: "Number of users waiting in the match queue of a mode",
		}, []string{"mode"})

	workers := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mmq_workers",
			Help: "Number of running matching workers of a mode",
		}, []string{"mode"})

	//nolint:promlinter
	attemptElapsedTime := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mmq_attempt_elapsed_time_ms",
			Help:    "A histogram of matching attempt elapsed time in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"mode", "outcome"})

	matchWaitTime := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mmq_match_wait_seconds",
			Help:    "A histogram of how long matched users waited in the queue",
			Buckets: prometheus.LinearBuckets(0, 10, 19),
		}, []string{"mode"})

	attemptOutcomes := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmq_attempt_outcomes",
			Help: "Matching attempts per outcome",
		}, []string{"mode", "outcome"})

	queueEvents := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmq_queue_events",
			Help: "Queue size change events received from the event bus",
		}, []string{"mode", "kind"})

	invariantViolations := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmq_invariant_violations",
			Help: "Lock or commit bookkeeping violations detected by the matcher",
		}, []string{"mode"})

	return prometheusMetrics{
		queueDepth:          *queueDepth,
		workers:             *workers,
		attemptElapsedTime:  *attemptElapsedTime,
		matchWaitTime:       *matchWaitTime,
		attemptOutcomes:     *attemptOutcomes,
		queueEvents:         *queueEvents,
		invariantViolations: *invariantViolations,
	}
}

func (metrics prometheusMetrics) SetQueueDepth(mode string, depth int64) {
	metrics.queueDepth.With(prometheus.Labels{"mode": mode}).Set(float64(depth))
}

func (metrics prometheusMetrics) SetWorkerCount(mode string, count int) {
	metrics.workers.With(prometheus.Labels{"mode": mode}).Set(float64(count))
}

func (metrics prometheusMetrics) AddAttemptElapsedTimeMs(mode, outcome string, elapsedTime time.Duration) {
	metrics.attemptElapsedTime.With(prometheus.Labels{"mode": mode, "outcome": outcome}).Observe(float64(elapsedTime.Milliseconds()))
	metrics.attemptOutcomes.With(prometheus.Labels{"mode": mode, "outcome": outcome}).Inc()
}

func (metrics prometheusMetrics) ObserveMatchWaitTime(mode string, waitTime int) {
	metrics.matchWaitTime.With(prometheus.Labels{"mode": mode}).Observe(float64(waitTime))
}

func (metrics prometheusMetrics) AddQueueEvent(mode string, kind string) {
	metrics.queueEvents.With(prometheus.Labels{"mode": mode, "kind": kind}).Inc()
}

func (metrics prometheusMetrics) AddInvariantViolation(mode string) {
	metrics.invariantViolations.With(prometheus.Labels{"mode": mode}).Inc()
}
