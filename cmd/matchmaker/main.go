// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/common"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/config"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/coordinator"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %s", err)
	}
	common.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(cfg.ZipkinEndpoint)
	if err != nil {
		logrus.Fatalf("unable to set up tracing: %s", err)
	}

	backends, err := newBackends(cfg)
	if err != nil {
		logrus.Fatalf("unable to connect backends: %s", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := coordinator.New(cfg, backends.store, backends.bus, coordinator.WithMetrics(metrics.NewMetrics(registry)))
	if err != nil {
		logrus.Fatalf("unable to create coordinator: %s", err)
	}

	if cfg.ResetQueuesOnStart {
		if err := c.Reset(ctx); err != nil {
			logrus.Fatalf("unable to reset queues: %s", err)
		}
	}

	httpSrv := serveMetrics(cfg.MetricsAddr, registry, c)

	if err := c.Start(ctx); err != nil {
		logrus.Fatalf("unable to start coordinator: %s", err)
	}
	logrus.Infof("matchmaker started for %v", c.Modes())

	seedPlayers(ctx, c, cfg.SeedPlayers, cfg.SeedMaxMMR)

	<-ctx.Done()
	logrus.Info("shutting down")

	c.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	if err := backends.Close(); err != nil {
		logrus.Warnf("closing backends: %s", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logrus.Warnf("flushing traces: %s", err)
	}
	logrus.Info("matchmaker stopped")
}

// serveMetrics exposes /metrics and a /health check that fails once an invariant violation was seen.
func serveMetrics(addr string, registry *prometheus.Registry, c *coordinator.Coordinator) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := c.Health(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logrus.Infof("metrics listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("metrics listener: %s", err)
		}
	}()

	return httpSrv
}

type submitter interface {
	Modes() []models.MatchMode
	Submit(ctx context.Context, mode models.MatchMode, entry models.QueueEntry) error
}

// seedPlayers submits count synthetic users with ids 0..count-1 spread over every active mode.
func seedPlayers(ctx context.Context, c submitter, count int, maxMMR int) int {
	modes := c.Modes()
	if count <= 0 || len(modes) == 0 {
		return 0
	}
	maxMMR = mathutil.Clamp(maxMMR, 1, constants.MaxMMR)

	submitted := 0
	for i := 0; i < count && ctx.Err() == nil; i++ {
		mode := modes[rand.IntN(len(modes))]
		entry := models.QueueEntry{ID: int64(i), MMR: 1 + rand.IntN(maxMMR)}
		if err := c.Submit(ctx, mode, entry); err != nil {
			logrus.WithField("userID", entry.ID).Warnf("unable to seed user: %s", err)
			continue
		}
		submitted++
	}
	logrus.Infof("seeded %d synthetic users", submitted)

	return submitted
}
