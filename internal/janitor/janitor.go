// Package janitor runs a scheduled census of the stored forest and exports
// the counts as gauges. Orphans are counted, never collected: a reply to a
// vanished parent stays persisted and permanently invisible.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"threadchat/pkg/config"
	"threadchat/pkg/logger"
	"threadchat/pkg/store"
)

var (
	messagesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadchat_forest_messages",
		Help: "Stored messages at the last janitor sweep.",
	})
	rootsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadchat_forest_roots",
		Help: "Root messages at the last janitor sweep.",
	})
	orphansGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadchat_forest_orphans",
		Help: "Messages whose declared parent has no record.",
	})
)

// Start launches the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if cfg == nil || !cfg.Janitor.Enabled {
		logger.Info("janitor_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Janitor.Cron
	if cronExpr == "" {
		// default hourly
		cronExpr = "0 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("janitor_invalid_cron", "cron", cfg.Janitor.Cron)
		return nil, fmt.Errorf("invalid janitor cron expression: %s", cfg.Janitor.Cron)
	}

	logger.Info("janitor_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr)
	return cancel, nil
}

// RunOnce performs a single sweep immediately (used by tests and startup).
func RunOnce() error {
	st, err := store.Stats()
	if err != nil {
		return err
	}
	messagesGauge.Set(float64(st.Messages))
	rootsGauge.Set(float64(st.Roots))
	orphansGauge.Set(float64(st.Orphans))
	logger.Info("janitor_sweep", "messages", st.Messages, "roots", st.Roots, "orphans", st.Orphans)
	return nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it,
// repeating until cancelled.
func runScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("janitor_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("janitor_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(); err != nil {
				logger.Error("janitor_sweep_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("janitor_scheduler_stopping")
			return
		}
	}
}
