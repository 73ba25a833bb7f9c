// Package metrics exposes Prometheus metrics for the feed engine.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "bookpulse"

var (
	// Channel metrics
	ChannelState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "channel_state",
			Help:      "Current channel state (0 idle, 1 connecting, 2 live, 3 reconnecting, 4 degraded, 5 closed)",
		},
		[]string{"venue", "symbol"},
	)

	SnapshotsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "snapshots_emitted_total",
			Help:      "Snapshots appended to history and fanned out",
		},
		[]string{"venue", "symbol", "kind"},
	)

	ReconnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts after a failed or dropped connection",
		},
		[]string{"venue", "symbol"},
	)

	Degradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "degradations_total",
			Help:      "Channels that switched to synthetic data",
		},
		[]string{"venue", "symbol"},
	)

	// Data quality metrics
	NormalizationDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalizer",
			Name:      "drops_total",
			Help:      "Levels or messages dropped during normalization",
		},
		[]string{"venue", "reason"},
	)

	// Subscriber metrics
	SubscriberDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscriber_drops_total",
			Help:      "Snapshots dropped because a subscriber queue was full",
		},
		[]string{"venue", "symbol"},
	)

	ActiveSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "active_subscribers",
			Help:      "Live subscription handles per channel",
		},
		[]string{"venue", "symbol"},
	)

	// Signal metrics
	SignalsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "signals_recorded_total",
			Help:      "Signal batches written to repositories",
		},
		[]string{"status"},
	)
)

// Serve 在 addr 上暴露 /metrics，ctx 结束时关闭
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
