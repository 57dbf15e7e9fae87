package app

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "app"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Height of the last committed block.
	Height metrics.Gauge
	// Transactions delivered, labeled by message type and response code.
	Txs metrics.Counter
	// Transactions rejected by CheckTx.
	FailedCheckTxs metrics.Counter
	// Credits traded, labeled by side.
	TradedCredits metrics.Counter
	// Projects settled, labeled by outcome.
	Settlements metrics.Counter
	// Time between BeginBlock and Commit in seconds.
	BlockProcessingTime metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "height",
			Help:      "Height of the last committed block.",
		}, labels).With(labelsAndValues...),
		Txs: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "txs",
			Help:      "Number of delivered transactions.",
		}, append(labels, "type", "code")).With(labelsAndValues...),
		FailedCheckTxs: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "failed_check_txs",
			Help:      "Number of transactions rejected by CheckTx.",
		}, labels).With(labelsAndValues...),
		TradedCredits: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "traded_credits",
			Help:      "Number of credits listed or bought.",
		}, append(labels, "side")).With(labelsAndValues...),
		Settlements: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "settlements",
			Help:      "Number of validated projects.",
		}, append(labels, "valid")).With(labelsAndValues...),
		BlockProcessingTime: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_processing_time",
			Help:      "Time between BeginBlock and Commit in seconds.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 2, 12),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:              discard.NewGauge(),
		Txs:                 discard.NewCounter(),
		FailedCheckTxs:      discard.NewCounter(),
		TradedCredits:       discard.NewCounter(),
		Settlements:         discard.NewCounter(),
		BlockProcessingTime: discard.NewHistogram(),
	}
}
