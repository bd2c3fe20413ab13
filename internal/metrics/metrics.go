// Package metrics exposes recorder and daemon counters to Prometheus and to
// the daemon's /status endpoint.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. All label values are bounded: record kinds,
// board provenance labels, and fixed status strings.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	linesProcessed prometheus.Counter
	records        *prometheus.CounterVec
	decodeFailures prometheus.Counter
	lineDuration   prometheus.Histogram
	combats        *prometheus.CounterVec
	boardSources   *prometheus.CounterVec
	matchesWritten *prometheus.CounterVec
	feedUpdates    prometheus.Counter
	wsClients      prometheus.Gauge
	wsRejected     *prometheus.CounterVec

	lines       atomic.Uint64
	decodeErrs  atomic.Uint64
	matches     atomic.Uint64
	writeErrors atomic.Uint64
	feeds       atomic.Uint64
	startTime   time.Time
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		linesProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "bgc_log_lines_total",
			Help: "Power.log lines processed",
		}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bgc_log_records_total",
			Help: "Recognized Power.log records by kind",
		}, []string{"kind"}),
		decodeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "bgc_log_decode_failures_total",
			Help: "Recognized lines discarded because a field could not be decoded",
		}),
		lineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bgc_line_duration_seconds",
			Help:    "Time spent applying one log line",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		combats: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bgc_combat_transitions_total",
			Help: "Combat phase transitions",
		}, []string{"transition"}), // Bounded: "start", "end", "refresh"
		boardSources: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bgc_board_source_total",
			Help: "Board snapshots by side and provenance",
		}, []string{"side", "source"}),
		matchesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bgc_matches_written_total",
			Help: "Match hand-offs by sink outcome",
		}, []string{"status"}), // Bounded: "ok", "error"
		feedUpdates: f.NewCounter(prometheus.CounterOpts{
			Name: "bgc_board_feed_updates_total",
			Help: "Board watcher pushes received",
		}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "bgc_websocket_clients",
			Help: "Currently connected websocket clients",
		}),
		wsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bgc_websocket_rejected_total",
			Help: "Websocket frames or connections rejected",
		}, []string{"reason"}), // Bounded: "origin", "rate_limit", "invalid"
		startTime: time.Now(),
	}
}

// ObserveLine records one processed line.
func (m *Metrics) ObserveLine(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.lines.Add(1)
	m.linesProcessed.Inc()
	if kind != "" && kind != "none" {
		m.records.WithLabelValues(kind).Inc()
	}
	m.lineDuration.Observe(d.Seconds())
}

// DecodeFailure records a discarded record.
func (m *Metrics) DecodeFailure() {
	if m == nil {
		return
	}
	m.decodeErrs.Add(1)
	m.decodeFailures.Inc()
}

// CombatTransition records a combat phase change.
func (m *Metrics) CombatTransition(transition string) {
	if m == nil {
		return
	}
	m.combats.WithLabelValues(transition).Inc()
}

// BoardSource records which tier produced a board.
func (m *Metrics) BoardSource(side, source string) {
	if m == nil {
		return
	}
	m.boardSources.WithLabelValues(side, source).Inc()
}

// MatchWritten records a match hand-off.
func (m *Metrics) MatchWritten(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.writeErrors.Add(1)
		m.matchesWritten.WithLabelValues("error").Inc()
		return
	}
	m.matches.Add(1)
	m.matchesWritten.WithLabelValues("ok").Inc()
}

// FeedUpdate records a board watcher push.
func (m *Metrics) FeedUpdate() {
	if m == nil {
		return
	}
	m.feeds.Add(1)
	m.feedUpdates.Inc()
}

// ClientConnected adjusts the websocket client gauge.
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}

// Rejected records a rejected websocket connection or frame.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.wsRejected.WithLabelValues(reason).Inc()
}

// Stats is a point-in-time view for the status endpoint.
type Stats struct {
	LinesProcessed   uint64 `json:"lines_processed"`
	DecodeFailures   uint64 `json:"decode_failures"`
	MatchesWritten   uint64 `json:"matches_written"`
	MatchWriteErrors uint64 `json:"match_write_errors"`
	FeedUpdates      uint64 `json:"feed_updates"`
	Uptime           string `json:"uptime"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		LinesProcessed:   m.lines.Load(),
		DecodeFailures:   m.decodeErrs.Load(),
		MatchesWritten:   m.matches.Load(),
		MatchWriteErrors: m.writeErrors.Load(),
		FeedUpdates:      m.feeds.Load(),
		Uptime:           time.Since(m.startTime).Round(time.Second).String(),
	}
}

// Handler serves the collectors registered on g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
