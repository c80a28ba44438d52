package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection.
// All Record methods are safe to call on a nil *Collector.
type Collector struct {
	// Fetch metrics
	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Display metrics
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec

	// Navigation metrics
	TransitionsTotal *prometheus.CounterVec
	CurrentState     prometheus.Gauge
	ManualMode       prometheus.Gauge

	// Proxy metrics
	UpstreamTotal    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
}

// NewCollector registers the collectors on reg. A nil reg uses the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		FetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Data fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Data fetch duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		),

		RefreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panel_refresh_total",
				Help:      "Panel refreshes by kind (full, partial, skipped)",
			},
			[]string{"kind"},
		),

		RefreshDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "panel_refresh_duration_seconds",
				Help:      "Panel refresh duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
			},
			[]string{"kind"},
		),

		TransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nav_transitions_total",
				Help:      "Navigation transitions by kind and target state",
			},
			[]string{"kind", "state"},
		),

		CurrentState: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nav_state",
				Help:      "Current navigation state index",
			},
		),

		ManualMode: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nav_manual_mode",
				Help:      "1 while automatic rotation is suspended",
			},
		),

		UpstreamTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Proxy upstream requests by upstream and status",
			},
			[]string{"upstream", "status"},
		),

		UpstreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Proxy upstream request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"upstream"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer starts a timer that reports into histogram (may be nil).
func NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// FetchTimer times a fetch for source.
func (c *Collector) FetchTimer(source string) *Timer {
	if c == nil {
		return NewTimer(nil)
	}
	return NewTimer(c.FetchDuration.WithLabelValues(source))
}

// RecordFetch counts one fetch outcome ("ok", "offline", "status", "parse", "error").
func (c *Collector) RecordFetch(source, outcome string) {
	if c == nil {
		return
	}
	c.FetchTotal.WithLabelValues(source, outcome).Inc()
}

// RefreshTimer times a panel refresh of kind.
func (c *Collector) RefreshTimer(kind string) *Timer {
	if c == nil {
		return NewTimer(nil)
	}
	return NewTimer(c.RefreshDuration.WithLabelValues(kind))
}

// RecordRefresh counts a panel refresh of kind.
func (c *Collector) RecordRefresh(kind string) {
	if c == nil {
		return
	}
	c.RefreshTotal.WithLabelValues(kind).Inc()
}

// RecordTransition counts a navigation transition and updates the state gauges.
func (c *Collector) RecordTransition(kind, state string, index int, manual bool) {
	if c == nil {
		return
	}
	c.TransitionsTotal.WithLabelValues(kind, state).Inc()
	c.CurrentState.Set(float64(index))
	if manual {
		c.ManualMode.Set(1)
	} else {
		c.ManualMode.Set(0)
	}
}

// UpstreamTimer times an upstream call.
func (c *Collector) UpstreamTimer(upstream string) *Timer {
	if c == nil {
		return NewTimer(nil)
	}
	return NewTimer(c.UpstreamDuration.WithLabelValues(upstream))
}

// RecordUpstream counts an upstream call by status label.
func (c *Collector) RecordUpstream(upstream, status string) {
	if c == nil {
		return
	}
	c.UpstreamTotal.WithLabelValues(upstream, status).Inc()
}

// RecordHTTPRequest counts one served request.
func (c *Collector) RecordHTTPRequest(route, method, status string) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, method, status).Inc()
}
