// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the engine's prometheus metrics.
type Collector struct {
	trades      *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	volume      *prometheus.CounterVec
	graduations prometheus.Counter
	curves      prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "degenie_trades_total",
			Help: "Accepted trades by side",
		}, []string{"side"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "degenie_rejections_total",
			Help: "Rejected operations by error kind",
		}, []string{"kind"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "degenie_volume_lamports_total",
			Help: "Gross traded lamports by side",
		}, []string{"side"}),
		graduations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "degenie_graduations_total",
			Help: "Curves that crossed the graduation threshold",
		}),
		curves: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "degenie_active_curves",
			Help: "Curves currently accepting trades",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.trades, c.rejections, c.volume, c.graduations, c.curves)
	}
	return c
}

// Nil-receiver safe so the engine can run without metrics in tests.

func (c *Collector) RecordTrade(side string, lamports uint64) {
	if c == nil {
		return
	}
	c.trades.WithLabelValues(side).Inc()
	c.volume.WithLabelValues(side).Add(float64(lamports))
}

func (c *Collector) RecordRejection(kind string) {
	if c == nil {
		return
	}
	c.rejections.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordGraduation() {
	if c == nil {
		return
	}
	c.graduations.Inc()
	c.curves.Dec()
}

func (c *Collector) CurveCreated() {
	if c == nil {
		return
	}
	c.curves.Inc()
}
