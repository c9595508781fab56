package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the tracking metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Samples        *prometheus.CounterVec
	ProgressChecks prometheus.Counter
	RoutesCleared  prometheus.Counter
	LiveSessions   prometheus.Gauge
}

// New registers the collectors against reg, defaulting to the global registry.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	samples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_samples_total",
		Help: "Position samples processed by the distance accumulator, labeled by outcome.",
	}, []string{"outcome"})
	if err := register(reg, samples, "tracking_samples_total"); err != nil {
		return nil, err
	}
	checks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypoint_progress_checks_total",
		Help: "Waypoint progress evaluations.",
	})
	if err := register(reg, checks, "waypoint_progress_checks_total"); err != nil {
		return nil, err
	}
	cleared := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypoint_routes_cleared_total",
		Help: "Progress evaluations that found every waypoint cleared.",
	})
	if err := register(reg, cleared, "waypoint_routes_cleared_total"); err != nil {
		return nil, err
	}
	live := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracking_live_sessions",
		Help: "Sessions with an in-memory distance accumulator.",
	})
	if err := register(reg, live, "tracking_live_sessions"); err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Samples:        samples,
		ProgressChecks: checks,
		RoutesCleared:  cleared,
		LiveSessions:   live,
	}, nil
}

func (c *Collector) ObserveSample(outcome string) {
	if c == nil {
		return
	}
	c.Samples.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveProgress(allCleared bool) {
	if c == nil {
		return
	}
	c.ProgressChecks.Inc()
	if allCleared {
		c.RoutesCleared.Inc()
	}
}

func (c *Collector) SetLiveSessions(n int) {
	if c == nil {
		return
	}
	c.LiveSessions.Set(float64(n))
}

// Handler exposes the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func register(reg prometheus.Registerer, c prometheus.Collector, name string) error {
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return nil
}
