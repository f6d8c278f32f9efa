package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation engine and
// provides a ready-to-serve /metrics handler.
type SimCollector struct {
	gatherer prometheus.Gatherer

	TickDurations prometheus.Histogram

	LiveBodies  prometheus.Gauge
	ElapsedDays prometheus.Gauge
	Snapshots   prometheus.Gauge

	Merges  prometheus.Counter
	Escapes prometheus.Counter
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tickDurations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Wall-clock cost of one simulation tick (integration + collision resolution).",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "sim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	liveBodies, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_live_bodies",
		Help: "Current number of live bodies in the simulation.",
	}), "sim_live_bodies")
	if err != nil {
		return nil, err
	}
	elapsedDays, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_elapsed_days",
		Help: "Simulated time elapsed since session start, in days.",
	}), "sim_elapsed_days")
	if err != nil {
		return nil, err
	}
	snapshots, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_snapshots",
		Help: "Number of rewind snapshots currently retained.",
	}), "sim_snapshots")
	if err != nil {
		return nil, err
	}

	merges, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_merges_total",
		Help: "Total number of collision merges since process start.",
	}), "sim_merges_total")
	if err != nil {
		return nil, err
	}
	escapes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_escapes_total",
		Help: "Total number of bodies culled for leaving the gravitational range.",
	}), "sim_escapes_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:      gatherer,
		TickDurations: tickDurations,
		LiveBodies:    liveBodies,
		ElapsedDays:   elapsedDays,
		Snapshots:     snapshots,
		Merges:        merges,
		Escapes:       escapes,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTickDuration satisfies the engine's MetricsRecorder interface.
func (c *SimCollector) ObserveTickDuration(seconds float64) {
	if c == nil || c.TickDurations == nil {
		return
	}
	c.TickDurations.Observe(seconds)
}

// SetLiveBodies records the current live-body count.
func (c *SimCollector) SetLiveBodies(n int) {
	if c == nil || c.LiveBodies == nil {
		return
	}
	c.LiveBodies.Set(float64(n))
}

// SetElapsedDays records simulated elapsed time.
func (c *SimCollector) SetElapsedDays(days float64) {
	if c == nil || c.ElapsedDays == nil {
		return
	}
	c.ElapsedDays.Set(days)
}

// SetSnapshots records the retained snapshot count; satisfies the recorder's
// SnapshotMetrics interface.
func (c *SimCollector) SetSnapshots(n int) {
	if c == nil || c.Snapshots == nil {
		return
	}
	c.Snapshots.Set(float64(n))
}

// AddMerges counts collision merges.
func (c *SimCollector) AddMerges(n int) {
	if c == nil || c.Merges == nil {
		return
	}
	c.Merges.Add(float64(n))
}

// AddEscapes counts escape culls.
func (c *SimCollector) AddEscapes(n int) {
	if c == nil || c.Escapes == nil {
		return
	}
	c.Escapes.Add(float64(n))
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
