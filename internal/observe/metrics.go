package observe

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/popsynth/internal/evolve"
	"github.com/san-kum/popsynth/internal/units"
)

// Metrics exports run progress as Prometheus metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	steps     prometheus.Counter
	modelTime prometheus.Gauge
	stepWall  prometheus.Histogram
	state     *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "popsynth_engine_steps_total",
			Help: "Engine advances completed",
		}),
		modelTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "popsynth_model_time_myr",
			Help: "Model time reached by the engine in Myr",
		}),
		stepWall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "popsynth_engine_step_duration_seconds",
			Help:    "Wall time spent in one engine advance",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "popsynth_driver_state",
			Help: "1 for the driver's current state, 0 otherwise",
		}, []string{"state"}),
	}
	m.registry.MustRegister(m.steps, m.modelTime, m.stepWall, m.state)
	for _, s := range []evolve.State{evolve.Idle, evolve.Running, evolve.Done, evolve.Failed} {
		m.state.WithLabelValues(s.String()).Set(0)
	}
	m.state.WithLabelValues(evolve.Idle.String()).Set(1)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) OnStep(p evolve.Progress) {
	m.steps.Inc()
	if myr, err := p.Time.ValueIn(units.Myr); err == nil {
		m.modelTime.Set(myr)
	}
	m.stepWall.Observe(p.Wall.Seconds())
}

func (m *Metrics) OnState(from, to evolve.State) {
	m.state.WithLabelValues(from.String()).Set(0)
	m.state.WithLabelValues(to.String()).Set(1)
}

// WriteFile dumps the metrics in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
