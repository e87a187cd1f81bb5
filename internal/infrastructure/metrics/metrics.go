package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appinv "github.com/jhoicas/stock-reservations/internal/application/inventory"
	"github.com/jhoicas/stock-reservations/internal/application/reservation"
)

var (
	_ appinv.RetryObserver = (*Collector)(nil)
	_ reservation.Observer = (*Collector)(nil)
)

const namespace = "stock_reservations"

// Collector métricas Prometheus del motor de stock, del ciclo de vida y del reaper.
type Collector struct {
	registry *prometheus.Registry

	casConflicts  prometheus.Counter
	casExhausted  prometheus.Counter
	casAttempts   prometheus.Histogram
	outcomes      *prometheus.CounterVec
	sweepFound    prometheus.Counter
	sweepReleased prometheus.Counter
	sweepFailed   prometheus.Counter
	lastSweep     prometheus.Gauge
}

// New registra las métricas en un registro propio (más las del runtime de Go).
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		// Sin etiqueta por SKU (cardinalidad sin cota); el SKU queda en los logs del ejecutor.
		casConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stock", Name: "cas_conflicts_total",
			Help: "Escrituras condicionadas rechazadas por versión obsoleta.",
		}),
		casExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stock", Name: "retries_exhausted_total",
			Help: "Operaciones que agotaron los reintentos optimistas.",
		}),
		casAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "stock", Name: "attempts",
			Help:    "Intentos necesarios por operación de stock exitosa.",
			Buckets: []float64{1, 2, 3, 5, 10},
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reservation", Name: "outcomes_total",
			Help: "Resultados de las operaciones del ciclo de vida de reservas.",
		}, []string{"operation", "outcome"}),
		sweepFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "found_total",
			Help: "Reservas vencidas encontradas por el reaper.",
		}),
		sweepReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "released_total",
			Help: "Reservas vencidas liberadas por el reaper.",
		}),
		sweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "failed_total",
			Help: "Reservas que el reaper no pudo liberar.",
		}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "last_sweep_timestamp_seconds",
			Help: "Momento de la última pasada del reaper.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.casConflicts, c.casExhausted, c.casAttempts, c.outcomes,
		c.sweepFound, c.sweepReleased, c.sweepFailed, c.lastSweep,
	)
	return c
}

func (c *Collector) ObserveConflict(string)  { c.casConflicts.Inc() }
func (c *Collector) ObserveExhausted(string) { c.casExhausted.Inc() }
func (c *Collector) ObserveAttempts(n int)   { c.casAttempts.Observe(float64(n)) }

func (c *Collector) ObserveOutcome(operation, outcome string) {
	c.outcomes.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) ObserveSweep(r reservation.SweepResult) {
	c.sweepFound.Add(float64(r.Found))
	c.sweepReleased.Add(float64(r.Released))
	c.sweepFailed.Add(float64(r.Failed))
	c.lastSweep.SetToCurrentTime()
}

// Handler expone /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
