// Package metrics exposes Prometheus instrumentation for flattening and layout.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	flattenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thoughtmap_flatten_total",
		Help: "Number of forest flattening passes",
	})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "thoughtmap_graph_nodes",
		Help: "Nodes produced by the most recent flattening pass",
	})

	graphLinks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "thoughtmap_graph_links",
		Help: "Links produced by the most recent flattening pass",
	})

	layoutTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thoughtmap_layout_ticks_total",
		Help: "Simulation steps executed across all surfaces",
	})

	layoutAlpha = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "thoughtmap_layout_alpha",
		Help: "Alpha (temperature) after the most recent simulation step",
	})

	layoutRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thoughtmap_layout_restarts_total",
		Help: "Simulation restarts by cause",
	}, []string{"cause"})
)

// ObserveFlatten records the size of a flattened graph.
func ObserveFlatten(nodes, links int) {
	flattenTotal.Inc()
	graphNodes.Set(float64(nodes))
	graphLinks.Set(float64(links))
}

// ObserveTick records one simulation step.
func ObserveTick(alpha float64) {
	layoutTicks.Inc()
	layoutAlpha.Set(alpha)
}

// ObserveRestart records a simulation restart.
func ObserveRestart(cause string) {
	layoutRestarts.WithLabelValues(cause).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
