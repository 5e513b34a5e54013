package node

import "github.com/prometheus/client_golang/prometheus"

// RegisterMetrics exposes this node's online-peer count as a gauge on
// the default registerer, mirroring cmd/alertmanager's
// newAlertMetricByState + MustRegister pattern for wiring live state
// into /metrics. It is opt-in (the cmd entrypoint calls it once) rather
// than automatic, since a process embedding more than one Node against
// the default registerer would otherwise collide on the metric name.
func (n *Node) RegisterMetrics() {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "litep2p_peers_online",
		Help: "Number of peers currently marked Online, including self.",
	}, func() float64 { return float64(n.table.OnlineCount()) })
	prometheus.MustRegister(gauge)
}
