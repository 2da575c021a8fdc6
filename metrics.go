package gocog

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional set of Prometheus counters a caller can attach
// to a TiffReader to observe remote-fetch behavior. A nil *Metrics is
// valid everywhere it's accepted: every method is nil-receiver safe, so
// instrumentation is opt-in and costs nothing when unused.
type Metrics struct {
	fetchesTotal      prometheus.Counter
	bytesFetchedTotal prometheus.Counter
	tileRequests      *prometheus.CounterVec
}

// NewMetrics registers the gocog counters on reg and returns a Metrics
// ready to pass to WithMetrics. Passing the same registry to two
// readers panics on the second AlreadyRegisteredError, matching
// prometheus client_golang's normal registration contract.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cog_fetches_total",
			Help: "Total number of Source.Fetch calls issued.",
		}),
		bytesFetchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cog_bytes_fetched_total",
			Help: "Total bytes returned by Source.Fetch.",
		}),
		tileRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cog_tile_requests_total",
			Help: "Tile requests, partitioned by whether the tile was sparse.",
		}, []string{"sparse"}),
	}
	reg.MustRegister(m.fetchesTotal, m.bytesFetchedTotal, m.tileRequests)
	return m
}

func (m *Metrics) observeFetch(n int) {
	if m == nil {
		return
	}
	m.fetchesTotal.Inc()
	m.bytesFetchedTotal.Add(float64(n))
}

func (m *Metrics) observeTileRequest(sparse bool) {
	if m == nil {
		return
	}
	label := "false"
	if sparse {
		label = "true"
	}
	m.tileRequests.WithLabelValues(label).Inc()
}
