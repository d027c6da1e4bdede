package metric

import "github.com/prometheus/client_golang/prometheus"

// SpaceSource is what Collector samples. objspace.Space satisfies it.
type SpaceSource interface {
	Len() int
	NeedsSave() bool
}

// Collector reports the size and dirtiness of an object space at scrape
// time.
type Collector struct {
	src       SpaceSource
	entities  *prometheus.Desc
	needsSave *prometheus.Desc
}

// NewCollector creates a collector sampling src.
func NewCollector(src SpaceSource) *Collector {
	return &Collector{
		src: src,
		entities: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "space", "entities"),
			"Entities registered in the object space.",
			nil, nil),
		needsSave: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "space", "needs_save"),
			"1 if the object space has state not yet acknowledged as durable.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entities
	ch <- c.needsSave
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.entities, prometheus.GaugeValue, float64(c.src.Len()))
	dirty := 0.0
	if c.src.NeedsSave() {
		dirty = 1
	}
	ch <- prometheus.MustNewConstMetric(c.needsSave, prometheus.GaugeValue, dirty)
}

// WatchSpace registers a Collector for src.
func (r *Registry) WatchSpace(src SpaceSource) error {
	return r.registry.Register(NewCollector(src))
}
