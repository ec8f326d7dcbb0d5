package cu

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a compilation unit's aggregate sizes as Prometheus
// gauges, additive instrumentation in the same style as the diagnostic
// engine's collector.
type cuCollector struct {
	cu          *CompilationUnit
	tuDesc      *prometheus.Desc
	exportsDesc *prometheus.Desc
}

// Collector returns a prometheus.Collector reporting the number of
// attached translation units and the export table's size.
func Collector(cu *CompilationUnit) prometheus.Collector {
	return &cuCollector{
		cu: cu,
		tuDesc: prometheus.NewDesc(
			"cuik_translation_units",
			"Number of translation units attached to the compilation unit.",
			nil, nil,
		),
		exportsDesc: prometheus.NewDesc(
			"cuik_export_table_size",
			"Number of declarations in the compilation unit's export table.",
			nil, nil,
		),
	}
}

func (c *cuCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tuDesc
	ch <- c.exportsDesc
}

func (c *cuCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.tuDesc, prometheus.GaugeValue, float64(c.cu.Count()))
	ch <- prometheus.MustNewConstMetric(c.exportsDesc, prometheus.GaugeValue, float64(c.cu.ExportCount()))
}
