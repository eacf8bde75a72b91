// Package metrics exposes parsing counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values for LinesTotal.
const (
	ResultMatched   = "matched"
	ResultUnmatched = "unmatched"
)

// Collector holds the parsing counters. A nil *Collector is valid and
// records nothing.
type Collector struct {
	LinesTotal       *prometheus.CounterVec
	FieldErrorsTotal *prometheus.CounterVec
	RecordsWritten   *prometheus.CounterVec
	StatusTotal      *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		LinesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "alogparse",
				Name:      "lines_total",
				Help:      "Total number of input lines by match result.",
			},
			[]string{"result"},
		),
		FieldErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "alogparse",
				Name:      "field_errors_total",
				Help:      "Total number of field values that failed post-processing.",
			},
			[]string{"field"},
		),
		RecordsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "alogparse",
				Name:      "records_written_total",
				Help:      "Total number of records written, by sink.",
			},
			[]string{"sink"},
		),
		StatusTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "alogparse",
				Name:      "http_status_total",
				Help:      "Total number of parsed requests by HTTP status code.",
			},
			[]string{"status"},
		),
	}
}

func (c *Collector) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		c.LinesTotal,
		c.FieldErrorsTotal,
		c.RecordsWritten,
		c.StatusTotal,
	)
}

func (c *Collector) Matched() {
	if c == nil {
		return
	}
	c.LinesTotal.WithLabelValues(ResultMatched).Inc()
}

func (c *Collector) Unmatched() {
	if c == nil {
		return
	}
	c.LinesTotal.WithLabelValues(ResultUnmatched).Inc()
}

func (c *Collector) FieldError(field string) {
	if c == nil {
		return
	}
	c.FieldErrorsTotal.WithLabelValues(field).Inc()
}

func (c *Collector) Written(sink string) {
	if c == nil {
		return
	}
	c.RecordsWritten.WithLabelValues(sink).Inc()
}

// Status counts one response with the given status code. Empty and "-"
// values are ignored.
func (c *Collector) Status(status string) {
	if c == nil || status == "" || status == "-" {
		return
	}
	c.StatusTotal.WithLabelValues(status).Inc()
}
