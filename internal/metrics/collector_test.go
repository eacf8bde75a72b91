package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	r := require.New(t)

	c := NewCollector()
	reg := prometheus.NewRegistry()
	c.Register(reg)

	c.Matched()
	c.Matched()
	c.Unmatched()
	c.FieldError("time")
	c.Written("ndjson")
	c.Status("200")
	c.Status("-")
	c.Status("")

	r.Equal(2.0, testutil.ToFloat64(c.LinesTotal.WithLabelValues(ResultMatched)))
	r.Equal(1.0, testutil.ToFloat64(c.LinesTotal.WithLabelValues(ResultUnmatched)))
	r.Equal(1.0, testutil.ToFloat64(c.FieldErrorsTotal.WithLabelValues("time")))
	r.Equal(1.0, testutil.ToFloat64(c.RecordsWritten.WithLabelValues("ndjson")))
	r.Equal(1, testutil.CollectAndCount(c.StatusTotal))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP alogparse_lines_total Total number of input lines by match result.
# TYPE alogparse_lines_total counter
alogparse_lines_total{result="matched"} 2
alogparse_lines_total{result="unmatched"} 1
`), "alogparse_lines_total")
	r.NoError(err)
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.Matched()
		c.Unmatched()
		c.FieldError("time")
		c.Written("sqlite")
		c.Status("404")
	})
}

func TestCollector_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector().Register(reg)
	require.Panics(t, func() { NewCollector().Register(reg) })
}
