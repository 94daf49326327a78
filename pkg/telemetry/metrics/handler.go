package metrics

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	router.Handle("/metrics", collector.Handler())
//
// Scrapers that do not ask for OpenMetrics get the classic text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,

			// Errors in one collector should not hide the rest.
			ErrorHandling: promhttp.ContinueOnError,
		},
	)
}

// Render returns the text exposition of every registered instrument.
//
// Families are ordered by name and series by label value, so two renders with
// no updates in between are byte-identical. Render is safe to call
// concurrently with updates; each instrument is read atomically, but the
// result is not a cross-instrument snapshot.
func (c *Collector) Render() ([]byte, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// Totals is a point-in-time read of the unlabeled instruments.
type Totals struct {
	Requests         float64
	Errors           float64
	Tokens           float64
	PromptTokens     float64
	CompletionTokens float64
	Cost             float64
	CacheSavings     float64

	// LatencyCount is the number of latency observations and LatencySum
	// their total in seconds.
	LatencyCount uint64
	LatencySum   float64

	// ByUser maps label values to successful request counts.
	ByUser map[string]float64
}

// Totals gathers the registry and returns the current totals.
func (c *Collector) Totals() (Totals, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return Totals{}, fmt.Errorf("gather metrics: %w", err)
	}

	t := Totals{ByUser: make(map[string]float64)}
	prefix := c.config.Namespace + "_"
	for _, mf := range families {
		metrics := mf.GetMetric()
		if len(metrics) == 0 {
			continue
		}
		switch mf.GetName() {
		case prefix + NameRequests:
			t.Requests = metrics[0].GetCounter().GetValue()
		case prefix + NameErrors:
			t.Errors = metrics[0].GetCounter().GetValue()
		case prefix + NameTokens:
			t.Tokens = metrics[0].GetCounter().GetValue()
		case prefix + NamePromptTokens:
			t.PromptTokens = metrics[0].GetCounter().GetValue()
		case prefix + NameCompletionTokens:
			t.CompletionTokens = metrics[0].GetCounter().GetValue()
		case prefix + NameCost:
			t.Cost = metrics[0].GetCounter().GetValue()
		case prefix + NameCacheSavings:
			t.CacheSavings = metrics[0].GetGauge().GetValue()
		case prefix + NameRequestLatency:
			t.LatencyCount = metrics[0].GetHistogram().GetSampleCount()
			t.LatencySum = metrics[0].GetHistogram().GetSampleSum()
		case prefix + NameRequestsByUser:
			for _, m := range metrics {
				t.ByUser[labelValue(m, "user")] = m.GetCounter().GetValue()
			}
		}
	}
	return t, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
