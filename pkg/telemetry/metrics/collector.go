package metrics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"askmeter-hq/askproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrUnknownInstrument is returned when a name matches no instrument of
	// the requested kind.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrNegativeDelta is returned when a counter would be decremented.
	ErrNegativeDelta = errors.New("counter delta must be non-negative")

	// ErrLabelRequired is returned when a per-user counter is incremented
	// without a label value.
	ErrLabelRequired = errors.New("label value required")

	// ErrUnexpectedLabel is returned when a label is given for an unlabeled counter.
	ErrUnexpectedLabel = errors.New("instrument takes no label")
)

// LabelPolicy maps a caller-supplied user identifier to the label value
// recorded on per-user series. Implementations bound cardinality.
//
// Label may reserve a series for a new user. Peek reports the current
// mapping and never reserves one.
type LabelPolicy interface {
	Label(user string) string
	Peek(user string) string
}

// Collector owns every instrument of the metering pipeline for the lifetime
// of the process. Each instrument is independently synchronized, so updates
// from concurrent requests never lose increments and no lock is held across
// calls into the Collector.
//
// A Collector is constructed explicitly and injected; there are no package
// level instruments, so tests can build isolated registries.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry
	labels   LabelPolicy

	requestMetrics *RequestMetrics
	costMetrics    *CostMetrics
	cacheMetrics   *CacheMetrics

	// Name lookup tables for the generic operations. Built once in
	// NewCollector and read-only afterwards.
	counters     map[string]prometheus.Counter
	userCounters map[string]*prometheus.CounterVec
	histograms   map[string]prometheus.Histogram
	gauges       map[string]prometheus.Gauge
}

// Option configures a Collector.
type Option func(*Collector)

// WithLabelPolicy bounds per-user label values with p. Without it, user
// identifiers are recorded verbatim.
func WithLabelPolicy(p LabelPolicy) Option {
	return func(c *Collector) {
		c.labels = p
	}
}

// NewCollector creates a metrics collector registering its instruments with
// registry. If registry is nil a fresh one is created. Zero-valued fields of
// cfg fall back to the package defaults; cfg itself is not modified.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil,
//		metrics.WithLabelPolicy(policy))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry, opts ...Option) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	local := config.MetricsConfig{}
	if cfg != nil {
		local = *cfg
	}
	if local.Namespace == "" {
		local.Namespace = config.DefaultMetricsNamespace
	}
	if len(local.RequestLatencyBuckets) == 0 {
		local.RequestLatencyBuckets = config.DefaultRequestLatencyBuckets
	}
	if len(local.ResponseLatencyBuckets) == 0 {
		local.ResponseLatencyBuckets = config.DefaultResponseLatencyBuckets
	}

	c := &Collector{
		config:   local,
		registry: registry,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.requestMetrics = NewRequestMetrics(&c.config, registry)
	c.costMetrics = NewCostMetrics(&c.config, registry)
	c.cacheMetrics = NewCacheMetrics(&c.config, registry)

	rm, cm := c.requestMetrics, c.costMetrics
	c.counters = map[string]prometheus.Counter{
		NameRequests:         rm.requestsTotal,
		NameErrors:           rm.errorsTotal,
		NameTokens:           rm.tokensTotal,
		NamePromptTokens:     rm.promptTokensTotal,
		NameCompletionTokens: rm.completionTokensTotal,
		NameRateLimited:      rm.rateLimitedTotal,
		NameCost:             cm.costTotal,
	}
	c.userCounters = map[string]*prometheus.CounterVec{
		NameRequestsByUser: rm.requestsByUser,
		NameUserCost:       cm.userCostTotal,
	}
	c.histograms = map[string]prometheus.Histogram{
		NameRequestLatency:  rm.requestLatency,
		NameResponseLatency: rm.responseLatency,
	}
	c.gauges = map[string]prometheus.Gauge{
		NameCacheSavings: c.cacheMetrics.savingsRatio,
		NameSuccessRatio: rm.successRatio,
	}

	return c
}

// SuccessSample carries everything derived from one successful upstream call.
type SuccessSample struct {
	User             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             float64
}

func (s SuccessSample) validate() error {
	if s.PromptTokens < 0 || s.CompletionTokens < 0 || s.TotalTokens < 0 {
		return fmt.Errorf("negative token count in sample: %w", ErrNegativeDelta)
	}
	if s.Cost < 0 {
		return fmt.Errorf("negative cost in sample: %w", ErrNegativeDelta)
	}
	return nil
}

// RecordSuccess applies the success-side updates of one call: request
// counters, token counters, cost counters, per-user series and the simulated
// cache gauge.
//
// The sample is validated and the per-user series resolved before anything
// is written, so an invalid sample results in no updates at all.
func (c *Collector) RecordSuccess(s SuccessSample) error {
	if err := s.validate(); err != nil {
		return err
	}

	label := c.UserLabel(s.User)
	byUser, err := c.requestMetrics.requestsByUser.GetMetricWithLabelValues(label)
	if err != nil {
		return fmt.Errorf("resolve %s series: %w", NameRequestsByUser, err)
	}
	userCost, err := c.costMetrics.userCostTotal.GetMetricWithLabelValues(label)
	if err != nil {
		return fmt.Errorf("resolve %s series: %w", NameUserCost, err)
	}

	rm := c.requestMetrics
	rm.requestsTotal.Inc()
	byUser.Inc()
	rm.tokensTotal.Add(float64(s.TotalTokens))
	rm.promptTokensTotal.Add(float64(s.PromptTokens))
	rm.completionTokensTotal.Add(float64(s.CompletionTokens))
	c.costMetrics.costTotal.Add(s.Cost)
	userCost.Add(s.Cost)
	c.cacheMetrics.savingsRatio.Set(SimulatedCacheSavings)

	return nil
}

// RecordFailure counts one failed call.
func (c *Collector) RecordFailure() {
	c.requestMetrics.errorsTotal.Inc()
}

// ObserveLatency records the duration of one upstream call.
func (c *Collector) ObserveLatency(d time.Duration) {
	c.requestMetrics.requestLatency.Observe(d.Seconds())
}

// UserLabel returns the label value recorded for user after the label
// policy is applied.
func (c *Collector) UserLabel(user string) string {
	if c.labels == nil {
		return user
	}
	return c.labels.Label(user)
}

// PeekUserLabel returns the label user currently maps to without admitting
// it under the label policy. Failed calls use it so they never take a slot.
func (c *Collector) PeekUserLabel(user string) string {
	if c.labels == nil {
		return user
	}
	return c.labels.Peek(user)
}

// IncrementCounter adds delta to the named counter. Per-user counters take
// the user as label, which is passed through the label policy; unlabeled
// counters require an empty label. Names may be given with or without the
// namespace prefix.
func (c *Collector) IncrementCounter(name, label string, delta float64) error {
	if delta < 0 {
		return fmt.Errorf("%s: %w", name, ErrNegativeDelta)
	}
	short := c.shortName(name)

	if counter, ok := c.counters[short]; ok {
		if label != "" {
			return fmt.Errorf("%s: %w", name, ErrUnexpectedLabel)
		}
		counter.Add(delta)
		return nil
	}

	if vec, ok := c.userCounters[short]; ok {
		if label == "" {
			return fmt.Errorf("%s: %w", name, ErrLabelRequired)
		}
		counter, err := vec.GetMetricWithLabelValues(c.UserLabel(label))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		counter.Add(delta)
		return nil
	}

	return fmt.Errorf("counter %q: %w", name, ErrUnknownInstrument)
}

// ObserveHistogram records value into the named histogram.
func (c *Collector) ObserveHistogram(name string, value float64) error {
	h, ok := c.histograms[c.shortName(name)]
	if !ok {
		return fmt.Errorf("histogram %q: %w", name, ErrUnknownInstrument)
	}
	h.Observe(value)
	return nil
}

// SetGauge overwrites the named gauge. Last write wins.
func (c *Collector) SetGauge(name string, value float64) error {
	g, ok := c.gauges[c.shortName(name)]
	if !ok {
		return fmt.Errorf("gauge %q: %w", name, ErrUnknownInstrument)
	}
	g.Set(value)
	return nil
}

func (c *Collector) shortName(name string) string {
	return strings.TrimPrefix(name, c.config.Namespace+"_")
}

// Namespace returns the metric name prefix in use.
func (c *Collector) Namespace() string {
	return c.config.Namespace
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
