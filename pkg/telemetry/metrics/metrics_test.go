package metrics

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"askmeter-hq/askproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Namespace:              "openai",
		RequestLatencyBuckets:  []float64{0.5, 1, 2, 3, 5, 10},
		ResponseLatencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}
}

type prefixPolicy struct{ allowed map[string]bool }

func (p prefixPolicy) Label(user string) string {
	if p.allowed[user] {
		return user
	}
	return "other"
}

func (p prefixPolicy) Peek(user string) string {
	return p.Label(user)
}

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if collector.Namespace() != "openai" {
		t.Errorf("expected namespace openai, got %q", collector.Namespace())
	}
}

func TestCollector_DefaultsWithNilConfig(t *testing.T) {
	collector := NewCollector(nil, nil)

	if collector.Registry() == nil {
		t.Fatal("expected a fresh registry")
	}
	if err := collector.IncrementCounter("openai_requests_total", "", 1); err != nil {
		t.Fatalf("expected default namespace, got %v", err)
	}
}

func TestCollector_IsolatedRegistries(t *testing.T) {
	a := NewCollector(testConfig(), nil)
	b := NewCollector(testConfig(), nil)

	a.RecordFailure()

	if got := testutil.ToFloat64(b.requestMetrics.errorsTotal); got != 0 {
		t.Errorf("expected isolated collector to be untouched, got %v", got)
	}
}

func TestCollector_RecordSuccess(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	err := collector.RecordSuccess(SuccessSample{
		User:             "alice",
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		Cost:             0.00025,
	})
	if err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	rm, cm := collector.requestMetrics, collector.costMetrics
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"requests", testutil.ToFloat64(rm.requestsTotal), 1},
		{"errors", testutil.ToFloat64(rm.errorsTotal), 0},
		{"tokens", testutil.ToFloat64(rm.tokensTotal), 150},
		{"prompt tokens", testutil.ToFloat64(rm.promptTokensTotal), 100},
		{"completion tokens", testutil.ToFloat64(rm.completionTokensTotal), 50},
		{"by user", testutil.ToFloat64(rm.requestsByUser.WithLabelValues("alice")), 1},
		{"user cost", testutil.ToFloat64(cm.userCostTotal.WithLabelValues("alice")), 0.00025},
		{"cost", testutil.ToFloat64(cm.costTotal), 0.00025},
		{"cache savings", testutil.ToFloat64(collector.cacheMetrics.savingsRatio), SimulatedCacheSavings},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-12 {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, c.got)
		}
	}
}

func TestCollector_RecordSuccess_InvalidSampleAppliesNothing(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	tests := []struct {
		name   string
		sample SuccessSample
	}{
		{"negative prompt tokens", SuccessSample{User: "alice", PromptTokens: -1}},
		{"negative total tokens", SuccessSample{User: "alice", TotalTokens: -10}},
		{"negative cost", SuccessSample{User: "alice", Cost: -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := collector.RecordSuccess(tt.sample)
			if !errors.Is(err, ErrNegativeDelta) {
				t.Fatalf("expected ErrNegativeDelta, got %v", err)
			}
		})
	}

	if got := testutil.ToFloat64(collector.requestMetrics.requestsTotal); got != 0 {
		t.Errorf("expected no request increments, got %v", got)
	}
	if got := testutil.CollectAndCount(collector.requestMetrics.requestsByUser); got != 0 {
		t.Errorf("expected no per-user series, got %d", got)
	}
	if got := testutil.ToFloat64(collector.cacheMetrics.savingsRatio); got != 0 {
		t.Errorf("expected cache gauge unset, got %v", got)
	}
}

func TestCollector_PerUserAttribution(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	for _, user := range []string{"alice", "bob", "alice"} {
		if err := collector.RecordSuccess(SuccessSample{User: user, TotalTokens: 1}); err != nil {
			t.Fatalf("RecordSuccess failed: %v", err)
		}
	}

	byUser := collector.requestMetrics.requestsByUser
	if got := testutil.ToFloat64(byUser.WithLabelValues("alice")); got != 2 {
		t.Errorf("expected alice=2, got %v", got)
	}
	if got := testutil.ToFloat64(byUser.WithLabelValues("bob")); got != 1 {
		t.Errorf("expected bob=1, got %v", got)
	}
}

func TestCollector_LabelPolicy(t *testing.T) {
	collector := NewCollector(testConfig(), nil,
		WithLabelPolicy(prefixPolicy{allowed: map[string]bool{"alice": true}}))

	for _, user := range []string{"alice", "mallory", "eve"} {
		if err := collector.RecordSuccess(SuccessSample{User: user, Cost: 1}); err != nil {
			t.Fatalf("RecordSuccess failed: %v", err)
		}
	}

	byUser := collector.requestMetrics.requestsByUser
	if got := testutil.CollectAndCount(byUser); got != 2 {
		t.Errorf("expected 2 series (alice, other), got %d", got)
	}
	if got := testutil.ToFloat64(byUser.WithLabelValues("other")); got != 2 {
		t.Errorf("expected other=2, got %v", got)
	}
	if got := testutil.ToFloat64(collector.costMetrics.userCostTotal.WithLabelValues("other")); got != 2 {
		t.Errorf("expected other cost=2, got %v", got)
	}
	if collector.UserLabel("eve") != "other" {
		t.Errorf("expected UserLabel to apply the policy")
	}
	if collector.PeekUserLabel("alice") != "alice" || collector.PeekUserLabel("eve") != "other" {
		t.Errorf("expected PeekUserLabel to apply the policy")
	}
}

func TestCollector_FailureAndLatency(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.ObserveLatency(1500 * time.Millisecond)
	collector.RecordFailure()

	if got := testutil.ToFloat64(collector.requestMetrics.errorsTotal); got != 1 {
		t.Errorf("expected errors=1, got %v", got)
	}
	if got := testutil.ToFloat64(collector.requestMetrics.requestsTotal); got != 0 {
		t.Errorf("expected requests=0, got %v", got)
	}

	totals, err := collector.Totals()
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.LatencyCount != 1 || totals.LatencySum != 1.5 {
		t.Errorf("expected one 1.5s observation, got count=%d sum=%v", totals.LatencyCount, totals.LatencySum)
	}
}

func TestCollector_IncrementCounter(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	tests := []struct {
		name    string
		counter string
		label   string
		delta   float64
		wantErr error
	}{
		{name: "short name", counter: NameTokens, delta: 10},
		{name: "qualified name", counter: "openai_tokens_total", delta: 5},
		{name: "labeled", counter: NameRequestsByUser, label: "carol", delta: 1},
		{name: "unknown", counter: "bogus_total", delta: 1, wantErr: ErrUnknownInstrument},
		{name: "negative", counter: NameTokens, delta: -1, wantErr: ErrNegativeDelta},
		{name: "label on plain counter", counter: NameTokens, label: "carol", delta: 1, wantErr: ErrUnexpectedLabel},
		{name: "missing label", counter: NameUserCost, delta: 1, wantErr: ErrLabelRequired},
		{name: "gauge is not a counter", counter: NameCacheSavings, delta: 1, wantErr: ErrUnknownInstrument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := collector.IncrementCounter(tt.counter, tt.label, tt.delta)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if got := testutil.ToFloat64(collector.requestMetrics.tokensTotal); got != 15 {
		t.Errorf("expected tokens=15, got %v", got)
	}
	if got := testutil.ToFloat64(collector.requestMetrics.requestsByUser.WithLabelValues("carol")); got != 1 {
		t.Errorf("expected carol=1, got %v", got)
	}
}

func TestCollector_ObserveHistogramAndSetGauge(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	if err := collector.ObserveHistogram(NameResponseLatency, 0.3); err != nil {
		t.Fatalf("ObserveHistogram failed: %v", err)
	}
	if err := collector.ObserveHistogram("nope", 1); !errors.Is(err, ErrUnknownInstrument) {
		t.Errorf("expected ErrUnknownInstrument, got %v", err)
	}
	if got := testutil.CollectAndCount(collector.requestMetrics.responseLatency); got != 1 {
		t.Errorf("expected one histogram series, got %d", got)
	}

	if err := collector.SetGauge(NameSuccessRatio, 0.9); err != nil {
		t.Fatalf("SetGauge failed: %v", err)
	}
	if err := collector.SetGauge(NameSuccessRatio, 0.7); err != nil {
		t.Fatalf("SetGauge failed: %v", err)
	}
	if got := testutil.ToFloat64(collector.requestMetrics.successRatio); got != 0.7 {
		t.Errorf("expected last write to win, got %v", got)
	}
	if err := collector.SetGauge(NameTokens, 1); !errors.Is(err, ErrUnknownInstrument) {
		t.Errorf("expected ErrUnknownInstrument, got %v", err)
	}
}

func TestCollector_ConcurrentSuccess(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			user := "alice"
			if i%2 == 1 {
				user = "bob"
			}
			_ = collector.RecordSuccess(SuccessSample{
				User:             user,
				PromptTokens:     10,
				CompletionTokens: 5,
				TotalTokens:      15,
				Cost:             0.25,
			})
			collector.ObserveLatency(time.Second)
		}(i)
	}
	wg.Wait()

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.tokensTotal); got != n*15 {
		t.Errorf("expected tokens=%d, got %v", n*15, got)
	}
	if got := testutil.ToFloat64(rm.requestsTotal); got != n {
		t.Errorf("expected requests=%d, got %v", n, got)
	}
	if got := testutil.ToFloat64(rm.requestsByUser.WithLabelValues("alice")); got != n/2 {
		t.Errorf("expected alice=%d, got %v", n/2, got)
	}
	if got := testutil.ToFloat64(collector.costMetrics.costTotal); got != n*0.25 {
		t.Errorf("expected cost=%v, got %v", n*0.25, got)
	}
}

func TestCollector_RenderIsStable(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	_ = collector.RecordSuccess(SuccessSample{User: "alice", PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3, Cost: 0.1})
	collector.ObserveLatency(700 * time.Millisecond)

	first, err := collector.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	second, err := collector.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("expected identical renders\nfirst:\n%s\nsecond:\n%s", first, second)
	}

	text := string(first)
	for _, want := range []string{
		"# TYPE openai_requests_total counter",
		"openai_requests_total 1",
		`openai_requests_by_user_total{user="alice"} 1`,
		"# TYPE openai_request_latency_seconds histogram",
		`openai_request_latency_seconds_bucket{le="1"} 1`,
		"openai_cache_savings_ratio 0.18",
		"openai_rate_limited_total 0",
		"openai_success_ratio 0",
		"openai_response_latency_seconds_count 0",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("render missing %q", want)
		}
	}
}

func TestCollector_RenderConcurrentWithUpdates(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = collector.RecordSuccess(SuccessSample{User: "alice", TotalTokens: 1})
			}
		}
	}()

	var last float64
	for i := 0; i < 50; i++ {
		if _, err := collector.Render(); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		totals, err := collector.Totals()
		if err != nil {
			t.Fatalf("Totals failed: %v", err)
		}
		if totals.Tokens < last {
			t.Fatalf("token counter went backwards: %v after %v", totals.Tokens, last)
		}
		last = totals.Tokens
	}
	close(stop)
	wg.Wait()
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordFailure()

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "openai_errors_total 1") {
		t.Errorf("expected error counter in body, got:\n%s", rec.Body.String())
	}
}

func TestCollector_Totals(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	_ = collector.RecordSuccess(SuccessSample{User: "alice", PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Cost: 0.00025})
	collector.RecordFailure()

	totals, err := collector.Totals()
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.Requests != 1 || totals.Errors != 1 || totals.Tokens != 150 {
		t.Errorf("unexpected totals: %+v", totals)
	}
	if totals.ByUser["alice"] != 1 {
		t.Errorf("expected alice=1 in totals, got %v", totals.ByUser)
	}
	if totals.CacheSavings != SimulatedCacheSavings {
		t.Errorf("expected cache savings %v, got %v", SimulatedCacheSavings, totals.CacheSavings)
	}
}
