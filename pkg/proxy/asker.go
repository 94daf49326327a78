package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/costs"
	"askmeter-hq/askproxy/pkg/ledger"
	"askmeter-hq/askproxy/pkg/telemetry/logging"
	"askmeter-hq/askproxy/pkg/telemetry/metrics"
	"askmeter-hq/askproxy/pkg/telemetry/tracing"
	"askmeter-hq/askproxy/pkg/upstream"
)

// Completer sends one question upstream. *upstream.Client implements it.
type Completer interface {
	Complete(ctx context.Context, question string) (*upstream.Completion, error)
}

// UsageRecorder persists per-call usage without blocking.
// *recorder.Recorder implements it.
type UsageRecorder interface {
	Record(record *ledger.Record) bool
}

// Asker runs the metering pipeline for one question: call upstream, time
// the call, derive tokens and cost, and publish the measurements.
type Asker struct {
	client      Completer
	metrics     *metrics.Collector
	calculator  *costs.Calculator
	recorder    UsageRecorder
	tracer      *tracing.Tracer
	timeout     time.Duration
	defaultUser string
	logger      *slog.Logger
}

// AskerOption configures an Asker.
type AskerOption func(*Asker)

// WithRecorder enables the usage ledger.
func WithRecorder(r UsageRecorder) AskerOption {
	return func(a *Asker) {
		a.recorder = r
	}
}

// WithTracer wraps each upstream call in a span.
func WithTracer(t *tracing.Tracer) AskerOption {
	return func(a *Asker) {
		a.tracer = t
	}
}

// WithTimeout bounds each upstream call. Zero disables the bound.
func WithTimeout(d time.Duration) AskerOption {
	return func(a *Asker) {
		a.timeout = d
	}
}

// WithDefaultUser sets the user recorded when a request names none.
func WithDefaultUser(user string) AskerOption {
	return func(a *Asker) {
		if user != "" {
			a.defaultUser = user
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) AskerOption {
	return func(a *Asker) {
		a.logger = l
	}
}

// NewAsker creates an Asker. The client, collector and calculator are
// required.
func NewAsker(client Completer, collector *metrics.Collector, calculator *costs.Calculator, opts ...AskerOption) *Asker {
	a := &Asker{
		client:      client,
		metrics:     collector,
		calculator:  calculator,
		tracer:      tracing.Noop(),
		timeout:     config.DefaultUpstreamTimeout,
		defaultUser: config.DefaultUser,
		logger:      slog.Default().With("component", "proxy"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask forwards req.Question upstream and returns the answer with usage,
// latency and cost.
//
// Errors are *InvalidRequestError, *UpstreamError or *InternalError; use
// HTTPStatus to map them. Metrics are updated as follows:
//   - invalid request: nothing
//   - any other failure: error counter +1 and the latency observation
//   - success: latency observation and every success-side instrument
//
// A call whose context ends before the response is used counts as a
// failure, even if the upstream answered.
func (a *Asker) Ask(ctx context.Context, req CompletionRequest) (*AskResult, error) {
	if req.Question == "" {
		return nil, &InvalidRequestError{Message: MissingQuestionMessage}
	}

	user := req.User
	if user == "" {
		user = a.defaultUser
	}
	ctx = logging.WithUser(ctx, user)

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	callCtx, span := a.tracer.Start(callCtx, "upstream.chat_completion")
	tracing.SetRequestAttributes(span, logging.GetRequestID(ctx), user)

	start := time.Now()
	completion, err := a.client.Complete(callCtx, req.Question)
	latency := time.Since(start)

	if err == nil && callCtx.Err() != nil {
		err = fmt.Errorf("upstream call abandoned: %w", callCtx.Err())
	}

	a.metrics.ObserveLatency(latency)

	if err != nil {
		askErr := classify(err)
		tracing.SetStatus(span, askErr)
		span.End()
		a.fail(ctx, user, latency, askErr)
		return nil, askErr
	}

	estimate := a.calculator.Calculate(completion.Usage)
	sample := metrics.SuccessSample{
		User:             user,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
		Cost:             estimate.TotalCost,
	}
	if err := a.metrics.RecordSuccess(sample); err != nil {
		askErr := &UpstreamError{
			StatusCode: 502,
			Body:       fmt.Sprintf("invalid usage in upstream response: %v", err),
			Cause:      err,
		}
		tracing.SetStatus(span, askErr)
		span.End()
		a.fail(ctx, user, latency, askErr)
		return nil, askErr
	}

	tracing.SetUsageAttributes(span,
		completion.Usage.PromptTokens,
		completion.Usage.CompletionTokens,
		completion.Usage.TotalTokens,
		estimate.TotalCost,
	)
	tracing.SetStatus(span, nil)
	span.End()

	result := &AskResult{
		Answer:  completion.Answer,
		Usage:   completion.Usage,
		Latency: costs.Round(latency.Seconds(), costs.LatencyPlaces),
		Cost:    costs.Round(estimate.TotalCost, costs.CostPlaces),
	}

	a.record(ctx, &ledger.Record{
		User:             user,
		Status:           ledger.StatusSuccess,
		StatusCode:       200,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
		PromptCost:       estimate.PromptCost,
		CompletionCost:   estimate.CompletionCost,
		TotalCost:        estimate.TotalCost,
		Latency:          latency,
	})

	a.logger.InfoContext(ctx, "ask completed",
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"total_tokens", completion.Usage.TotalTokens,
		"cost", result.Cost,
		"latency_seconds", result.Latency,
	)

	return result, nil
}

// fail applies the failure-side updates for a call that reached upstream.
func (a *Asker) fail(ctx context.Context, user string, latency time.Duration, err error) {
	a.metrics.RecordFailure()

	status := ledger.StatusInternalError
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		status = ledger.StatusUpstreamError
	}

	a.record(ctx, &ledger.Record{
		User:       user,
		Status:     status,
		StatusCode: HTTPStatus(err),
		Latency:    latency,
		Error:      err.Error(),
	})

	a.logger.WarnContext(ctx, "ask failed",
		"status", HTTPStatus(err),
		"latency_seconds", costs.Round(latency.Seconds(), costs.LatencyPlaces),
		"error", err,
	)
}

func (a *Asker) record(ctx context.Context, rec *ledger.Record) {
	if a.recorder == nil {
		return
	}
	rec.RequestID = logging.GetRequestID(ctx)
	// Success already admitted the user in RecordSuccess; failures must not.
	rec.LabelUser = a.metrics.PeekUserLabel(rec.User)
	a.recorder.Record(rec)
}

// classify maps an upstream client error onto the Ask error taxonomy. Only a
// non-2xx status or a decoded body without an answer is an UpstreamError;
// undecodable bodies and transport failures are internal.
func classify(err error) error {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return &UpstreamError{
			StatusCode: statusErr.StatusCode,
			Body:       statusErr.Body,
			Cause:      err,
		}
	}

	var malformed *upstream.MalformedResponseError
	if errors.As(err, &malformed) {
		return &UpstreamError{
			StatusCode: 502,
			Body:       malformed.Error(),
			Cause:      err,
		}
	}

	return &InternalError{Message: err.Error(), Cause: err}
}
