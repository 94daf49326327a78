// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON or text output at a configurable level
//   - Redaction of API keys, bearer tokens and passwords in every attribute
//   - Request-scoped fields (request_id, user, trace_id, span_id) taken from
//     the context of *Context calls
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stdout))
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "ask completed", "total_tokens", 150)
//
// Redaction is applied by the slog.Handler itself, so loggers obtained from
// slog.Default() after SetDefault are covered as well.
package logging
