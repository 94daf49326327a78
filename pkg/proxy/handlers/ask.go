package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"askmeter-hq/askproxy/pkg/proxy"
)

// Asker answers one question. *proxy.Asker implements it.
type Asker interface {
	Ask(ctx context.Context, req proxy.CompletionRequest) (*proxy.AskResult, error)
}

// AskHandler serves POST /ask.
type AskHandler struct {
	asker        Asker
	maxBodyBytes int64
}

// NewAskHandler creates the /ask handler. maxBodyBytes <= 0 uses
// proxy.DefaultMaxBodyBytes.
func NewAskHandler(asker Asker, maxBodyBytes int64) *AskHandler {
	return &AskHandler{asker: asker, maxBodyBytes: maxBodyBytes}
}

// ServeHTTP implements http.Handler.
//
// Success returns 200 with {answer, usage, latency, cost}. Errors return
// {"detail": message} with the status chosen by proxy.HTTPStatus.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := proxy.ParseAskRequest(w, r, h.maxBodyBytes)
	if err != nil {
		slog.WarnContext(ctx, "rejected ask request", "error", err)
		proxy.WriteError(w, err)
		return
	}

	result, err := h.asker.Ask(ctx, *req)
	if err != nil {
		// Ask has already logged and metered the failure.
		proxy.WriteError(w, err)
		return
	}

	proxy.WriteJSONResponse(w, http.StatusOK, result)
}
