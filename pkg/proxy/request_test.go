package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseAskRequest(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxBytes int64
		wantErr  string
		wantQ    string
		wantUser string
	}{
		{name: "question and user", body: `{"question":"hi","user":"alice"}`, wantQ: "hi", wantUser: "alice"},
		{name: "question only", body: `{"question":"hi"}`, wantQ: "hi"},
		{name: "whitespace question", body: `{"question":"  "}`, wantQ: "  "},
		{name: "unknown fields ignored", body: `{"question":"hi","extra":1}`, wantQ: "hi"},
		{name: "missing question", body: `{"user":"alice"}`, wantErr: MissingQuestionMessage},
		{name: "empty question", body: `{"question":""}`, wantErr: MissingQuestionMessage},
		{name: "null question", body: `{"question":null}`, wantErr: MissingQuestionMessage},
		{name: "empty body", body: ``, wantErr: MissingQuestionMessage},
		{name: "not json", body: `question=hi`, wantErr: "invalid JSON"},
		{name: "wrong type", body: `{"question":42}`, wantErr: "invalid JSON"},
		{name: "too large", body: `{"question":"` + strings.Repeat("a", 64) + `"}`, maxBytes: 16, wantErr: "exceeds maximum size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			req, err := ParseAskRequest(w, r, tt.maxBytes)
			if tt.wantErr != "" {
				var invalid *InvalidRequestError
				if !errors.As(err, &invalid) {
					t.Fatalf("expected InvalidRequestError, got %T: %v", err, err)
				}
				if !strings.Contains(invalid.Message, tt.wantErr) {
					t.Errorf("message = %q, want it to contain %q", invalid.Message, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Question != tt.wantQ || req.User != tt.wantUser {
				t.Errorf("got %+v", req)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, &UpstreamError{StatusCode: 429, Body: "slow down"})

	if w.Code != 429 {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Detail != "slow down" {
		t.Errorf("detail = %q", body.Detail)
	}
}
