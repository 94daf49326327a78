package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"askmeter-hq/askproxy/pkg/config"
)

func testConfig(endpoint string) config.UpstreamConfig {
	return config.UpstreamConfig{
		Endpoint:   endpoint,
		APIKey:     "test-key-123456",
		Deployment: "gpt-test",
		APIVersion: config.DefaultAPIVersion,
		MaxTokens:  500,
		Timeout:    5 * time.Second,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, server
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name       string
		endpoint   string
		deployment string
		want       string
	}{
		{
			name:       "plain",
			endpoint:   "https://res.openai.azure.com",
			deployment: "gpt4",
			want:       "https://res.openai.azure.com/openai/deployments/gpt4/chat/completions?api-version=2024-12-01-preview",
		},
		{
			name:       "trailing slash trimmed",
			endpoint:   "https://res.openai.azure.com/",
			deployment: "gpt4",
			want:       "https://res.openai.azure.com/openai/deployments/gpt4/chat/completions?api-version=2024-12-01-preview",
		},
		{
			name:       "deployment escaped",
			endpoint:   "https://res.openai.azure.com",
			deployment: "my deploy",
			want:       "https://res.openai.azure.com/openai/deployments/my%20deploy/chat/completions?api-version=2024-12-01-preview",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildURL(tt.endpoint, tt.deployment, "2024-12-01-preview")
			if got != tt.want {
				t.Errorf("BuildURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_RequiresEndpointAndDeployment(t *testing.T) {
	cfg := testConfig("")
	if _, err := New(cfg); err == nil {
		t.Error("expected error for missing endpoint")
	}

	cfg = testConfig("http://localhost")
	cfg.Deployment = ""
	if _, err := New(cfg); err == nil {
		t.Error("expected error for missing deployment")
	}
}

func TestComplete_Success(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotContentType string
	var gotBody chatRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("api-key")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Paris."}}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150}
		}`))
	})

	got, err := client.Complete(context.Background(), "Capital of France?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if got.Answer != "Paris." {
		t.Errorf("Answer = %q, want %q", got.Answer, "Paris.")
	}
	if got.Usage.PromptTokens != 100 || got.Usage.CompletionTokens != 50 || got.Usage.TotalTokens != 150 {
		t.Errorf("Usage = %+v", got.Usage)
	}

	if gotPath != "/openai/deployments/gpt-test/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != config.DefaultAPIVersion {
		t.Errorf("api-version = %q", gotQuery)
	}
	if gotKey != "test-key-123456" {
		t.Errorf("api-key header = %q", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody.MaxTokens != 500 {
		t.Errorf("max_tokens = %d, want 500", gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" || gotBody.Messages[0].Content != "Capital of France?" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestComplete_TotalTokensDefaultsToSum(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "absent total",
			body: `{"choices":[{"message":{"content":"x"}}],"usage":{"prompt_tokens":7,"completion_tokens":3}}`,
			want: 10,
		},
		{
			name: "explicit zero total is kept",
			body: `{"choices":[{"message":{"content":"x"}}],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":0}}`,
			want: 0,
		},
		{
			name: "no usage object",
			body: `{"choices":[{"message":{"content":"x"}}]}`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := client.Complete(context.Background(), "q")
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if got.Usage.TotalTokens != tt.want {
				t.Errorf("TotalTokens = %d, want %d", got.Usage.TotalTokens, tt.want)
			}
		})
	}
}

func TestComplete_EmptyAnswerIsValid(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""}}],"usage":{"prompt_tokens":1,"completion_tokens":0,"total_tokens":1}}`))
	})

	got, err := client.Complete(context.Background(), "q")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Answer != "" {
		t.Errorf("Answer = %q, want empty", got.Answer)
	}
}

func TestComplete_StatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":"401","message":"Access denied"}}`},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`},
		{"server error", http.StatusInternalServerError, "boom"},
		{"redirect without location", http.StatusMultipleChoices, "choices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), "q")
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StatusError, got %T: %v", err, err)
			}
			if se.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.status)
			}
			if se.Body != tt.body {
				t.Errorf("Body = %q, want %q", se.Body, tt.body)
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("expected exactly one attempt, got %d", n)
			}
		})
	}
}

func TestComplete_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[],"usage":{}}`},
		{"no message", `{"choices":[{}]}`},
		{"null content", `{"choices":[{"message":{"content":null}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), "q")
			var me *MalformedResponseError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedResponseError, got %T: %v", err, err)
			}
			if me.RawResponse != tt.body {
				t.Errorf("RawResponse = %q", me.RawResponse)
			}
		})
	}
}

func TestComplete_UndecodableResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html", `<html>oops</html>`},
		{"truncated", `{"choices":[{"message":`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), "q")
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T: %v", err, err)
			}
			var me *MalformedResponseError
			if errors.As(err, &me) {
				t.Error("undecodable body must not be reported as malformed")
			}
			if de.StatusCode != http.StatusOK {
				t.Errorf("StatusCode = %d, want 200", de.StatusCode)
			}
			if de.RawResponse != tt.body {
				t.Errorf("RawResponse = %q", de.RawResponse)
			}
			if de.Cause == nil {
				t.Error("expected the JSON error as cause")
			}
		})
	}
}

func TestComplete_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Complete(context.Background(), "q")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if strings.Contains(te.URL, "api-version") {
		t.Errorf("URL should not include the query string: %q", te.URL)
	}
}

func TestComplete_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Errorf("expected *TransportError, got %T", err)
	}
}

func TestComplete_InjectsTraceContext(t *testing.T) {
	var traceparent string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	})

	// The global propagator is a no-op until tracing is configured, so no
	// header is expected here; the call must still succeed.
	if _, err := client.Complete(context.Background(), "q"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if traceparent != "" {
		t.Errorf("unexpected traceparent %q without an active span", traceparent)
	}
}
