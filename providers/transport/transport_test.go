package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/aibridge/core/retry"
	"github.com/leofalp/aibridge/providers/ai"
)

// TestHTTP_PostSendsHeadersAndBody verifies that Post forwards the JSON body
// and custom headers and returns the raw answer.
func TestHTTP_PostSendsHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"model":"m"}` {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("X-Trace", "abc")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := NewHTTP(Config{}, WithHTTPClient(server.Client()))
	res, err := tr.Post(context.Background(), server.URL, []byte(`{"model":"m"}`), RequestOptions{
		Headers: map[string]string{"Authorization": "Bearer secret"},
	})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !res.OK() || string(res.Body) != `{"ok":true}` || res.Header.Get("X-Trace") != "abc" {
		t.Errorf("unexpected response: %+v", res)
	}
}

// TestHTTP_NonSuccessIsReturnedAsResponse verifies that Post does not turn a
// non-2xx answer into an error.
func TestHTTP_NonSuccessIsReturnedAsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer server.Close()

	tr := NewHTTP(Config{}, WithHTTPClient(server.Client()))
	res, err := tr.Get(context.Background(), server.URL, RequestOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.OK() || res.Status != http.StatusBadRequest {
		t.Errorf("status = %d", res.Status)
	}
}

// TestHTTP_TimeoutIsRetryableTransportError verifies that the per-request
// timeout surfaces as a transport error the retry policy accepts.
func TestHTTP_TimeoutIsRetryableTransportError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	tr := NewHTTP(Config{}, WithHTTPClient(server.Client()))
	_, err := tr.Post(context.Background(), server.URL, []byte(`{}`), RequestOptions{Timeout: 20 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, ai.ErrTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
	if !retry.IsRetryable(err) {
		t.Errorf("timeout should be retryable: %v", err)
	}
}

// TestHTTP_StreamOutlivesRequestTimeout verifies that a stream keeps flowing
// after the request timeout once headers have arrived.
func TestHTTP_StreamOutlivesRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = io.WriteString(w, "{\"content\":\"a\"}\n")
		flusher.Flush()
		time.Sleep(150 * time.Millisecond)
		_, _ = io.WriteString(w, "{\"done\":true}\n")
	}))
	defer server.Close()

	tr := NewHTTP(Config{}, WithHTTPClient(server.Client()))
	body, err := tr.Stream(context.Background(), server.URL, []byte(`{}`), RequestOptions{Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != "{\"content\":\"a\"}\n{\"done\":true}\n" {
		t.Errorf("body = %q", data)
	}
}

// TestHTTP_StreamHeaderTimeout verifies that a server slow to answer a stream
// request fails with a retryable timeout.
func TestHTTP_StreamHeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	tr := NewHTTP(Config{}, WithHTTPClient(server.Client()))
	_, err := tr.Stream(context.Background(), server.URL, []byte(`{}`), RequestOptions{Timeout: 20 * time.Millisecond})
	if !errors.Is(err, ai.ErrTransport) || !retry.IsRetryable(err) {
		t.Fatalf("expected retryable transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout message, got %v", err)
	}
}

// TestHTTP_ConnectionRefused verifies that a dead endpoint is a transport error.
func TestHTTP_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tr := NewHTTP(Config{Timeout: time.Second})
	_, err := tr.Get(context.Background(), url, RequestOptions{})
	if !errors.Is(err, ai.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

// TestHTTP_StreamReturnsOpenBody verifies that Stream hands back the body for
// incremental reading.
func TestHTTP_StreamReturnsOpenBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte("{\"content\":\"a\"}\n"))
		flusher.Flush()
		_, _ = w.Write([]byte("{\"content\":\"b\",\"done\":true}\n"))
	}))
	defer server.Close()

	tr := NewHTTP(Config{}, WithHTTPClient(server.Client()))
	body, err := tr.Stream(context.Background(), server.URL, []byte(`{}`), RequestOptions{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Count(string(data), "\n") != 2 {
		t.Errorf("unexpected body %q", data)
	}
}

// TestHTTP_StreamStatusError verifies that a non-2xx streaming answer returns
// a StatusError carrying the status and body.
func TestHTTP_StreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	tr := NewHTTP(Config{}, WithHTTPClient(server.Client()))
	_, err := tr.Stream(context.Background(), server.URL, []byte(`{}`), RequestOptions{})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode() != http.StatusServiceUnavailable || string(statusErr.Body) != "overloaded" {
		t.Errorf("unexpected error: %+v", statusErr)
	}
	if !retry.IsRetryable(err) {
		t.Error("503 should be retryable")
	}
}

// TestConfig_Defaults verifies that zero config values take the defaults.
func TestConfig_Defaults(t *testing.T) {
	cfg := Config{MaxIdleConns: 7}.withDefaults()
	if cfg.Timeout != DefaultTimeout || cfg.MaxIdleConns != 7 || cfg.MaxIdleConnsPerHost != DefaultMaxIdleConnsPerHost || cfg.IdleConnTimeout != DefaultIdleConnTimeout {
		t.Errorf("unexpected config %+v", cfg)
	}
}
