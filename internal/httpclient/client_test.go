// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const rateLimitedBody = `{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`

func newTestClient(name string, maxRetries int, classify Classifier) *Client {
	return New(Config{
		Name:       name,
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		Timeout:    2 * time.Second,
		Classify:   classify,
	})
}

// failingServer answers the first failures requests with status/body and
// then succeeds.
func failingServer(t *testing.T, failures int32, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
			return
		}
		_, _ = io.WriteString(w, `{"object":"list","results":[]}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDoRetryAttemptCounts(t *testing.T) {
	t.Parallel()

	const maxRetries = 3

	tests := []struct {
		name         string
		failures     int32
		wantAttempts int32
		wantStatus   int
	}{
		{name: "immediate success", failures: 0, wantAttempts: 1, wantStatus: http.StatusOK},
		{name: "one transient failure", failures: 1, wantAttempts: 2, wantStatus: http.StatusOK},
		{name: "three transient failures", failures: 3, wantAttempts: 4, wantStatus: http.StatusOK},
		{name: "failures beyond budget", failures: 4, wantAttempts: 4, wantStatus: http.StatusTooManyRequests},
		{name: "many failures", failures: 10, wantAttempts: 4, wantStatus: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, calls := failingServer(t, tt.failures, http.StatusTooManyRequests, rateLimitedBody)
			client := newTestClient("test-counts", maxRetries, ClassifyWorkspace)

			resp, err := client.Do(context.Background(), &Request{Method: http.MethodPost, URL: srv.URL})
			if err != nil {
				t.Fatalf("Do() error = %v, want nil (last response is returned on exhaustion)", err)
			}
			if got := calls.Load(); got != tt.wantAttempts {
				t.Errorf("server calls = %d, want %d", got, tt.wantAttempts)
			}
			if resp.Attempts != int(tt.wantAttempts) {
				t.Errorf("resp.Attempts = %d, want %d", resp.Attempts, tt.wantAttempts)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("resp.StatusCode = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestDoNonRetriableReturnsImmediately(t *testing.T) {
	t.Parallel()

	body := `{"object":"error","status":400,"code":"validation_error","message":"bad property"}`
	srv, calls := failingServer(t, 5, http.StatusBadRequest, body)
	client := newTestClient("test-permanent", 3, ClassifyWorkspace)

	resp, err := client.Do(context.Background(), &Request{Method: http.MethodPatch, URL: srv.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
	if resp.StatusCode != http.StatusBadRequest || string(resp.Body) != body {
		t.Errorf("resp = %d %q, want the 400 envelope unchanged", resp.StatusCode, resp.Body)
	}
}

func TestDoChatEnvelopeOverridesStatus(t *testing.T) {
	t.Parallel()

	// The chat API reports rate limiting inside a 200 response.
	srv, calls := failingServer(t, 2, http.StatusOK, `{"ok":false,"error":"ratelimited"}`)
	client := newTestClient("test-chat", 3, ClassifyChat)

	if _, err := client.Do(context.Background(), &Request{Method: http.MethodPost, URL: srv.URL}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3", calls.Load())
	}
}

func TestDoUnparseableServerError(t *testing.T) {
	t.Parallel()

	srv, calls := failingServer(t, 1, http.StatusBadGateway, "<html>bad gateway</html>")
	client := newTestClient("test-html", 3, ClassifySheets)

	resp, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls.Load() != 2 || resp.StatusCode != http.StatusOK {
		t.Errorf("calls = %d status = %d, want 2 calls ending in 200", calls.Load(), resp.StatusCode)
	}
}

func TestDoResendsBodyAndHeaders(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"page_size":100}` {
			t.Errorf("attempt %d body = %q", calls.Load(), body)
		}
		if r.Header.Get("Notion-Version") != "2022-06-28" {
			t.Errorf("attempt %d missing Notion-Version header", calls.Load())
		}
		if calls.Load() == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient("test-body", 2, ClassifyWorkspace)
	header := http.Header{}
	header.Set("Notion-Version", "2022-06-28")

	_, err := client.Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Header: header,
		Body:   []byte(`{"page_size":100}`),
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestDoTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := newTestClient("test-transport", 2, ClassifyStatus)
	resp, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: url})
	if err == nil {
		t.Fatal("Do() expected error when no response was ever received")
	}
	if resp != nil {
		t.Errorf("Do() resp = %+v, want nil", resp)
	}
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	srv, _ := failingServer(t, 100, http.StatusServiceUnavailable, "")
	client := New(Config{
		Name:       "test-cancel",
		MaxRetries: 3,
		BaseDelay:  time.Hour,
		Classify:   ClassifyStatus,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Do(ctx, &Request{Method: http.MethodGet, URL: srv.URL})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Do() took %v, cancellation should interrupt the backoff wait", elapsed)
	}
}

func TestBackoffSchedule(t *testing.T) {
	t.Parallel()

	client := New(Config{Name: "test-schedule", MaxRetries: 3, BaseDelay: time.Second})
	bo := client.newBackOff()

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := bo.NextBackOff(); got != w {
			t.Errorf("wait %d = %v, want %v", i, got, w)
		}
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	srv, calls := failingServer(t, 1000, http.StatusInternalServerError, "")
	client := newTestClient("test-breaker", 0, ClassifyStatus)

	for i := 0; i < 10; i++ {
		resp, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
		if err != nil {
			t.Fatalf("call %d: Do() error = %v", i, err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("call %d: status = %d", i, resp.StatusCode)
		}
	}

	if client.BreakerState() != "open" {
		t.Fatalf("BreakerState() = %q, want open", client.BreakerState())
	}

	_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Do() error = %v, want ErrCircuitOpen", err)
	}
	if calls.Load() != 10 {
		t.Errorf("server calls = %d, want 10 (open breaker must not reach the server)", calls.Load())
	}
}

func TestRateLimiterSpacesAttempts(t *testing.T) {
	t.Parallel()

	srv, _ := failingServer(t, 0, http.StatusOK, "")
	client := New(Config{Name: "test-limiter", RatePerSecond: 20, Burst: 1, Classify: ClassifyStatus})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
	}
	// Burst 1 at 20/s: the 2nd and 3rd call each wait ~50ms.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 calls took %v, want >= ~100ms under the rate limit", elapsed)
	}
}
