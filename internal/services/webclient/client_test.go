package webclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "wbgrab-test" {
			t.Errorf("user agent = %q", got)
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	client := New(5*time.Second, WithUserAgent("wbgrab-test"))
	body, err := client.Get(t.Context(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "payload" {
		t.Fatalf("body = %q", body)
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	_, err := client.Get(t.Context(), srv.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", statusErr.StatusCode)
	}
}

func TestIsTransientClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		// context.DeadlineExceeded satisfies net.Error with Timeout() true,
		// so it classifies like any other timeout; callers separate their
		// own expired deadlines by checking ctx.Err() before retrying.
		{"deadline", context.DeadlineExceeded, true},
		{"500", &StatusError{StatusCode: 500}, true},
		{"503", &StatusError{StatusCode: 503}, true},
		{"429", &StatusError{StatusCode: 429}, true},
		{"408", &StatusError{StatusCode: 408}, true},
		{"404", &StatusError{StatusCode: 404}, false},
		{"400", &StatusError{StatusCode: 400}, false},
		{"other", errors.New("garbled payload"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("%s: IsTransient = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsTransientRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(50 * time.Millisecond)
	_, err := client.Get(t.Context(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	// A per-request timeout must classify transient even when the error
	// chain carries context.DeadlineExceeded.
	if !IsTransient(err) {
		t.Fatalf("request timeout should classify transient: %v", err)
	}
}

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{5, 4 * time.Second},
		{10, 4 * time.Second},
	}
	for _, tc := range cases {
		if got := RetryDelay(tc.attempt, 500, 4000); got != tc.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestSleepContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := SleepContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("SleepContext = %v, want context.Canceled", err)
	}
}

func TestIsTransientConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close() // now nothing listens there

	client := New(2 * time.Second)
	_, err := client.Get(t.Context(), target)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsTransient(err) {
		t.Fatalf("connection refused should classify transient: %v", err)
	}
}
