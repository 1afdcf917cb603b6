package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamilton/collector-api/internal/config"
	"github.com/phamilton/collector-api/internal/domain"
)

func testConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		DefaultTimeout:    5 * time.Second,
		RateLimitCooldown: time.Millisecond,
		RateLimitAttempts: 3,
		RequestsPerSecond: 1000,
		UserAgent:         "collector-api-test",
	}
}

func testTask(t *testing.T, url string, timeout time.Duration) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(url, "GET", "", map[string]string{"X-Api-Key": "k"}, 1, timeout)
	require.NoError(t, err)
	return task
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "collector-api-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","address":{"Address":"123 Main St","Telephone":"555-1234","City":"Springfield","Zip_Code":"62704","State":"IL","State_Full":"Illinois"}}`))
	}))
	defer server.Close()

	f := New(testConfig())
	payload, err := f.Fetch(context.Background(), testTask(t, server.URL, 0))
	require.NoError(t, err)

	assert.Equal(t, "123 Main St", payload.Address)
	assert.Equal(t, "555-1234", payload.Telephone)
	assert.Equal(t, "62704", payload.ZipCode)
	assert.Equal(t, "Illinois", payload.StateFull)
}

func TestFetchHTTPStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	f := New(testConfig())
	_, err := f.Fetch(context.Background(), testTask(t, server.URL, 0))

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindHTTPStatus, fetchErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.Body, "boom")
}

func TestFetchRateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := New(testConfig())
	_, err := f.Fetch(context.Background(), testTask(t, server.URL, 0))

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindRateLimited, fetchErr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
}

func TestFetchMalformedJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","address":`))
	}))
	defer server.Close()

	f := New(testConfig())
	_, err := f.Fetch(context.Background(), testTask(t, server.URL, 0))

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindMalformedJSON, fetchErr.Kind)
}

func TestFetchUnexpectedShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"status not ok", `{"status":"error","address":{"Address":"x"}}`},
		{"missing address object", `{"status":"ok"}`},
		{"wrong document", `{"result":[1,2,3]}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			f := New(testConfig())
			_, err := f.Fetch(context.Background(), testTask(t, server.URL, 0))

			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, KindUnexpectedShape, fetchErr.Kind)
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	f := New(testConfig())
	_, err := f.Fetch(context.Background(), testTask(t, server.URL, 50*time.Millisecond))

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindTimeout, fetchErr.Kind)
}

func TestFetchConnectionRefused(t *testing.T) {
	t.Parallel()

	// A closed server guarantees a refused connection.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f := New(testConfig())
	_, err := f.Fetch(context.Background(), testTask(t, url, 0))

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindConnectionFailed, fetchErr.Kind)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
