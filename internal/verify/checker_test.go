package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/retry"
)

// fastPolicy keeps retry delays negligible in tests.
func fastPolicy(maxRetries int) retry.Policy {
	return retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, maxRetries)
}

// TestChecker_Check succeeds on a healthy endpoint and reports the
// movie count.
func TestChecker_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/movies", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"movies":[{"title":"Alien"},{"title":"Heat"}],"total":42}`))
	}))
	defer srv.Close()

	c := NewChecker(fastPolicy(0), "/api/movies")
	report, err := c.Check(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/api/movies", report.URL)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.Equal(t, 2, report.MovieCount)
	assert.Equal(t, 42, report.Total)
}

// TestChecker_Check_TrailingSlash joins the base URL and path without
// doubling slashes.
func TestChecker_Check_TrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/movies", r.URL.Path)
		_, _ = w.Write([]byte(`{"movies":[]}`))
	}))
	defer srv.Close()

	c := NewChecker(fastPolicy(0), "/api/movies")
	report, err := c.Check(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, 0, report.MovieCount)
}

// TestChecker_Check_RetriesUntilHealthy tolerates an endpoint that
// needs a moment to come up.
func TestChecker_Check_RetriesUntilHealthy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"movies":[{"title":"Alien"}],"total":1}`))
	}))
	defer srv.Close()

	c := NewChecker(fastPolicy(4), "/api/movies")
	report, err := c.Check(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

// TestChecker_Check_Exhausted maps persistent failure to
// ExitVerifyFailed after the retry budget is spent.
func TestChecker_Check_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewChecker(fastPolicy(2), "/api/movies")
	_, err := c.Check(context.Background(), srv.URL)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitVerifyFailed, cliErr.Code)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

// TestChecker_Check_MalformedBody treats a 200 with the wrong shape as
// a failed probe.
func TestChecker_Check_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"database unreachable"}`))
	}))
	defer srv.Close()

	c := NewChecker(fastPolicy(0), "/api/movies")
	_, err := c.Check(context.Background(), srv.URL)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitVerifyFailed, cliErr.Code)
	assert.Contains(t, err.Error(), "no movies array")
}

// TestChecker_Check_ContextCancelled stops retrying when the context is
// cancelled.
func TestChecker_Check_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewChecker(fastPolicy(5), "/api/movies")
	_, err := c.Check(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
