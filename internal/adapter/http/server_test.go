package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/ingest"
)

type fakeReporter struct {
	ready   error
	summary ingest.Summary
	ran     bool
}

func (f *fakeReporter) CheckReadiness(context.Context) error { return f.ready }

func (f *fakeReporter) LastSummary() (ingest.Summary, bool) { return f.summary, f.ran }

func newTestServer(reporter StatusReporter) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", reporter, logger)
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeReporter{})
	rec := get(t, srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(&fakeReporter{})
		rec := get(t, srv, "/readyz")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		srv := newTestServer(&fakeReporter{ready: errors.New("no batch processed yet")})
		rec := get(t, srv, "/readyz")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not ready", body["status"])
		assert.Equal(t, "no batch processed yet", body["error"])
	})
}

func TestStatus(t *testing.T) {
	t.Run("before any batch", func(t *testing.T) {
		srv := newTestServer(&fakeReporter{})
		rec := get(t, srv, "/status")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"no batch yet"}`, rec.Body.String())
	})

	t.Run("after a batch", func(t *testing.T) {
		reporter := &fakeReporter{
			ran: true,
			summary: ingest.Summary{
				Alerts:             4,
				Relevant:           2,
				Enriched:           2,
				BaselineZips:       3,
				HighConfidenceZips: 2,
				Skips: map[ingest.SkipReason]int{
					ingest.SkipMissingReferenceData: 1,
				},
			},
		}
		srv := newTestServer(reporter)
		rec := get(t, srv, "/status")

		assert.Equal(t, http.StatusOK, rec.Code)

		var got ingest.Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, reporter.summary, got)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeReporter{})
	rec := get(t, srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeReporter{})
	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
