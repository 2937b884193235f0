package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Refresh(RefreshSuccess)
	m.Refresh(RefreshSuccess)
	m.Refresh(RefreshFailure)
	m.SessionEnded(ReasonUnauthorized)
	m.AuthAttempt("login", nil)
	m.AuthAttempt("login", errors.New("bad credentials"))
	m.SetAuthenticated(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.refreshes.WithLabelValues(RefreshSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(RefreshFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsEnded.WithLabelValues(ReasonUnauthorized)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authAttempts.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authAttempts.WithLabelValues("login", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authenticated))

	m.SetAuthenticated(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.authenticated))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Refresh(RefreshSuccess)
		m.SessionEnded(ReasonLogout)
		m.AuthAttempt("register", nil)
		m.SetAuthenticated(true)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Refresh(RefreshSuccess)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `jobhunt_client_token_refreshes_total{result="success"} 1`)
}
