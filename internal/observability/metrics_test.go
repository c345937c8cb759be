package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func scrape(t *testing.T, mp *MetricsProvider) string {
	t.Helper()
	rec := httptest.NewRecorder()
	mp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorderMetricsAreExported(t *testing.T) {
	mp, err := NewMetricsProvider("pluginhub-test", true, zap.NewNop())
	require.NoError(t, err)

	mp.InstallStarted()
	mp.InstallFinished(true, false, false)
	mp.InstallFinished(false, true, false)
	mp.ApplyFinished(true)
	mp.RestartPending(true)

	body := scrape(t, mp)
	assert.Contains(t, body, "plugin_installs_started_total")
	assert.Contains(t, body, "plugin_installs_finished_total")
	assert.Contains(t, body, "session_applies_total")
	assert.Contains(t, body, "restart_pending")
}

func TestRestartPendingGaugeDoesNotAccumulate(t *testing.T) {
	mp, err := NewMetricsProvider("pluginhub-test", true, zap.NewNop())
	require.NoError(t, err)

	mp.RestartPending(true)
	mp.RestartPending(true)
	mp.RestartPending(true)

	body := scrape(t, mp)
	found := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "restart_pending") && !strings.HasPrefix(line, "#") {
			found = true
			assert.True(t, strings.HasSuffix(line, " 1"), "gauge must stay at 1, got: %s", line)
		}
	}
	assert.True(t, found, "restart_pending gauge not exported")
}

func TestDisabledProviderIsNoOp(t *testing.T) {
	mp, err := NewMetricsProvider("pluginhub-test", false, zap.NewNop())
	require.NoError(t, err)

	// must not panic with nil instruments
	mp.InstallStarted()
	mp.InstallFinished(true, false, true)
	mp.ApplyFinished(false)
	mp.RestartPending(true)

	rec := httptest.NewRecorder()
	mp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
