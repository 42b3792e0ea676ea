package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/authtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot eduAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() eduAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func TestCollectNothingWhenMetricsDisabled(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewExporterFromSource(fakeSource{
		snapshot: eduAuth.MetricsSnapshot{
			Counters:   map[eduAuth.MetricID]uint64{},
			Histograms: map[eduAuth.MetricID][]uint64{},
		},
	}))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestCollectCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewExporterFromSource(fakeSource{
		snapshot: eduAuth.MetricsSnapshot{
			Counters: map[eduAuth.MetricID]uint64{
				eduAuth.MetricLoginSuccess: 7,
			},
			Histograms: map[eduAuth.MetricID][]uint64{
				eduAuth.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	var histCount uint64
	var firstBucket uint64
	for _, f := range families {
		m := f.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			byName[f.GetName()] = m.GetCounter().GetValue()
		case m.GetHistogram() != nil:
			histCount = m.GetHistogram().GetSampleCount()
			firstBucket = m.GetHistogram().GetBucket()[0].GetCumulativeCount()
		}
	}

	assert.Equal(t, 7.0, byName["eduauth_login_success_total"])
	assert.Equal(t, 0.0, byName["eduauth_logout_total"])
	assert.Equal(t, 2.0, byName["eduauth_audit_dropped_total"])
	assert.Equal(t, uint64(36), histCount)
	assert.Equal(t, uint64(1), firstBucket)
}

func TestHandlerServesClientMetrics(t *testing.T) {
	srv := authtest.Start(t)
	cfg := eduAuth.DefaultConfig()
	cfg.API.BaseURL = srv.URL

	client, err := eduAuth.New().WithConfig(cfg).Build(context.Background())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Login(context.Background(), eduAuth.LoginInput{Email: authtest.DemoEmail, Password: authtest.DemoPassword})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	NewExporter(client).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.True(t, strings.Contains(out, "eduauth_login_success_total 1"), out)
	assert.Contains(t, out, "eduauth_request_latency_seconds_bucket")
}
