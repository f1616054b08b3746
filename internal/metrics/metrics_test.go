package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.VerificationFinished("verified", false)
	m.VerificationFinished("verified", false)
	m.VerificationFinished("unverified", true)
	m.ClassifierFallback()
	m.SetQueueDepth(3)
	m.ObserveStage("answer", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.verifications.WithLabelValues("verified", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("unverified", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifierFallbacks))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.VerificationFinished("other", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `hive_verifications_total{error="false",status="other"} 1`), text)
	assert.Contains(t, text, "go_goroutines")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ClassifierFallback()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.classifierFallbacks))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.classifierFallbacks))
}
