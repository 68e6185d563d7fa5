package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/recommender/internal/telemetry"
)

// providerOnce ensures we only create one Provider per test run to avoid
// duplicate Prometheus metric registration errors from promauto's global
// registry.
var (
	testProvider *telemetry.Provider
	providerOnce sync.Once
)

func getTestProvider(t *testing.T) *telemetry.Provider {
	t.Helper()
	providerOnce.Do(func() {
		testProvider = telemetry.NewProvider()
	})
	return testProvider
}

func TestNewProvider(t *testing.T) {
	provider := getTestProvider(t)
	require.NotNil(t, provider)
	require.NotNil(t, provider.Metrics)
	assert.NotNil(t, provider.Handler())
}

func TestRecordFeedServed(t *testing.T) {
	provider := getTestProvider(t)

	before := testutil.ToFloat64(provider.Metrics.CacheHits)
	provider.RecordFeedServed("personalized", "personalized", true, 5*time.Millisecond)
	provider.RecordFeedServed("personalized", "trending", false, 10*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(provider.Metrics.CacheHits))
	assert.GreaterOrEqual(t, testutil.ToFloat64(provider.Metrics.CacheMisses), 1.0)
}

func TestRecordIndexBuild(t *testing.T) {
	provider := getTestProvider(t)

	provider.RecordIndexBuild(2*time.Second, 1000, 3)

	assert.Equal(t, 1000.0, testutil.ToFloat64(provider.Metrics.IndexSize))
	assert.GreaterOrEqual(t, testutil.ToFloat64(provider.Metrics.IndexBuilds), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(provider.Metrics.IndexSkipped), 3.0)
}

func TestRecordFallback(t *testing.T) {
	provider := getTestProvider(t)

	before := testutil.ToFloat64(provider.Metrics.Fallbacks.WithLabelValues("personalized", "trending"))
	provider.RecordFallback("personalized", "trending")

	assert.Equal(t, before+1,
		testutil.ToFloat64(provider.Metrics.Fallbacks.WithLabelValues("personalized", "trending")))
}

func TestRecordRecomputeBatch(t *testing.T) {
	provider := getTestProvider(t)

	successBefore := testutil.ToFloat64(provider.Metrics.ProfileRecomputes.WithLabelValues("success"))
	errorsBefore := testutil.ToFloat64(provider.Metrics.ProviderErrors)

	provider.RecordRecomputeBatch(10, 2, 1)

	assert.Equal(t, successBefore+10,
		testutil.ToFloat64(provider.Metrics.ProfileRecomputes.WithLabelValues("success")))
	// Skipped recomputes are provider failures.
	assert.Equal(t, errorsBefore+2, testutil.ToFloat64(provider.Metrics.ProviderErrors))
}

func TestSetStaleProfiles(t *testing.T) {
	provider := getTestProvider(t)

	provider.SetStaleProfiles(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(provider.Metrics.StaleProfiles))

	provider.SetStaleProfiles(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(provider.Metrics.StaleProfiles))
}

func TestRecordInteraction(t *testing.T) {
	provider := getTestProvider(t)

	before := testutil.ToFloat64(provider.Metrics.InteractionsRecorded.WithLabelValues("like"))
	provider.RecordInteraction("like")

	assert.Equal(t, before+1,
		testutil.ToFloat64(provider.Metrics.InteractionsRecorded.WithLabelValues("like")))
}
