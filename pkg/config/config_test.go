package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/aqeu-dashboard/internal/chart"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultSourceURL, cfg.Sources.TimeSeriesURL)
	assert.Equal(t, DefaultSourceURL, cfg.Sources.ThresholdURL)
	assert.Zero(t, cfg.Sources.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Zero(t, cfg.Fetch.Retries)
	assert.Equal(t, chart.OverlayCombined, cfg.Chart.OverlayMode)
	assert.Equal(t, ":8501", cfg.HTTP.Addr())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AQI_TIMESERIES_URL", "https://example.com/ts.csv")
	t.Setenv("AQI_THRESHOLD_URL", "https://example.com/who.csv")
	t.Setenv("AQI_HTTP_RETRIES", "2")
	t.Setenv("AQI_OVERLAY_MODE", "per-country")
	t.Setenv("AQI_REFRESH_INTERVAL", "1h")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("AQI_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/ts.csv", cfg.Sources.TimeSeriesURL)
	assert.Equal(t, "https://example.com/who.csv", cfg.Sources.ThresholdURL)
	assert.Equal(t, 2, cfg.Fetch.Retries)
	assert.Equal(t, chart.OverlayPerCountry, cfg.Chart.OverlayMode)
	assert.Equal(t, time.Hour, cfg.Sources.RefreshInterval)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_RejectsBadOverlayMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AQI_OVERLAY_MODE", "stacked")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Sources: SourcesConfig{TimeSeriesURL: "x"},
		Fetch:   FetchConfig{Timeout: 0, Retries: -1},
		HTTP:    HTTPConfig{Port: 70000},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AQI_HTTP_TIMEOUT")
	assert.Contains(t, err.Error(), "AQI_HTTP_RETRIES")
	assert.Contains(t, err.Error(), "HTTP_PORT")
}
