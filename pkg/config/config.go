package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/smukkama/aqeu-dashboard/internal/chart"
)

// DefaultSourceURL is the published EU AQI dataset
const DefaultSourceURL = "https://raw.githubusercontent.com/JesHP73/plotAQEU/2cd8420dd7027b74a520eb8eac04a36ca9cb705b/plot_aqi_df.csv"

type Config struct {
	Sources SourcesConfig
	Fetch   FetchConfig
	Chart   ChartConfig
	HTTP    HTTPConfig
	Log     LogConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
}

type SourcesConfig struct {
	TimeSeriesURL   string
	ThresholdURL    string
	RefreshInterval time.Duration
}

type FetchConfig struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

type ChartConfig struct {
	OverlayMode chart.OverlayMode
}

type HTTPConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// Addr returns the listen address
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}

type LogConfig struct {
	Level string
	File  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether the shared dataset tier is configured
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Enabled reports whether refresh events are configured
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "local"
	}

	timeSeriesURL := getEnv("AQI_TIMESERIES_URL", DefaultSourceURL)

	mode, err := chart.ParseOverlayMode(getEnv("AQI_OVERLAY_MODE", string(chart.OverlayCombined)))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Sources: SourcesConfig{
			TimeSeriesURL:   timeSeriesURL,
			ThresholdURL:    getEnv("AQI_THRESHOLD_URL", timeSeriesURL),
			RefreshInterval: getEnvAsDuration("AQI_REFRESH_INTERVAL", 0),
		},
		Fetch: FetchConfig{
			Timeout:    getEnvAsDuration("AQI_HTTP_TIMEOUT", 10*time.Second),
			Retries:    getEnvAsInt("AQI_HTTP_RETRIES", 0),
			RetryDelay: getEnvAsDuration("AQI_HTTP_RETRY_DELAY", 500*time.Millisecond),
		},
		Chart: ChartConfig{
			OverlayMode: mode,
		},
		HTTP: HTTPConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8501),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("AQI_REDIS_TTL", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("AQI_KAFKA_BROKERS"),
			Topic:   getEnv("AQI_KAFKA_TOPIC", "aqi.dataset.refresh"),
			GroupID: getEnv("AQI_KAFKA_GROUP", "aqi-dashboard-"+hostname),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	var problems []string
	if c.Sources.TimeSeriesURL == "" {
		problems = append(problems, "AQI_TIMESERIES_URL is empty")
	}
	if c.Fetch.Timeout <= 0 {
		problems = append(problems, "AQI_HTTP_TIMEOUT must be positive")
	}
	if c.Fetch.Retries < 0 {
		problems = append(problems, "AQI_HTTP_RETRIES must not be negative")
	}
	if c.Sources.RefreshInterval < 0 {
		problems = append(problems, "AQI_REFRESH_INTERVAL must not be negative")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		problems = append(problems, "HTTP_PORT out of range")
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
