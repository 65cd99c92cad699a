package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL       string
	TemporalAddress   string
	TemporalNamespace string
	HTTPListenAddr    string
	MetricsAddr       string
	LogLevel          string
	ServiceName       string

	// WorkDir is the parent directory for per-job clone and archive
	// directories. Empty means the OS temp dir.
	WorkDir string
	// SourceBaseURL is the source-control host repositories are cloned from.
	SourceBaseURL string
	// S3Endpoint overrides the object store endpoint for S3-compatible
	// services. Empty means AWS.
	S3Endpoint string
	// PushgatewayURL receives job metrics from one-shot job processes.
	PushgatewayURL string
	// APIKey, when set, is required on every dispatcher API request.
	APIKey string

	// Temporal mTLS. Cert and key must be set together.
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		ServiceName:           getEnv("SERVICE_NAME", ""),
		WorkDir:               getEnv("WORK_DIR", ""),
		SourceBaseURL:         getEnv("SOURCE_BASE_URL", "https://github.com"),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		PushgatewayURL:        getEnv("PUSHGATEWAY_URL", ""),
		APIKey:                getEnv("API_KEY", ""),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
	}

	return cfg, nil
}

// Validate checks that the settings required by the given binary are present.
// Supported roles are "backup-job", "backup-api" and "worker".
func (c *Config) Validate(role string) error {
	var missing []string

	switch role {
	case "backup-job":
		// Job parameters carry their own database URL; only the
		// fetch source must be usable.
		if c.SourceBaseURL == "" {
			missing = append(missing, "SOURCE_BASE_URL")
		}
	case "backup-api":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.TemporalAddress == "" {
			missing = append(missing, "TEMPORAL_ADDRESS")
		}
		if c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
	case "worker":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.TemporalAddress == "" {
			missing = append(missing, "TEMPORAL_ADDRESS")
		}
		if c.SourceBaseURL == "" {
			missing = append(missing, "SOURCE_BASE_URL")
		}
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
