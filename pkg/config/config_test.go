package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultDetectorConfig(), cfg.Detector)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Audit.Workers)
	assert.Equal(t, 5*time.Second, cfg.Audit.WebhookTimeout)
	assert.Empty(t, cfg.Server.ProxyHeader)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := `
detector:
  max_requests_per_minute: 50
  temp_block_duration: 30m
audit:
  redact_headers: proxy-authorization,set-cookie
server:
  proxy_header: X-Forwarded-For
  trusted_proxies: 10.0.0.0/8,192.168.1.10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0600))
	t.Setenv("DETECTOR_MAX_FAILED_LOGINS", "7")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Detector.MaxRequestsPerMinute)
	assert.Equal(t, 30*time.Minute, cfg.Detector.TempBlockDuration)
	assert.Equal(t, 7, cfg.Detector.MaxFailedLogins)
	assert.Equal(t, 1000, cfg.Detector.MaxRequestsPerHour)
	assert.Equal(t, []string{"proxy-authorization", "set-cookie"}, cfg.Audit.RedactHeaders)
	assert.Equal(t, "X-Forwarded-For", cfg.Server.ProxyHeader)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.Server.TrustedProxies)
}

func TestLoad_InvalidThresholdsFailFast(t *testing.T) {
	dir := t.TempDir()
	yaml := `
detector:
  suspicious_score_threshold: 20
  critical_score_threshold: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0600))

	cfg, err := Load(dir)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDetectorConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *DetectorConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *DetectorConfig) {}},
		{name: "zero failed logins", mutate: func(c *DetectorConfig) { c.MaxFailedLogins = 0 }, wantErr: true},
		{name: "negative login window", mutate: func(c *DetectorConfig) { c.FailedLoginWindow = -time.Second }, wantErr: true},
		{name: "zero per minute", mutate: func(c *DetectorConfig) { c.MaxRequestsPerMinute = 0 }, wantErr: true},
		{name: "hour below minute", mutate: func(c *DetectorConfig) { c.MaxRequestsPerHour = 10 }, wantErr: true},
		{name: "critical equals suspicious", mutate: func(c *DetectorConfig) { c.CriticalScoreThreshold = 10 }, wantErr: true},
		{name: "zero temp block", mutate: func(c *DetectorConfig) { c.TempBlockDuration = 0 }, wantErr: true},
		{name: "zero shards", mutate: func(c *DetectorConfig) { c.ShardCount = 0 }, wantErr: true},
		{name: "short idle retention", mutate: func(c *DetectorConfig) { c.IdleRetention = time.Minute }, wantErr: true},
		{name: "no tolerated violations", mutate: func(c *DetectorConfig) { c.RateViolationLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDetectorConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
