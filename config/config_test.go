package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "MAX_FILE_SIZE_MB", "PUBLIC_PREFIX", "RETENTION_TTL"} {
		t.Setenv(key, "")
	}
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize())
	assert.Equal(t, "/uploads/images", cfg.PublicPrefix)
	assert.Equal(t, 24*time.Hour, cfg.RetentionTTL)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quicksvg.yaml")
	yamlBody := "port: 4000\nmax_file_size_mb: 2\nupload_dir: /tmp/in\nretention_ttl: 30m\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	t.Setenv("PORT", "5000")
	t.Setenv("DATABASE_URL", "sqlite::memory:")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, int64(2), cfg.MaxFileSizeMB)
	assert.Equal(t, "/tmp/in", cfg.UploadDir)
	assert.Equal(t, 30*time.Minute, cfg.RetentionTTL)
	assert.Equal(t, "sqlite::memory:", cfg.DbURL)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_RejectsZeroReaperInterval(t *testing.T) {
	t.Setenv("REAPER_INTERVAL", "0s")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"zero size", func(c *Config) { c.MaxFileSizeMB = 0 }},
		{"relative prefix", func(c *Config) { c.PublicPrefix = "images" }},
		{"unknown database", func(c *Config) { c.DbURL = "mysql://x" }},
		{"bucket without region", func(c *Config) { c.AwsBucketName = "b" }},
		{"zero retention", func(c *Config) { c.RetentionTTL = 0 }},
		{"negative retention", func(c *Config) { c.RetentionTTL = -time.Minute }},
		{"zero reaper interval", func(c *Config) { c.ReaperInterval = 0 }},
		{"negative reaper interval", func(c *Config) { c.ReaperInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
