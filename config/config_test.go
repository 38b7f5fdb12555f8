package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongo", cfg.StorageDriver)
	assert.Equal(t, time.Minute, cfg.Scheduler.PollInterval)
	assert.Equal(t, 5, cfg.Scraper.MaxProducts)
	assert.Equal(t, map[string]string{
		"mobile": "mobiles",
		"laptop": "laptops",
		"sofa":   "sofas",
		"toys":   "toys",
		"shirts": "shirts",
	}, cfg.Scheduler.Categories)
	assert.False(t, cfg.Scheduler.IsolateCategories)
	assert.True(t, cfg.Scheduler.ResetStaleRuns)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("WAIT_TIMEOUT", "3s")
	t.Setenv("CATEGORIES", "sofa:furniture")
	t.Setenv("ALERT_TO", "ops@example.com,dev@example.com")
	t.Setenv("RATE_LIMIT_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, 3*time.Second, cfg.Scraper.WaitTimeout)
	assert.Equal(t, map[string]string{"sofa": "furniture"}, cfg.Scheduler.Categories)
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, cfg.Alerts.To)
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.RateLimit())
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}

func TestLoadRejectsMalformedCategories(t *testing.T) {
	t.Setenv("CATEGORIES", "sofa:furniture,laptop")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseCategories(t *testing.T) {
	got, err := parseCategories(" mobile : mobiles , ,toys:toys")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mobile": "mobiles", "toys": "toys"}, got)

	got, err = parseCategories("")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{}, got)

	_, err = parseCategories("mobile:")
	assert.Error(t, err)
}
