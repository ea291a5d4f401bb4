package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		envOutputURL, envConfigDir, envEntryFile, envMergeURL, envGrobidURL, envGrobidWait,
		envWorkers, envQueueSize, envReplace, envFullLoad, envSchedule, envMetricsAddr,
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Empty(t, cfg.URL)
	assert.Empty(t, cfg.MergeURL)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, defaultQueueSize, cfg.QueueSize)
	assert.Equal(t, defaultGrobidTimeout, cfg.GrobidTimeout)
	assert.False(t, cfg.Replace)
	assert.True(t, cfg.FullLoad)
	assert.Empty(t, cfg.Schedule)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv(envOutputURL, "json:///tmp/out")
	t.Setenv(envWorkers, "8")
	t.Setenv(envQueueSize, "500")
	t.Setenv(envGrobidWait, "3m")
	t.Setenv(envReplace, "true")
	t.Setenv(envFullLoad, "false")
	t.Setenv(envSchedule, "0 2 * * *")

	cfg := LoadConfig()

	assert.Equal(t, "json:///tmp/out", cfg.URL)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 500, cfg.QueueSize)
	assert.Equal(t, 3*time.Minute, cfg.GrobidTimeout)
	assert.True(t, cfg.Replace)
	assert.False(t, cfg.FullLoad)
	assert.Equal(t, "0 2 * * *", cfg.Schedule)
}

func TestLoadConfigInvalidFallsBack(t *testing.T) {
	t.Setenv(envWorkers, "not-a-number")
	t.Setenv(envQueueSize, "-5")
	t.Setenv(envGrobidWait, "soon")
	t.Setenv(envSchedule, "not a cron expression")

	cfg := LoadConfig()

	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, defaultQueueSize, cfg.QueueSize)
	assert.Equal(t, defaultGrobidTimeout, cfg.GrobidTimeout)
	assert.Empty(t, cfg.Schedule)
}

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		files   int
		want    int
	}{
		{"explicit", 4, 100, 4},
		{"capped by files", 8, 3, 3},
		{"zero files", 4, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Workers: tt.workers}
			assert.Equal(t, tt.want, cfg.WorkerCount(tt.files))
		})
	}
}
