package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFlags mirrors the flag surface defined in cmd/main.go.
func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("project", "", "")
	fs.String("input", "", "")
	fs.String("output", "", "")
	fs.String("terminal-class", "ARCHIVE", "")
	fs.Int("concurrency", 20, "")
	fs.Int("retries", 5, "")
	fs.Int("retry-backoff-ms", 1000, "")
	fs.Float64("retry-jitter", 0.2, "")
	fs.Int("call-timeout-ms", 30000, "")
	fs.String("checkpoint", "./checkpoint.db", "")
	fs.Bool("resume", false, "")
	fs.Bool("skip-migrated", true, "")
	fs.Bool("dry-run", false, "")
	fs.String("metrics-addr", "", "")
	fs.String("log-level", "info", "")
	fs.Bool("show-progress", true, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Set("input", "buckets.txt"))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "ARCHIVE", cfg.Migration.TerminalClass)
	assert.Equal(t, 20, cfg.Migration.Concurrency)
	assert.Equal(t, 5, cfg.Migration.Retries)
	assert.Equal(t, 1000, cfg.Migration.RetryBackoffMs)
	assert.Equal(t, 0.2, cfg.Migration.RetryJitter)
	assert.True(t, cfg.Migration.SkipMigrated)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "buckets_output.csv", cfg.Output)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	configYAML := `
input: from-file.txt
migration:
  concurrency: 8
  retries: 2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o644))

	flags := testFlags()
	require.NoError(t, flags.Set("concurrency", "32"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "from-file.txt", cfg.Input)
	assert.Equal(t, 32, cfg.Migration.Concurrency, "flag wins over file")
	assert.Equal(t, 2, cfg.Migration.Retries, "file wins over default")
}

func TestLoadOutputDerivedFromInput(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Set("input", "prod/buckets.list"))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "prod/buckets_output.csv", cfg.Output)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
	}{
		{"missing input", map[string]string{}},
		{"bad terminal class", map[string]string{"input": "b.txt", "terminal-class": "GLACIER"}},
		{"zero concurrency", map[string]string{"input": "b.txt", "concurrency": "0"}},
		{"zero retries", map[string]string{"input": "b.txt", "retries": "0"}},
		{"negative backoff", map[string]string{"input": "b.txt", "retry-backoff-ms": "-1"}},
		{"jitter too large", map[string]string{"input": "b.txt", "retry-jitter": "1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := testFlags()
			for k, v := range tt.set {
				require.NoError(t, flags.Set(k, v))
			}

			_, err := Load("", flags)
			assert.Error(t, err)
		})
	}
}
