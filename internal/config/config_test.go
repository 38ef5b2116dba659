package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadFromYAML writes the given yaml to a temp config dir and loads it through
// a fresh viper instance, since LoadConfig mutates global state.
func loadFromYAML(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	return LoadConfig(dir)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadFromYAML(t, "server:\n  mode: debug\n")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Evaluation.ChunkSize)
	assert.Equal(t, 2*time.Second, cfg.Evaluation.QuestionDelay())
	assert.Equal(t, 60*time.Second, cfg.Evaluation.RequestTimeout())
	assert.Equal(t, time.Hour, cfg.Evaluation.RunLockTTL())
}

func TestLoadConfigScalesPlainSecondsOnce(t *testing.T) {
	cfg, err := loadFromYAML(t, `
evaluation:
  question_delay_seconds: 5
  request_timeout_seconds: 30
`)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Evaluation.QuestionDelaySeconds)
	assert.Equal(t, 5*time.Second, cfg.Evaluation.QuestionDelay())
	assert.Equal(t, 30*time.Second, cfg.Evaluation.RequestTimeout())
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "zero_chunk_size",
			yaml:    "evaluation:\n  chunk_size: 0\n",
			wantErr: "chunk_size",
		},
		{
			name:    "negative_chunk_size",
			yaml:    "evaluation:\n  chunk_size: -3\n",
			wantErr: "chunk_size",
		},
		{
			name:    "negative_question_delay",
			yaml:    "evaluation:\n  question_delay_seconds: -1\n",
			wantErr: "question_delay_seconds",
		},
		{
			name:    "zero_run_lock_ttl",
			yaml:    "evaluation:\n  run_lock_ttl_minutes: 0\n",
			wantErr: "run_lock_ttl_minutes",
		},
		{
			name:    "release_mode_without_api_key",
			yaml:    "server:\n  mode: release\n",
			wantErr: "ai.api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFromYAML(t, tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigReleaseModeWithAPIKey(t *testing.T) {
	cfg, err := loadFromYAML(t, `
server:
  mode: release
ai:
  api_key: sk-test
`)
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
}
