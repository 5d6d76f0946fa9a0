package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "GROQ_API_KEY", "DEBUG",
		"SCENEGEN_PROVIDER", "SCENEGEN_MODEL", "SCENEGEN_OUTPUT_DIR",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadWith(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "gpt-4o", cfg.LLM.VisionModel)
	assert.Equal(t, 10, cfg.Generation.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Generation.ServiceBackoff)
	assert.Equal(t, "./output", cfg.Output.Dir)
	assert.Equal(t, "./completions.db", cfg.Logging.CompletionDB)
	assert.False(t, cfg.Debug)
}

func TestLoadMissingCredentialFailsFast(t *testing.T) {
	clearEnv(t)

	_, err := LoadWith(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredential))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")

	path := writeConfig(t, `
provider: groq
llm:
  max_tokens: 300
generation:
  max_attempts: 4
  service_backoff: 250ms
  control_mode: true
output:
  dir: /tmp/scenes
gcs:
  enabled: true
  bucket: my-bucket
`)

	cfg, err := LoadWith(context.Background(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, ProviderGroq, cfg.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, 300, cfg.LLM.MaxTokens)
	assert.Equal(t, 4, cfg.Generation.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Generation.ServiceBackoff)
	assert.True(t, cfg.Generation.ControlMode)
	assert.Equal(t, "/tmp/scenes", cfg.Output.Dir)
	assert.Equal(t, "my-bucket", cfg.GCS.Bucket)
	assert.Equal(t, "scenes", cfg.GCS.Prefix)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SCENEGEN_MODEL", "gpt-4o-mini")
	t.Setenv("SCENEGEN_OUTPUT_DIR", "/data/out")
	t.Setenv("DEBUG", "true")

	path := writeConfig(t, "llm:\n  model: gpt-4\n")

	cfg, err := LoadWith(context.Background(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "/data/out", cfg.Output.Dir)
	assert.True(t, cfg.Debug)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, "generation: [not, a, map")

	_, err := LoadWith(context.Background(), path, nil)
	assert.Error(t, err)
}

func TestLoadResolvesSecret(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "secrets:\n  openai_api_key: projects/p/secrets/openai/versions/latest\n")

	var requested string
	access := func(_ context.Context, name string) (string, error) {
		requested = name
		return "sk-from-secret\n", nil
	}

	cfg, err := LoadWith(context.Background(), path, access)
	require.NoError(t, err)

	assert.Equal(t, "projects/p/secrets/openai/versions/latest", requested)
	assert.Equal(t, "sk-from-secret", cfg.OpenAIAPIKey)
}

func TestLoadSecretError(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "secrets:\n  openai_api_key: projects/p/secrets/openai/versions/1\n")
	access := func(context.Context, string) (string, error) {
		return "", errors.New("permission denied")
	}

	_, err := LoadWith(context.Background(), path, access)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "openaiWithKey",
			cfg:  Config{Provider: ProviderOpenAI, OpenAIAPIKey: "k"},
		},
		{
			name:    "groqWithoutKey",
			cfg:     Config{Provider: ProviderGroq, OpenAIAPIKey: "k"},
			wantErr: true,
		},
		{
			name:    "unknownProvider",
			cfg:     Config{Provider: "ollama"},
			wantErr: true,
		},
		{
			name:    "gcsWithoutBucket",
			cfg:     Config{Provider: ProviderOpenAI, OpenAIAPIKey: "k", GCS: GCSConfig{Enabled: true}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadSettingsSkipsCredentialCheck(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.OpenAIAPIKey)
	assert.Equal(t, "./completions.db", cfg.Logging.CompletionDB)
	assert.Error(t, cfg.Validate())
}
