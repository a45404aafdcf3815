package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "does-not-exist.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Research.SubQuestionCount)
	assert.Equal(t, 3, cfg.Research.RetrievalWorkers)
	assert.Equal(t, 2*time.Minute, cfg.Research.RunTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Delay)
	assert.Equal(t, 30, cfg.Polling.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Polling.Interval)
	assert.Equal(t, "eleven_multilingual_v2", cfg.ElevenLabs.Model)
	assert.Equal(t, "aristobites-data", cfg.LlamaCloud.IndexName)
	assert.Equal(t, 5, cfg.Pipeline.SceneSeconds)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "does-not-exist.yaml")
	t.Setenv("ARISTO_RESEARCH_SUB_QUESTION_COUNT", "5")
	t.Setenv("ARISTO_REDIS_ADDR", "redis:6380")
	t.Setenv("ARISTO_OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Research.SubQuestionCount)
	assert.Equal(t, "redis:6380", cfg.RedisAddr)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestValidateProviders(t *testing.T) {
	t.Setenv("CONFIG_PATH", "does-not-exist.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.ValidateProviders()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.api_key")
	assert.Contains(t, err.Error(), "llamacloud.api_key")

	cfg.OpenAI.APIKey = "sk-1"
	cfg.Anthropic.APIKey = "sk-2"
	cfg.ElevenLabs.APIKey = "sk-3"
	cfg.Replicate.APIToken = "r8-1"
	cfg.Replicate.FaceImageURL = "https://cdn.example.com/face.jpg"
	cfg.Luma.APIKey = "luma-1"
	cfg.LlamaCloud.APIKey = "llx-1"
	cfg.R2.AccountID = "acct"
	cfg.R2.AccessKeyID = "key"
	cfg.R2.SecretAccessKey = "secret"
	cfg.R2.Bucket = "aristobites"
	cfg.R2.PublicBaseURL = "https://pub.example.com"
	assert.NoError(t, cfg.ValidateProviders())
}
