package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentplexus/voicebridge"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, voicebridge.DefaultRealtimeURL, cfg.RealtimeURL)
	assert.Equal(t, voicebridge.DefaultModel, cfg.Model)
	assert.Equal(t, voicebridge.DefaultVoice, cfg.Voice)
	assert.Equal(t, 0.8, cfg.Temperature)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.Equal(t, 1.0, cfg.TopP)
	assert.Equal(t, 10*time.Minute, cfg.CallLimit)
	assert.Equal(t, 30*time.Second, cfg.WarningLead)
	assert.Equal(t, 5*time.Second, cfg.FarewellGrace)
	assert.Equal(t, "transcripts", cfg.TranscriptDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VOICEBRIDGE_PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VOICEBRIDGE_VOICE", "echo")
	t.Setenv("VOICEBRIDGE_TEMPERATURE", "0.5")
	t.Setenv("VOICEBRIDGE_CALL_LIMIT", "15m")
	t.Setenv("VOICEBRIDGE_WARNING_LEAD", "1m")

	cfg := FromEnv()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "echo", cfg.Voice)
	assert.Equal(t, 0.5, cfg.Temperature)
	assert.Equal(t, 15*time.Minute, cfg.CallLimit)
	assert.Equal(t, time.Minute, cfg.WarningLead)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("VOICEBRIDGE_PORT", "not-a-number")
	t.Setenv("VOICEBRIDGE_TEMPERATURE", "warm")
	t.Setenv("VOICEBRIDGE_CALL_LIMIT", "eleven minutes")

	cfg := FromEnv()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 0.8, cfg.Temperature)
	assert.Equal(t, 10*time.Minute, cfg.CallLimit)
}

func TestParseStringEmptyUsesDefault(t *testing.T) {
	t.Setenv("VOICEBRIDGE_TEST_EMPTY", "")
	assert.Equal(t, "fallback", ParseString("VOICEBRIDGE_TEST_EMPTY", "fallback"))
}

func validConfig() Config {
	return Config{
		Port:          8080,
		OpenAIAPIKey:  "sk-test",
		CallLimit:     10 * time.Minute,
		WarningLead:   30 * time.Second,
		FarewellGrace: 5 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.OpenAIAPIKey = "" }},
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"zero call limit", func(c *Config) { c.CallLimit = 0 }},
		{"zero warning lead", func(c *Config) { c.WarningLead = 0 }},
		{"warning lead exceeds limit", func(c *Config) { c.WarningLead = c.CallLimit + time.Second }},
		{"negative farewell grace", func(c *Config) { c.FarewellGrace = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
