// Package config loads the process-wide configuration from the environment.
// There is no runtime reconfiguration; the surface is read once at startup.
package config

import (
	"fmt"
	"time"

	"github.com/agentplexus/voicebridge"
)

// Config holds all startup configuration for the bridge.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// OpenAIAPIKey authenticates the Realtime connection.
	OpenAIAPIKey string

	// RealtimeURL is the Realtime WebSocket endpoint.
	RealtimeURL string

	// Model is the realtime model identifier.
	Model string

	// Voice is the assistant voice identity.
	Voice string

	// Instructions is the assistant persona sent at session setup.
	Instructions string

	// Temperature, MaxTokens, TopP, FrequencyPenalty and PresencePenalty are
	// fixed generation parameters for the realtime session.
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64

	// CallLimit is the hard call-duration limit.
	CallLimit time.Duration

	// WarningLead is how long before the hard limit the caller is warned.
	WarningLead time.Duration

	// FarewellGrace is how long the farewell is allowed to play before the
	// transports are force-closed.
	FarewellGrace time.Duration

	// TranscriptDir is the directory transcripts are written to.
	TranscriptDir string

	// LogLevel is the zerolog level name.
	LogLevel string
}

// FromEnv reads the configuration from environment variables, applying
// defaults for everything but the API key.
func FromEnv() Config {
	return Config{
		Port:             ParseInt("VOICEBRIDGE_PORT", 8080),
		OpenAIAPIKey:     ParseString("OPENAI_API_KEY", ""),
		RealtimeURL:      ParseString("VOICEBRIDGE_REALTIME_URL", voicebridge.DefaultRealtimeURL),
		Model:            ParseString("VOICEBRIDGE_MODEL", voicebridge.DefaultModel),
		Voice:            ParseString("VOICEBRIDGE_VOICE", voicebridge.DefaultVoice),
		Instructions:     ParseString("VOICEBRIDGE_INSTRUCTIONS", voicebridge.DefaultInstructions),
		Temperature:      ParseFloat("VOICEBRIDGE_TEMPERATURE", 0.8),
		MaxTokens:        ParseInt("VOICEBRIDGE_MAX_TOKENS", 4096),
		TopP:             ParseFloat("VOICEBRIDGE_TOP_P", 1.0),
		FrequencyPenalty: ParseFloat("VOICEBRIDGE_FREQUENCY_PENALTY", 0),
		PresencePenalty:  ParseFloat("VOICEBRIDGE_PRESENCE_PENALTY", 0),
		CallLimit:        ParseDuration("VOICEBRIDGE_CALL_LIMIT", 10*time.Minute),
		WarningLead:      ParseDuration("VOICEBRIDGE_WARNING_LEAD", 30*time.Second),
		FarewellGrace:    ParseDuration("VOICEBRIDGE_FAREWELL_GRACE", 5*time.Second),
		TranscriptDir:    ParseString("VOICEBRIDGE_TRANSCRIPT_DIR", "transcripts"),
		LogLevel:         ParseString("LOG_LEVEL", "info"),
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CallLimit <= 0 {
		return fmt.Errorf("call limit must be positive")
	}
	if c.WarningLead <= 0 || c.WarningLead >= c.CallLimit {
		return fmt.Errorf("warning lead %s must be positive and shorter than the call limit %s", c.WarningLead, c.CallLimit)
	}
	if c.FarewellGrace < 0 {
		return fmt.Errorf("farewell grace must not be negative")
	}
	return nil
}
