// Package voicebridge bridges Twilio Media Streams and the OpenAI Realtime
// API so a phone caller can talk to an AI voice agent in real time.
//
// The service accepts Twilio's media-stream WebSocket, opens one OpenAI
// Realtime session per call, and relays audio and control frames in both
// directions while recording a transcript of the assistant's side of the
// conversation:
//   - internal/httpapi: call-control webhook (TwiML) and media-stream endpoint
//   - telephony: Twilio Media Streams frame codec and connection
//   - realtime: OpenAI Realtime API client
//   - session: per-call state machine that owns the relay
//   - transcript: per-call append-only transcript sink
//
// # Environment Variables
//
//	VOICEBRIDGE_PORT       - HTTP listen port (default 8080)
//	OPENAI_API_KEY         - OpenAI API key (required)
//	VOICEBRIDGE_MODEL      - Realtime model identifier
//	VOICEBRIDGE_VOICE      - assistant voice identity
package voicebridge

// Version is the service version.
const Version = "0.1.0"

// OpenAI Realtime API constants.
const (
	// DefaultRealtimeURL is the OpenAI Realtime WebSocket endpoint.
	DefaultRealtimeURL = "wss://api.openai.com/v1/realtime"

	// DefaultModel is the realtime model used when none is configured.
	DefaultModel = "gpt-4o-realtime-preview-2024-10-01"

	// RealtimeBetaHeader is the OpenAI-Beta header value required by the
	// Realtime API.
	RealtimeBetaHeader = "realtime=v1"
)

// Audio format constants shared by both transports. Payloads stay in this
// encoding end to end; only the envelope changes.
const (
	// AudioFormatG711Ulaw is the narrow-band telephony encoding used for
	// both Realtime input and output (8-bit, 8kHz).
	AudioFormatG711Ulaw = "g711_ulaw"

	// DefaultSampleRate is the Twilio Media Streams sample rate (8kHz).
	DefaultSampleRate = 8000
)

// DefaultVoice is the assistant voice used when none is configured.
const DefaultVoice = "alloy"

// DefaultInstructions is the assistant persona sent with the session
// configuration.
const DefaultInstructions = "You are a lively, bubbly assistant with a quick-witted personality who likes chatting. Your tone is upbeat, playful, and engaging. Always sound excited to interact, regardless of the topic. You have a positive, can-do attitude, and your quick speech style helps maintain a lively conversation pace. Show enthusiasm about anything the user shares and use humor to keep things light and enjoyable."
