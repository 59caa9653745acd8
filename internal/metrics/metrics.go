// Package metrics provides Prometheus metrics for the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts accepted media-stream connections.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_sessions_started_total",
		Help: "Total number of media-stream sessions accepted.",
	})

	// SessionsEnded counts completed sessions by cause.
	SessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_sessions_ended_total",
		Help: "Total number of sessions ended, by cause.",
	}, []string{"cause"})

	// ActiveSessions tracks currently open sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicebridge_active_sessions",
		Help: "Current number of active sessions.",
	})

	// FramesForwarded counts audio frames relayed, by direction
	// (inbound = caller to assistant, outbound = assistant to caller).
	FramesForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_frames_forwarded_total",
		Help: "Total number of audio frames relayed, by direction.",
	}, []string{"direction"})

	// FramesDropped counts frames dropped instead of relayed, by reason.
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_frames_dropped_total",
		Help: "Total number of frames dropped, by reason.",
	}, []string{"reason"})

	// MalformedFrames counts undecodable messages, by transport.
	MalformedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_malformed_frames_total",
		Help: "Total number of undecodable frames, by transport.",
	}, []string{"transport"})

	// TranscriptWriteErrors counts failed transcript appends.
	TranscriptWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_transcript_write_errors_total",
		Help: "Total number of transcript entries that failed to persist.",
	})
)
