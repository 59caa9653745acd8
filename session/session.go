// Package session implements the per-call relay: a state machine that owns
// one caller's telephony connection and one Realtime connection, multiplexes
// audio and control frames between them, enforces the call-duration limit,
// and persists the transcript.
package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentplexus/voicebridge"
	"github.com/agentplexus/voicebridge/internal/log"
	"github.com/agentplexus/voicebridge/internal/metrics"
	"github.com/agentplexus/voicebridge/realtime"
	"github.com/agentplexus/voicebridge/telephony"
	"github.com/agentplexus/voicebridge/transcript"
)

// State is the lifecycle phase of a session.
type State int

const (
	// StateConnecting means the telephony connection is accepted but the
	// Realtime session has not been confirmed ready.
	StateConnecting State = iota
	// StateActive is normal bidirectional relay.
	StateActive
	// StateClosing means teardown has started.
	StateClosing
	// StateClosed is terminal; all resources are released.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Advisory texts sent over the Realtime connection when the call approaches
// and reaches its duration limit.
const (
	warningMessage  = "Please note: this call is approaching its time limit and will end shortly."
	farewellMessage = "We have reached the time limit for this call. Thank you for calling, goodbye!"
)

// defaultConfigDelay is how long after the Realtime connection opens the
// session configuration is sent. The remote service is not always ready to
// accept configuration immediately after the handshake.
const defaultConfigDelay = 250 * time.Millisecond

// Config carries everything a session needs to run one call.
type Config struct {
	// Realtime is the fixed session configuration sent at bootstrap.
	Realtime realtime.SessionConfig

	// RealtimeURL, Model and APIKey identify the Realtime endpoint.
	RealtimeURL string
	Model       string
	APIKey      string

	// CallLimit is the hard call-duration limit, WarningLead how long
	// before it the caller is warned, FarewellGrace how long the farewell
	// may play before the transports are force-closed.
	CallLimit     time.Duration
	WarningLead   time.Duration
	FarewellGrace time.Duration

	// TranscriptDir is where this call's transcript file is created.
	TranscriptDir string

	// ConfigDelay overrides the post-handshake configuration delay.
	// Zero means the default.
	ConfigDelay time.Duration

	// Dial overrides how the Realtime connection is established.
	// Nil means dialing RealtimeURL.
	Dial func(ctx context.Context) (*realtime.Conn, error)
}

type eventKind int

const (
	evTelephonyFrame eventKind = iota
	evTelephonyClosed
	evRealtimeEvent
	evRealtimeClosed
	evWarning
	evHardStop
	evGraceExpired
	evShutdown
)

// event is one unit of work for the session's single decision point. All
// four sources (both transports, both timers) funnel through it.
type event struct {
	kind  eventKind
	frame *telephony.Message
	rt    realtime.Event
	err   error
}

// Session owns one call from connection to termination. All state is mutated
// only by the Run goroutine; external callers interact through Shutdown and
// Done.
type Session struct {
	cfg Config

	// logger is owned by the Run goroutine; it is rebound once the stream
	// id is known. Goroutines spawned from Run receive their own copy.
	logger zerolog.Logger

	tel  *telephony.Conn
	ai   *realtime.Conn
	sink *transcript.Sink

	state            State
	streamSID        string
	startTime        time.Time
	aiOpen           bool
	responseInFlight bool
	warningFired     bool
	hardStopFired    bool

	agg   *aggregator
	sched *deadlineScheduler

	configTimer *time.Timer
	graceTimer  *time.Timer

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a session for an accepted telephony connection.
func New(tel *telephony.Conn, cfg Config) *Session {
	logger := log.WithComponent("session")
	return &Session{
		cfg:    cfg,
		logger: logger,
		tel:    tel,
		state:  StateConnecting,
		agg:    newAggregator(logger),
		sched:  newDeadlineScheduler(),
		events: make(chan event, 32),
		done:   make(chan struct{}),
	}
}

// Run drives the call to completion and blocks until the session is closed
// and all of its goroutines have exited.
func (s *Session) Run(ctx context.Context) {
	s.startTime = time.Now()
	s.sink = transcript.NewSink(s.cfg.TranscriptDir, s.startTime)
	metrics.SessionsStarted.Inc()
	metrics.ActiveSessions.Inc()
	s.logger.Info().Msg("caller connected to media stream")

	ai, err := s.dialRealtime(ctx)
	if err != nil {
		// Fail the inbound call rather than leave it open with no responder.
		s.logger.Error().Err(err).Msg("realtime bootstrap failed, terminating call")
		s.teardown("bootstrap_failed")
		return
	}
	s.ai = ai
	s.aiOpen = true

	delay := s.cfg.ConfigDelay
	if delay == 0 {
		delay = defaultConfigDelay
	}
	logger := s.logger
	s.configTimer = time.AfterFunc(delay, func() { s.sendSessionConfig(logger) })

	s.wg.Add(2)
	go s.readTelephony(logger)
	go s.readRealtime(logger)

	for s.state != StateClosed {
		select {
		case e := <-s.events:
			s.dispatch(e)
		case <-ctx.Done():
			s.teardown("shutdown")
		}
	}
	s.wg.Wait()
}

// Shutdown asks the session to tear down. It does not wait; use Done.
// Safe to call at any point, from any goroutine.
func (s *Session) Shutdown() {
	s.push(event{kind: evShutdown})
}

// Done is closed once the session is fully closed and its transcript is
// durable.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the lifecycle phase. Only stable once Done is closed.
func (s *Session) State() State {
	return s.state
}

// TranscriptPath returns the transcript target for this call.
func (s *Session) TranscriptPath() string {
	if s.sink == nil {
		return ""
	}
	return s.sink.Path()
}

func (s *Session) dialRealtime(ctx context.Context) (*realtime.Conn, error) {
	if s.cfg.Dial != nil {
		return s.cfg.Dial(ctx)
	}
	return realtime.Dial(ctx, s.cfg.RealtimeURL, s.cfg.Model, s.cfg.APIKey)
}

// sendSessionConfig runs on the config timer goroutine. The connection
// serializes writes, so this is safe alongside the relay path.
func (s *Session) sendSessionConfig(logger zerolog.Logger) {
	if err := s.ai.SendSessionUpdate(s.cfg.Realtime); err != nil {
		logger.Error().Err(err).Msg("failed to send session configuration")
		return
	}
	logger.Info().Msg("session configuration sent")
}

// push delivers an event to the decision point, giving up once the session
// is closed so timers and readers can never block forever.
func (s *Session) push(e event) {
	select {
	case s.events <- e:
	case <-s.done:
	}
}

func (s *Session) readTelephony(logger zerolog.Logger) {
	defer s.wg.Done()
	for {
		msg, raw, err := s.tel.ReadFrame()
		if err != nil {
			if errors.Is(err, telephony.ErrMalformedFrame) {
				metrics.MalformedFrames.WithLabelValues("telephony").Inc()
				logger.Warn().Err(err).Str("raw", string(raw)).Msg("dropping malformed telephony frame")
				continue
			}
			s.push(event{kind: evTelephonyClosed, err: err})
			return
		}
		s.push(event{kind: evTelephonyFrame, frame: msg})
	}
}

func (s *Session) readRealtime(logger zerolog.Logger) {
	defer s.wg.Done()
	for {
		ev, raw, err := s.ai.ReadEvent()
		if err != nil {
			if errors.Is(err, realtime.ErrMalformedEvent) {
				metrics.MalformedFrames.WithLabelValues("realtime").Inc()
				logger.Warn().Err(err).Str("raw", string(raw)).Msg("dropping malformed realtime event")
				continue
			}
			s.push(event{kind: evRealtimeClosed, err: err})
			return
		}
		s.push(event{kind: evRealtimeEvent, rt: ev})
	}
}

func (s *Session) dispatch(e event) {
	// Late arrivals after teardown started are discarded, never processed.
	if s.state == StateClosing || s.state == StateClosed {
		if e.kind == evTelephonyFrame || e.kind == evRealtimeEvent {
			s.logger.Debug().Msg("discarding frame received during teardown")
		}
		return
	}

	switch e.kind {
	case evTelephonyFrame:
		s.handleTelephonyFrame(e.frame)
	case evRealtimeEvent:
		s.handleRealtimeEvent(e.rt)
	case evTelephonyClosed:
		s.logClose("telephony", e.err)
		s.teardown("telephony_closed")
	case evRealtimeClosed:
		s.aiOpen = false
		s.logClose("realtime", e.err)
		s.teardown("realtime_closed")
	case evWarning:
		s.handleWarning()
	case evHardStop:
		s.handleHardStop()
	case evGraceExpired:
		s.teardown("time_limit")
	case evShutdown:
		s.teardown("shutdown")
	}
}

func (s *Session) handleTelephonyFrame(msg *telephony.Message) {
	switch msg.Event {
	case telephony.EventConnected:
		s.logger.Debug().Msg("media stream protocol connected")

	case telephony.EventStart:
		if msg.Start == nil || msg.Start.StreamSID == "" {
			s.logger.Warn().Msg("start frame without stream sid, ignoring")
			return
		}
		if s.streamSID != "" {
			// Protocol violation; the original timers stay armed.
			s.logger.Warn().Str("stream_sid", msg.Start.StreamSID).Msg("duplicate start frame, ignoring")
			return
		}
		s.streamSID = msg.Start.StreamSID
		s.logger = s.logger.With().Str("stream_sid", s.streamSID).Logger()
		s.logger.Info().Str("call_sid", msg.Start.CallSID).Msg("incoming stream started")
		if rate := msg.Start.MediaFormat.SampleRate; rate != 0 && rate != voicebridge.DefaultSampleRate {
			// Payloads pass through unmodified, so the relay continues.
			s.logger.Warn().Int("sample_rate", rate).Msg("stream sample rate differs from telephony default")
		}
		s.sched.Arm(s.cfg.CallLimit, s.cfg.WarningLead,
			func() { s.push(event{kind: evWarning}) },
			func() { s.push(event{kind: evHardStop}) },
		)

	case telephony.EventMedia:
		audio, ok := inboundAudio(msg.Media)
		if !ok {
			return
		}
		if !s.aiOpen {
			metrics.FramesDropped.WithLabelValues("realtime_not_open").Inc()
			s.logger.Warn().Msg("dropping media frame, realtime connection not open")
			return
		}
		if err := s.ai.SendAudioAppend(audio); err != nil {
			metrics.FramesDropped.WithLabelValues("realtime_send_failed").Inc()
			s.logger.Warn().Err(err).Msg("failed to forward media frame")
			return
		}
		metrics.FramesForwarded.WithLabelValues("inbound").Inc()

	case telephony.EventStop:
		s.logger.Info().Msg("caller stopped the stream")
		s.teardown("caller_stop")

	default:
		s.logger.Debug().Str("event", msg.Event).Msg("ignoring non-media event")
	}
}

func (s *Session) handleRealtimeEvent(ev realtime.Event) {
	switch ev.Type {
	case realtime.TypeSessionCreated:
		if s.state == StateConnecting {
			s.state = StateActive
			s.logger.Info().Msg("realtime session ready")
		}

	case realtime.TypeSessionUpdated:
		s.logger.Debug().Msg("realtime session configuration acknowledged")

	case realtime.TypeAudioDelta:
		if ev.Delta == "" {
			return
		}
		payload, err := outboundAudio(ev.Delta)
		if err != nil {
			metrics.FramesDropped.WithLabelValues("bad_audio_delta").Inc()
			s.logger.Warn().Err(err).Msg("dropping undecodable audio delta")
			return
		}
		if s.streamSID == "" {
			metrics.FramesDropped.WithLabelValues("stream_unknown").Inc()
			s.logger.Warn().Msg("dropping audio delta, stream id not yet known")
			return
		}
		if err := s.tel.WriteMedia(s.streamSID, payload); err != nil {
			metrics.FramesDropped.WithLabelValues("telephony_send_failed").Inc()
			s.logger.Warn().Err(err).Msg("failed to send media frame to caller")
			return
		}
		metrics.FramesForwarded.WithLabelValues("outbound").Inc()

	case realtime.TypeContentStart:
		s.responseInFlight = true
		s.agg.Start()

	case realtime.TypeContentPart:
		s.agg.Part(ev.Text)

	case realtime.TypeContentDone:
		if text, ok := s.agg.Done(); ok {
			s.sink.Append(transcript.Entry{
				Timestamp: time.Now(),
				Speaker:   transcript.SpeakerAssistant,
				Text:      text,
			})
		}

	case realtime.TypeResponseDone:
		s.responseInFlight = false

	case realtime.TypeError:
		evt := s.logger.Warn()
		if ev.Err != nil {
			evt = evt.Str("code", ev.Err.Code).Str("message", ev.Err.Message)
		}
		evt.Msg("realtime service reported an error")

	default:
		s.logger.Debug().Str("type", ev.Type).Msg("unhandled realtime event")
	}
}

func (s *Session) handleWarning() {
	if s.state != StateActive || s.warningFired {
		return
	}
	s.warningFired = true
	if err := s.ai.SendText(warningMessage); err != nil {
		s.logger.Warn().Err(err).Msg("failed to send time-limit warning")
		return
	}
	s.logger.Info().Msg("time-limit warning sent")
}

// handleHardStop ends the call at the duration limit. An Active session gets
// the spoken farewell and a grace period; a session still waiting for the
// remote side is torn down immediately so the limit binds in every state.
func (s *Session) handleHardStop() {
	if s.hardStopFired {
		return
	}
	s.hardStopFired = true
	if s.state != StateActive {
		s.teardown("time_limit")
		return
	}
	if err := s.ai.SendText(farewellMessage); err != nil {
		s.logger.Warn().Err(err).Msg("failed to send farewell")
	}
	s.logger.Info().Dur("grace", s.cfg.FarewellGrace).Msg("call time limit reached, closing after grace period")
	s.graceTimer = time.AfterFunc(s.cfg.FarewellGrace, func() {
		s.push(event{kind: evGraceExpired})
	})
}

// isNormalClose reports whether a transport read error is an expected
// end-of-connection rather than a fault worth warning about.
func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF)
}

func (s *Session) logClose(transport string, err error) {
	if err != nil && !isNormalClose(err) {
		s.logger.Warn().Err(err).Str("transport", transport).Msg("transport closed with error")
		return
	}
	s.logger.Info().Str("transport", transport).Msg("transport closed")
}

// teardown releases everything exactly once: timers canceled, the final
// transcript entry flushed, both transports closed. It only runs on the Run
// goroutine; a second invocation (e.g. a transport close racing the
// hard-stop timer) is a no-op.
func (s *Session) teardown(cause string) {
	if s.state == StateClosing || s.state == StateClosed {
		return
	}
	s.state = StateClosing
	s.logger.Info().Str("cause", cause).Msg("session closing")

	if s.configTimer != nil {
		s.configTimer.Stop()
	}
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	s.sched.Cancel()
	s.aiOpen = false

	if s.responseInFlight {
		s.logger.Debug().Msg("discarding in-flight assistant response")
	}

	s.sink.Append(transcript.Entry{
		Timestamp: time.Now(),
		Speaker:   transcript.SpeakerSystem,
		Text:      "conversation ended",
	})

	_ = s.tel.Close()
	if s.ai != nil {
		_ = s.ai.Close()
	}
	_ = s.sink.Close()

	s.state = StateClosed
	close(s.done)
	metrics.SessionsEnded.WithLabelValues(cause).Inc()
	metrics.ActiveSessions.Dec()
	s.logger.Info().
		Dur("duration", time.Since(s.startTime)).
		Str("transcript", s.sink.Path()).
		Msg("session closed")
}
