// Package httpapi exposes the bridge's HTTP surface: the call-control
// webhook, the media-stream WebSocket endpoint, health, and metrics.
package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/agentplexus/voicebridge"
	"github.com/agentplexus/voicebridge/internal/config"
	"github.com/agentplexus/voicebridge/internal/log"
	"github.com/agentplexus/voicebridge/realtime"
	"github.com/agentplexus/voicebridge/session"
	"github.com/agentplexus/voicebridge/telephony"
)

const (
	healthPath      = "/api/v1/health"
	agentPath       = "/api/v1/agent"
	mediaStreamPath = "/api/v1/webhook/media-stream"
)

// Server holds the HTTP handlers and tracks live sessions so each one's
// teardown is part of the process shutdown sequence.
type Server struct {
	cfg      config.Config
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session.Session]struct{}
}

// New creates the HTTP surface for the given configuration.
func New(cfg config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: log.WithComponent("httpapi"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[*session.Session]struct{}),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get(healthPath, s.handleHealth)
	r.With(httprate.LimitByIP(30, time.Minute)).Post(agentPath, s.handleAgent)
	r.Get(mediaStreamPath, s.handleMediaStream)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAgent answers Twilio's call-control webhook with the TwiML document
// that plays the prompts and opens the media stream back to this host.
func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	s.logger.Info().Str("host", r.Host).Msg("call-control webhook invoked")
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(agentTwiML(r.Host)))
}

// handleMediaStream upgrades the connection and runs one session for its
// lifetime. The handler goroutine is the session's Run goroutine.
func (s *Server) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("media-stream upgrade failed")
		return
	}

	sess := session.New(telephony.NewConn(ws), s.sessionConfig())
	s.track(sess)
	defer s.untrack(sess)

	// The request context dies with the hijacked connection; the session
	// ends via its own teardown paths or CloseSessions.
	sess.Run(context.Background())
}

func (s *Server) sessionConfig() session.Config {
	return session.Config{
		Realtime: realtime.SessionConfig{
			Voice:            s.cfg.Voice,
			Instructions:     s.cfg.Instructions,
			InputFormat:      voicebridge.AudioFormatG711Ulaw,
			OutputFormat:     voicebridge.AudioFormatG711Ulaw,
			Temperature:      s.cfg.Temperature,
			MaxTokens:        s.cfg.MaxTokens,
			TopP:             s.cfg.TopP,
			FrequencyPenalty: s.cfg.FrequencyPenalty,
			PresencePenalty:  s.cfg.PresencePenalty,
		},
		RealtimeURL:   s.cfg.RealtimeURL,
		Model:         s.cfg.Model,
		APIKey:        s.cfg.OpenAIAPIKey,
		CallLimit:     s.cfg.CallLimit,
		WarningLead:   s.cfg.WarningLead,
		FarewellGrace: s.cfg.FarewellGrace,
		TranscriptDir: s.cfg.TranscriptDir,
	}
}

func (s *Server) track(sess *session.Session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(sess *session.Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

// CloseSessions asks every live session to tear down and waits for each to
// finish flushing its transcript, or for the context to expire.
func (s *Server) CloseSessions(ctx context.Context) {
	s.mu.Lock()
	live := make([]*session.Session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.Shutdown()
	}
	for _, sess := range live {
		select {
		case <-sess.Done():
		case <-ctx.Done():
			s.logger.Warn().Msg("shutdown deadline reached before all sessions closed")
			return
		}
	}
}
