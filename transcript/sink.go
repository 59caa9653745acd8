// Package transcript persists the spoken exchange of one call as an
// append-only plain-text log, one file per call.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentplexus/voicebridge/internal/log"
	"github.com/agentplexus/voicebridge/internal/metrics"
)

// Speaker tags one side of the exchange.
type Speaker string

const (
	SpeakerCaller    Speaker = "Caller"
	SpeakerAssistant Speaker = "Assistant"
	SpeakerSystem    Speaker = "System"
)

// Entry is one utterance or marker in the transcript.
type Entry struct {
	Timestamp time.Time
	Speaker   Speaker
	Text      string
}

// queueSize bounds the per-call write backlog. A full queue drops entries so
// a slow disk never blocks the audio path.
const queueSize = 256

// Sink writes entries for one call to a call-scoped file. Appends are
// fire-and-forget: a background writer drains a bounded queue, and write
// failures are logged instead of surfaced to the relay path. Close drains
// the queue and syncs the file before returning.
type Sink struct {
	path   string
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool

	ch   chan Entry
	done chan struct{}
}

// NewSink creates a sink for a call that started at the given time. The
// target file is derived from the start timestamp plus a random suffix so
// concurrent calls never share a target; it is created lazily on the first
// write.
func NewSink(dir string, start time.Time) *Sink {
	name := fmt.Sprintf("call-%s-%s.log",
		start.UTC().Format("20060102-150405"),
		uuid.NewString()[:8])
	s := &Sink{
		path:   filepath.Join(dir, name),
		logger: log.WithComponent("transcript"),
		ch:     make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Path returns the transcript file path.
func (s *Sink) Path() string {
	return s.path
}

// Append queues one entry for durable write. It never blocks: if the queue
// is full the entry is dropped and logged. Appending to a closed sink is a
// no-op.
func (s *Sink) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- e:
	default:
		metrics.TranscriptWriteErrors.Inc()
		s.logger.Warn().Str("speaker", string(e.Speaker)).Msg("transcript queue full, entry dropped")
	}
}

// Close stops the sink, waits for queued entries to reach disk, and syncs
// the file. Safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *Sink) run() {
	defer close(s.done)

	var f *os.File
	defer func() {
		if f != nil {
			if err := f.Sync(); err != nil {
				s.logger.Error().Err(err).Str("path", s.path).Msg("transcript sync failed")
			}
			_ = f.Close()
		}
	}()

	for e := range s.ch {
		if f == nil {
			var err error
			f, err = s.open()
			if err != nil {
				metrics.TranscriptWriteErrors.Inc()
				s.logger.Error().Err(err).Str("path", s.path).Msg("transcript open failed, entry lost")
				continue
			}
		}
		line := fmt.Sprintf("[%s] %s: %s\n", e.Timestamp.UTC().Format(time.RFC3339), e.Speaker, e.Text)
		if _, err := f.WriteString(line); err != nil {
			metrics.TranscriptWriteErrors.Inc()
			s.logger.Error().Err(err).Str("path", s.path).Msg("transcript write failed")
		}
	}
}

func (s *Sink) open() (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return f, nil
}
