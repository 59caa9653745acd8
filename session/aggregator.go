package session

import (
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// maxUtteranceBytes caps the pending utterance so a remote stream that never
// closes a content block cannot grow memory without bound.
const maxUtteranceBytes = 64 * 1024

// aggregator accumulates fragmented assistant text parts into complete
// utterances. The content events form well-nested start/part*/done groups;
// a start arriving before the previous done discards the unfinished buffer.
type aggregator struct {
	logger   zerolog.Logger
	buf      strings.Builder
	active   bool
	overflow bool
}

func newAggregator(logger zerolog.Logger) *aggregator {
	return &aggregator{logger: logger}
}

// Start begins a new utterance. An unfinished previous utterance is
// discarded; this is tolerated data loss, not an error.
func (a *aggregator) Start() {
	if a.active && a.buf.Len() > 0 {
		a.logger.Warn().Int("discarded_bytes", a.buf.Len()).Msg("content restart before done, discarding unfinished utterance")
	}
	a.buf.Reset()
	a.active = true
	a.overflow = false
}

// Part appends one text fragment. Empty fragments and fragments outside a
// start/done group are no-ops.
func (a *aggregator) Part(text string) {
	if !a.active || text == "" {
		return
	}
	if a.buf.Len()+len(text) > maxUtteranceBytes {
		if !a.overflow {
			a.overflow = true
			a.logger.Warn().Int("limit", maxUtteranceBytes).Msg("utterance exceeds size cap, truncating")
		}
		remaining := maxUtteranceBytes - a.buf.Len()
		if remaining <= 0 {
			return
		}
		text = truncateOnRuneBoundary(text, remaining)
	}
	a.buf.WriteString(text)
}

// truncateOnRuneBoundary cuts text to at most n bytes without splitting a
// multi-byte rune.
func truncateOnRuneBoundary(text string, n int) string {
	if len(text) <= n {
		return text
	}
	text = text[:n]
	for len(text) > 0 {
		if r, size := utf8.DecodeLastRuneInString(text); r != utf8.RuneError || size > 1 {
			break
		}
		text = text[:len(text)-1]
	}
	return text
}

// Done closes the current utterance and returns its trimmed text. It reports
// false when there is nothing to emit.
func (a *aggregator) Done() (string, bool) {
	text := strings.TrimSpace(a.buf.String())
	a.buf.Reset()
	a.active = false
	a.overflow = false
	if text == "" {
		return "", false
	}
	return text, true
}
