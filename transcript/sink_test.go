package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkWritesEntriesInOrder(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	sink := NewSink(dir, start)

	sink.Append(Entry{Timestamp: start.Add(time.Second), Speaker: SpeakerAssistant, Text: "Hello there!"})
	sink.Append(Entry{Timestamp: start.Add(2 * time.Second), Speaker: SpeakerSystem, Text: "conversation ended"})
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-08-29T10:30:01Z] Assistant: Hello there!", lines[0])
	assert.Equal(t, "[2026-08-29T10:30:02Z] System: conversation ended", lines[1])
}

func TestSinkPathDerivedFromStartTime(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	sink := NewSink(dir, start)
	defer func() { _ = sink.Close() }()

	base := filepath.Base(sink.Path())
	assert.True(t, strings.HasPrefix(base, "call-20260829-103000-"), "unexpected transcript name %q", base)
	assert.True(t, strings.HasSuffix(base, ".log"))
}

func TestSinkConcurrentCallsNeverShareATarget(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()

	a := NewSink(dir, start)
	b := NewSink(dir, start)
	defer func() { _ = a.Close() }()
	defer func() { _ = b.Close() }()

	assert.NotEqual(t, a.Path(), b.Path())
}

func TestSinkNoFileWithoutEntries(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, time.Now())
	require.NoError(t, sink.Close())

	_, err := os.Stat(sink.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestSinkAppendAfterClose(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, time.Now())
	sink.Append(Entry{Timestamp: time.Now(), Speaker: SpeakerAssistant, Text: "kept"})
	require.NoError(t, sink.Close())

	// Must not panic or write.
	sink.Append(Entry{Timestamp: time.Now(), Speaker: SpeakerAssistant, Text: "dropped"})
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
}

func TestSinkWriteFailureIsAbsorbed(t *testing.T) {
	// Point the sink at a directory path that cannot be created.
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	sink := NewSink(filepath.Join(file, "nested"), time.Now())
	sink.Append(Entry{Timestamp: time.Now(), Speaker: SpeakerAssistant, Text: "lost"})
	require.NoError(t, sink.Close())
}
