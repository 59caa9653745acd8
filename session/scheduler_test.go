package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerFiresWarningThenHardStop(t *testing.T) {
	sched := newDeadlineScheduler()
	warned := make(chan struct{})
	stopped := make(chan struct{})

	ok := sched.Arm(60*time.Millisecond, 40*time.Millisecond,
		func() { close(warned) },
		func() { close(stopped) })
	require.True(t, ok)
	defer sched.Cancel()

	select {
	case <-warned:
	case <-time.After(time.Second):
		t.Fatal("warning never fired")
	}
	select {
	case <-stopped:
	case <-warned:
	case <-time.After(time.Second):
		t.Fatal("hard stop never fired")
	}
}

func TestSchedulerArmOnlyOnce(t *testing.T) {
	sched := newDeadlineScheduler()
	defer sched.Cancel()

	require.True(t, sched.Arm(time.Minute, time.Second, func() {}, func() {}))
	assert.False(t, sched.Arm(time.Minute, time.Second, func() {}, func() {}))
}

func TestSchedulerCancelStopsTimers(t *testing.T) {
	sched := newDeadlineScheduler()
	fired := make(chan struct{}, 2)

	require.True(t, sched.Arm(300*time.Millisecond, 200*time.Millisecond,
		func() { fired <- struct{}{} },
		func() { fired <- struct{}{} }))
	sched.Cancel()
	sched.Cancel()

	select {
	case <-fired:
		t.Fatal("timer fired after cancel")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestSchedulerArmAfterCancelRefused(t *testing.T) {
	sched := newDeadlineScheduler()
	sched.Cancel()
	assert.False(t, sched.Arm(time.Minute, time.Second, func() {}, func() {}))
}
