package session

import (
	"sync"
	"time"
)

// deadlineScheduler owns the warning and hard-stop timers for one call. It is
// armed once the stream id is known and canceled exactly once at teardown;
// canceling already-fired or never-armed timers is a no-op.
type deadlineScheduler struct {
	mu       sync.Mutex
	warning  *time.Timer
	hardStop *time.Timer
	armed    bool
	canceled bool
}

func newDeadlineScheduler() *deadlineScheduler {
	return &deadlineScheduler{}
}

// Arm schedules the warning timer at limit-lead and the hard-stop timer at
// limit. It reports false without arming if the scheduler was already armed
// or canceled.
func (d *deadlineScheduler) Arm(limit, lead time.Duration, onWarning, onHardStop func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.armed || d.canceled {
		return false
	}
	d.armed = true
	d.warning = time.AfterFunc(limit-lead, onWarning)
	d.hardStop = time.AfterFunc(limit, onHardStop)
	return true
}

// Cancel stops both timers. Idempotent and safe to call whether or not the
// scheduler was armed or the timers already fired.
func (d *deadlineScheduler) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.canceled {
		return
	}
	d.canceled = true
	if d.warning != nil {
		d.warning.Stop()
	}
	if d.hardStop != nil {
		d.hardStop.Stop()
	}
}
