package realtime

import "time"

// Timer is a cancellable scheduled task.
type Timer interface {
	// Stop cancels the task. It returns false if the task already ran or
	// was already stopped.
	Stop() bool
}

// Clock schedules the manager's reconnect and heartbeat tasks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall clock backed by time.AfterFunc.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
