package app

import "time"

// Timer is a handle on a scheduled callback.
type Timer interface {
	// Stop cancels the callback; it reports false if the callback already ran or was stopped.
	Stop() bool
}

// Scheduler arms delayed callbacks. The default uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler returns the wall-clock scheduler.
func RealScheduler() Scheduler { return realScheduler{} }
