package clock

import (
	"sync"
	"time"
)

// Clock is the time source for the device loop.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in Loc (time.Local when nil).
type System struct {
	Loc *time.Location
}

func (s System) Now() time.Time {
	if s.Loc == nil {
		return time.Now()
	}
	return time.Now().In(s.Loc)
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
