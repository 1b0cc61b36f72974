package notify

import (
	"context"
	"sync"
)

// Recorder implements Channel for testing. It records every alert and can
// be told to fail.
type Recorder struct {
	mu     sync.Mutex
	name   string
	alerts []Alert
	err    error
}

// NewRecorder creates a Recorder reporting the given channel name.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name}
}

// Name implements Channel.
func (r *Recorder) Name() string { return r.name }

// Notify records the alert, then returns the configured error if any.
func (r *Recorder) Notify(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

// FailWith makes subsequent Notify calls return err (nil to succeed again).
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Count returns the number of alerts received.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

// Last returns the most recent alert. Returns zero value and false if none.
func (r *Recorder) Last() (Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.alerts) == 0 {
		return Alert{}, false
	}
	return r.alerts[len(r.alerts)-1], true
}

// All returns a copy of all received alerts.
func (r *Recorder) All() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}
