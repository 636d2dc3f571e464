// Package common provides small shared utilities for the pipeline.
package common

import (
	"fmt"
	"time"
)

// Timer measures one named span of work, used for per-stage latency
// accounting.
type Timer struct {
	name     string
	start    time.Time
	duration time.Duration
}

// StartTimer begins timing a named span.
func StartTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop ends the span and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration; valid after Stop.
func (t *Timer) Duration() time.Duration { return t.duration }

// Name returns the span name.
func (t *Timer) Name() string { return t.name }

// String formats the timer as "name: duration".
func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}
