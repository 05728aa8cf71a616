// Package timeline holds the time value types the document layer is built
// on: validity intervals with ISO-8601 text forms, and fixed-step sampling
// windows used when generating ephemeris tracks.
package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Interval is a closed validity interval [Start, Stop]. The zero Interval
// means "no interval declared".
type Interval struct {
	Start time.Time
	Stop  time.Time
}

// NewInterval returns the interval [start, stop]. It returns an error when
// start is after stop.
func NewInterval(start, stop time.Time) (Interval, error) {
	if start.After(stop) {
		return Interval{}, fmt.Errorf("interval start %s after stop %s", FormatTime(start), FormatTime(stop))
	}
	return Interval{Start: start.UTC(), Stop: stop.UTC()}, nil
}

// IsZero reports whether the interval is unset.
func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() && iv.Stop.IsZero()
}

// Contains reports whether other lies fully within iv. A zero iv contains
// nothing; a zero other is contained by anything.
func (iv Interval) Contains(other Interval) bool {
	if other.IsZero() {
		return true
	}
	if iv.IsZero() {
		return false
	}
	return !other.Start.Before(iv.Start) && !other.Stop.After(iv.Stop)
}

// ContainsTime reports whether t lies within iv.
func (iv Interval) ContainsTime(t time.Time) bool {
	if iv.IsZero() {
		return false
	}
	return !t.Before(iv.Start) && !t.After(iv.Stop)
}

// Union returns the smallest interval covering both iv and other. A zero
// operand is ignored.
func (iv Interval) Union(other Interval) Interval {
	if iv.IsZero() {
		return other
	}
	if other.IsZero() {
		return iv
	}
	out := iv
	if other.Start.Before(out.Start) {
		out.Start = other.Start
	}
	if other.Stop.After(out.Stop) {
		out.Stop = other.Stop
	}
	return out
}

// String renders the interval in the renderer's "start/stop" ISO-8601 form.
func (iv Interval) String() string {
	return FormatTime(iv.Start) + "/" + FormatTime(iv.Stop)
}

// ParseInterval parses the "start/stop" ISO-8601 form produced by String.
func ParseInterval(s string) (Interval, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("interval %q: want \"start/stop\"", s)
	}
	start, err := ParseTime(parts[0])
	if err != nil {
		return Interval{}, fmt.Errorf("interval %q: %w", s, err)
	}
	stop, err := ParseTime(parts[1])
	if err != nil {
		return Interval{}, fmt.Errorf("interval %q: %w", s, err)
	}
	return NewInterval(start, stop)
}

// FormatTime renders t as the UTC ISO-8601 string the renderer expects.
// Sub-second precision is kept only when present.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses an ISO-8601 timestamp, with or without fractional
// seconds.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Window is a sampling plan over [Start, Stop] at a fixed Step.
// It drives ephemeris generation: one sample per instant.
type Window struct {
	Start time.Time
	Stop  time.Time
	Step  time.Duration
}

// Times expands the window into its sample instants. Start and Stop are
// both included; Stop is appended even when the step does not land on it
// exactly, so the produced track always covers the whole window.
func (w Window) Times() ([]time.Time, error) {
	if w.Step <= 0 {
		return nil, fmt.Errorf("window step %s: must be positive", w.Step)
	}
	if w.Stop.Before(w.Start) {
		return nil, fmt.Errorf("window stop %s before start %s", FormatTime(w.Stop), FormatTime(w.Start))
	}

	var out []time.Time
	for t := w.Start; !t.After(w.Stop); t = t.Add(w.Step) {
		out = append(out, t.UTC())
	}
	if last := out[len(out)-1]; last.Before(w.Stop) {
		out = append(out, w.Stop.UTC())
	}
	return out, nil
}

// Interval returns the window's span as an Interval.
func (w Window) Interval() Interval {
	return Interval{Start: w.Start.UTC(), Stop: w.Stop.UTC()}
}
