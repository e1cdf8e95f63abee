package market

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day in minutes after midnight.
type Clock int

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad clock %q: %w", s, err)
	}
	return NewClock(t.Hour(), t.Minute()), nil
}

// ClockOf returns the time of day of t in its own location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the instant on date's calendar day at this clock, in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, loc)
}

// Window is an inclusive time-of-day range.
type Window struct {
	Start Clock
	End   Clock
}

// Contains reports whether t's time of day lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	c := ClockOf(t)
	return c >= w.Start && c <= w.End
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

var (
	// EntryWindow is the post-close announcement window in which entries
	// are evaluated.
	EntryWindow = Window{Start: NewClock(16, 0), End: NewClock(16, 10)}

	// PostAnnouncementSession is the bar range fed to the engine.
	PostAnnouncementSession = Window{Start: NewClock(16, 5), End: NewClock(18, 0)}
)

// FilterSession returns the bars whose time of day is inside w. The input
// order is preserved.
func FilterSession(bars []Bar, w Window) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if w.Contains(b.Time) {
			out = append(out, b)
		}
	}
	return out
}
