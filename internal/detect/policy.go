package detect

import (
	"fmt"
	"time"
)

// LocalTimeFormat renders event times as e.g. "2024-03-07 7:42:15PM".
const LocalTimeFormat = "2006-01-02 3:04:05PM"

// Policy holds the noise-reduction settings of a session.
type Policy struct {
	// Window suppresses a new event whose start time is less than Window
	// after the last accepted event of the same device.
	Window time.Duration

	// QuietStart and QuietEnd bound the daily quiet window in minutes after
	// local midnight, [QuietStart, QuietEnd). Equal values disable it.
	QuietStart int
	QuietEnd   int

	// Location converts UTC start times to the local clock.
	Location *time.Location
}

// DefaultPolicy is one minute of debounce and quiet from 07:00 to 09:30
// on the system clock.
func DefaultPolicy() Policy {
	return Policy{
		Window:     time.Minute,
		QuietStart: 7 * 60,
		QuietEnd:   9*60 + 30,
		Location:   time.Local,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Quiet reports whether t falls inside the quiet window on the local clock.
// A window whose end is before its start wraps past midnight.
func (p Policy) Quiet(t time.Time) bool {
	if p.QuietStart == p.QuietEnd {
		return false
	}
	local := t.In(p.location())
	m := local.Hour()*60 + local.Minute()
	if p.QuietStart < p.QuietEnd {
		return m >= p.QuietStart && m < p.QuietEnd
	}
	return m >= p.QuietStart || m < p.QuietEnd
}

// ParseClock turns "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM): %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatLocal renders an ISO 8601 UTC timestamp in loc using LocalTimeFormat.
// Unparseable input is returned as-is.
func FormatLocal(ts string, loc *time.Location) string {
	t, ok := parseTime(ts)
	if !ok {
		return ts
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(LocalTimeFormat)
}

func parseTime(ts string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
