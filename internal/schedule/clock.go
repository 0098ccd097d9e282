package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// Clock is a minute-of-day value in [0, 1440).
type Clock int

// ParseClock converts an HH:MM string into a Clock.
func ParseClock(raw string) (Clock, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in clock value %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in clock value %q", raw)
	}
	return Clock(hour*60 + minute), nil
}

// String formats the clock back to HH:MM.
func (c Clock) String() string {
	m := int(c) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AddMinutes advances the clock by the given number of minutes using
// modular arithmetic. The result wraps past midnight; callers detect "no
// more room today" by comparing against the school end before adding a
// delta that would overflow the day.
func AddMinutes(c Clock, minutes int) Clock {
	m := (int(c) + minutes) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return Clock(m)
}

// MinutesBetween returns b minus a in minutes. The result is negative when
// b precedes a; callers use the sign to detect "does not fit".
func MinutesBetween(a, b Clock) int {
	return int(b) - int(a)
}
