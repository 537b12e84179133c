package core

import "fmt"

// FormatClock renders minutes since the nominal start hour as an
// HH:MM wall-clock string.
func FormatClock(minutes, startHour int) string {
	total := minutes + startHour*60
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ParseClock converts an HH:MM wall-clock string to minutes since the
// nominal start hour. Times before the start hour come out negative.
func ParseClock(s string, startHour int) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("core: bad clock string %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("core: clock string %q out of range", s)
	}
	return h*60 + m - startHour*60, nil
}
