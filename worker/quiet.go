package worker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mailpilot/models"
)

// InQuietHours reports whether the given moment falls inside the
// configured quiet window [start, end), wrapping past midnight when the
// window starts in the evening (22:00–08:00). An unparsable window
// disables the gate rather than silencing everything.
func InQuietHours(settings *models.NotificationSettings, now time.Time) bool {
	if !settings.QuietHoursEnabled {
		return false
	}

	start, err := parseClock(settings.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := parseClock(settings.QuietHoursEnd)
	if err != nil {
		return false
	}
	if start == end {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	if start < end {
		return cur >= start && cur < end
	}
	// Window wraps midnight
	return cur >= start || cur < end
}

// clockToday anchors an "HH:MM" value to the date of the reference time.
func clockToday(value string, ref time.Time) (time.Time, error) {
	minutes, err := parseClock(value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), minutes/60, minutes%60, 0, 0, ref.Location()), nil
}

func parseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}
