package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/models"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 4, hour, minute, 0, 0, time.UTC)
}

func quietSettings(start, end string) *models.NotificationSettings {
	return &models.NotificationSettings{
		QuietHoursEnabled: true,
		QuietHoursStart:   start,
		QuietHoursEnd:     end,
	}
}

func TestInQuietHoursDisabled(t *testing.T) {
	settings := quietSettings("22:00", "08:00")
	settings.QuietHoursEnabled = false
	assert.False(t, InQuietHours(settings, at(23, 0)))
}

func TestInQuietHoursWindowWrapsMidnight(t *testing.T) {
	settings := quietSettings("22:00", "08:00")

	assert.True(t, InQuietHours(settings, at(23, 0)))
	assert.True(t, InQuietHours(settings, at(3, 30)))
	assert.True(t, InQuietHours(settings, at(22, 0)), "start boundary is inside")
	assert.False(t, InQuietHours(settings, at(8, 0)), "end boundary is outside")
	assert.False(t, InQuietHours(settings, at(12, 0)))
}

func TestInQuietHoursSameDayWindow(t *testing.T) {
	settings := quietSettings("12:00", "14:00")

	assert.True(t, InQuietHours(settings, at(12, 0)))
	assert.True(t, InQuietHours(settings, at(13, 59)))
	assert.False(t, InQuietHours(settings, at(14, 0)))
	assert.False(t, InQuietHours(settings, at(11, 59)))
}

func TestInQuietHoursDegenerateAndInvalid(t *testing.T) {
	assert.False(t, InQuietHours(quietSettings("08:00", "08:00"), at(8, 0)), "equal start and end means no window")
	assert.False(t, InQuietHours(quietSettings("25:00", "08:00"), at(3, 0)), "unparsable start disables the gate")
	assert.False(t, InQuietHours(quietSettings("22:00", "8pm"), at(23, 0)))
}

func TestClockToday(t *testing.T) {
	ref := time.Date(2026, 3, 4, 15, 42, 10, 0, time.UTC)

	got, err := clockToday("09:30", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC), got)

	_, err = clockToday("9:3:1", ref)
	assert.Error(t, err)
}
