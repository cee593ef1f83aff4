package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(weekday time.Weekday, hour, min int) time.Time {
	// 2025-06-01 is a Sunday.
	base := time.Date(2025, 6, 1, hour, min, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(weekday-time.Sunday))
}

func TestQuietHours_SameDayWindow(t *testing.T) {
	q := &QuietHours{Start: "09:00", End: "17:00", Timezone: "UTC"}

	assert.False(t, q.Contains(at(time.Monday, 8, 59)))
	assert.True(t, q.Contains(at(time.Monday, 9, 0)), "start is inclusive")
	assert.True(t, q.Contains(at(time.Monday, 12, 30)))
	assert.False(t, q.Contains(at(time.Monday, 17, 0)), "end is exclusive")
}

func TestQuietHours_CrossesMidnight(t *testing.T) {
	q := &QuietHours{Start: "22:00", End: "06:00", Timezone: "UTC"}

	assert.True(t, q.Contains(at(time.Monday, 23, 0)))
	assert.True(t, q.Contains(at(time.Tuesday, 2, 0)))
	assert.False(t, q.Contains(at(time.Tuesday, 6, 0)))
	assert.False(t, q.Contains(at(time.Monday, 12, 0)))
}

func TestQuietHours_DayFilter(t *testing.T) {
	q := &QuietHours{Start: "09:00", End: "17:00", Timezone: "UTC",
		Days: []time.Weekday{time.Saturday, time.Sunday}}

	assert.True(t, q.Contains(at(time.Sunday, 10, 0)))
	assert.False(t, q.Contains(at(time.Monday, 10, 0)))
}

func TestQuietHours_MidnightWindowBelongsToOpeningDay(t *testing.T) {
	// Friday 22:00 through Saturday 06:00 counts as Friday's window.
	q := &QuietHours{Start: "22:00", End: "06:00", Timezone: "UTC",
		Days: []time.Weekday{time.Friday}}

	assert.True(t, q.Contains(at(time.Friday, 23, 0)))
	assert.True(t, q.Contains(at(time.Saturday, 3, 0)), "early Saturday is still Friday's window")
	assert.False(t, q.Contains(at(time.Saturday, 23, 0)))
}

func TestQuietHours_Timezone(t *testing.T) {
	q := &QuietHours{Start: "09:00", End: "17:00", Timezone: "America/New_York"}

	// 14:00 UTC is 10:00 in New York during DST.
	assert.True(t, q.Contains(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)))
	// 09:00 UTC is 05:00 in New York.
	assert.False(t, q.Contains(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)))
}

func TestQuietHours_Malformed(t *testing.T) {
	assert.False(t, (*QuietHours)(nil).Contains(time.Now()))
	assert.False(t, (&QuietHours{Start: "9am", End: "5pm"}).Contains(time.Now()))
	assert.False(t, (&QuietHours{Start: "09:00"}).Contains(at(time.Monday, 10, 0)))
	assert.False(t, (&QuietHours{Start: "25:00", End: "26:00"}).Contains(at(time.Monday, 10, 0)))
}

func TestChannelMuted(t *testing.T) {
	ch := &Channel{Kind: KindEmail, Enabled: true}
	assert.False(t, ch.Muted(time.Now()), "no quiet hours means never muted")

	ch.QuietHours = &QuietHours{Start: "00:00", End: "23:59", Timezone: "UTC"}
	assert.True(t, ch.Muted(at(time.Monday, 12, 0)))
}
