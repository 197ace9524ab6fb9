package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.Local)
}

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.Equal(t, 5*time.Minute, config.PollInterval)
	assert.Equal(t, 15*time.Minute, config.BackgroundInterval)
	assert.Equal(t, 20*time.Second, config.GatewayTimeout)
}

func TestWindowAt(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected ScheduleType
	}{
		{name: "midnight start", now: at(0, 0), expected: ScheduleMidnight},
		{name: "midnight jitter", now: at(0, 5), expected: ScheduleMidnight},
		{name: "midnight last minute", now: at(0, 30), expected: ScheduleMidnight},
		{name: "after midnight window", now: at(0, 31), expected: ScheduleNone},
		{name: "afternoon start", now: at(17, 0), expected: ScheduleAfternoon},
		{name: "afternoon last minute", now: at(17, 30), expected: ScheduleAfternoon},
		{name: "after afternoon window", now: at(17, 31), expected: ScheduleNone},
		{name: "before afternoon window", now: at(16, 59), expected: ScheduleNone},
		{name: "late evening", now: at(23, 58), expected: ScheduleNone},
		{name: "noon", now: at(12, 0), expected: ScheduleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WindowAt(tt.now))
		})
	}
}

func TestScheduleType_Trigger(t *testing.T) {
	assert.Equal(t, TriggerMidnight, ScheduleMidnight.Trigger())
	assert.Equal(t, TriggerAfternoon, ScheduleAfternoon.Trigger())
	assert.Equal(t, TriggerManual, ScheduleNone.Trigger())
}

func TestDateOf(t *testing.T) {
	assert.Equal(t, Date("2026-03-10"), DateOf(at(0, 5)))
	assert.Equal(t, Date("2026-03-10"), DateOf(at(23, 58)))
}

func TestDate_AddDays(t *testing.T) {
	assert.Equal(t, Date("2026-03-11"), Date("2026-03-10").AddDays(1))
	assert.Equal(t, Date("2026-03-01"), Date("2026-02-28").AddDays(1))
	assert.Equal(t, Date("2025-12-31"), Date("2026-01-01").AddDays(-1))
	assert.Equal(t, Date("garbage"), Date("garbage").AddDays(1))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, Date("2026-03-10"), d)

	_, err = ParseDate("10/03/2026")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRefreshMarker_RanOn(t *testing.T) {
	marker := RefreshMarker{ScheduleType: ScheduleMidnight, LastRunDate: "2026-03-10"}

	// A run at 00:05 and a check at 23:58 on the same calendar day
	assert.True(t, marker.RanOn(DateOf(at(23, 58))))
	assert.False(t, marker.RanOn("2026-03-11"))
	assert.False(t, RefreshMarker{}.RanOn(""))
}

func TestScheduleTypes(t *testing.T) {
	assert.Equal(t, []ScheduleType{ScheduleMidnight, ScheduleAfternoon}, ScheduleTypes())
}
