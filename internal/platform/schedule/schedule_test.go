package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		times   DigestTimes
		wantErr bool
	}{
		{name: "valid_utc", times: DigestTimes{Morning: "09:00", Evening: "19:00"}},
		{name: "valid_tz", times: DigestTimes{Timezone: "Europe/Moscow", Morning: "09:00", Evening: "19:00"}},
		{name: "bad_format", times: DigestTimes{Morning: "9am", Evening: "19:00"}, wantErr: true},
		{name: "bad_hour", times: DigestTimes{Morning: "25:00", Evening: "19:00"}, wantErr: true},
		{name: "bad_minute", times: DigestTimes{Morning: "09:61", Evening: "19:00"}, wantErr: true},
		{name: "bad_timezone", times: DigestTimes{Timezone: "Mars/Olympus", Morning: "09:00", Evening: "19:00"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.times.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDueBetween(t *testing.T) {
	d := DigestTimes{Morning: "09:00", Evening: "19:00"}

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("morning_fires_once", func(t *testing.T) {
		due, err := d.DueBetween(day.Add(8*time.Hour+59*time.Minute), day.Add(9*time.Hour+1*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, []string{domain.PeriodMorning}, due)
	})

	t.Run("nothing_due_between_slots", func(t *testing.T) {
		due, err := d.DueBetween(day.Add(10*time.Hour), day.Add(11*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("both_due_after_long_gap", func(t *testing.T) {
		due, err := d.DueBetween(day.Add(8*time.Hour), day.Add(20*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{domain.PeriodMorning, domain.PeriodEvening}, due)
	})

	t.Run("exact_boundary_is_inclusive_at_now", func(t *testing.T) {
		due, err := d.DueBetween(day.Add(18*time.Hour), day.Add(19*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{domain.PeriodEvening}, due)
	})

	t.Run("prev_boundary_is_exclusive", func(t *testing.T) {
		due, err := d.DueBetween(day.Add(9*time.Hour), day.Add(10*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("crosses_midnight", func(t *testing.T) {
		due, err := d.DueBetween(day.Add(18*time.Hour), day.Add(34*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{domain.PeriodEvening, domain.PeriodMorning}, due)
	})
}

func TestDueBetweenTimezone(t *testing.T) {
	d := DigestTimes{Timezone: "Europe/Moscow", Morning: "09:00", Evening: "19:00"}

	// 06:00 UTC == 09:00 MSK.
	prev := time.Date(2025, 3, 10, 5, 30, 0, 0, time.UTC)
	now := time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC)

	due, err := d.DueBetween(prev, now)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.PeriodMorning}, due)
}
