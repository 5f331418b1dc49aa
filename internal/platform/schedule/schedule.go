// Package schedule decides when the morning and evening digests fire.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	// Embed tzdata for environments without zoneinfo.
	_ "time/tzdata"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

const (
	minutesPerHour = 60
	maxHour        = 23
)

// Static errors for schedule validation.
var (
	ErrTimeFormat     = errors.New("time must be HH:MM")
	ErrInvalidHour    = errors.New("invalid hour")
	ErrInvalidMinute  = errors.New("invalid minute")
	ErrHourOutOfRange = errors.New("hour out of range")
)

// DigestTimes holds the two daily digest send times in a timezone.
type DigestTimes struct {
	Timezone string
	Morning  string
	Evening  string
}

// Validate checks both times and the timezone for correctness.
func (d DigestTimes) Validate() error {
	if _, err := d.Location(); err != nil {
		return err
	}

	for _, v := range []string{d.Morning, d.Evening} {
		if _, err := parseTimeHM(v); err != nil {
			return fmt.Errorf("invalid digest time %q: %w", v, err)
		}
	}

	return nil
}

// Location resolves the timezone or defaults to UTC.
func (d DigestTimes) Location() (*time.Location, error) {
	if strings.TrimSpace(d.Timezone) == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(strings.TrimSpace(d.Timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return loc, nil
}

// DueBetween returns digest periods whose scheduled time falls in
// (prev, now]. A tick interval shorter than a day means at most one
// occurrence per period is relevant, so only the current day is examined
// for each day boundary crossed.
func (d DigestTimes) DueBetween(prev, now time.Time) ([]string, error) {
	if !now.After(prev) {
		return nil, nil
	}

	loc, err := d.Location()
	if err != nil {
		return nil, err
	}

	morning, err := parseTimeHM(d.Morning)
	if err != nil {
		return nil, err
	}

	evening, err := parseTimeHM(d.Evening)
	if err != nil {
		return nil, err
	}

	prevLocal := prev.In(loc)
	nowLocal := now.In(loc)

	var due []string

	for day := dateOnly(prevLocal); !day.After(dateOnly(nowLocal)); day = day.AddDate(0, 0, 1) {
		for _, cand := range []struct {
			period  string
			minutes int
		}{
			{domain.PeriodMorning, morning},
			{domain.PeriodEvening, evening},
		} {
			t := time.Date(day.Year(), day.Month(), day.Day(), cand.minutes/minutesPerHour, cand.minutes%minutesPerHour, 0, 0, loc)
			if t.After(prevLocal) && !t.After(nowLocal) {
				due = append(due, cand.period)
			}
		}
	}

	return due, nil
}

func parseTimeHM(value string) (int, error) {
	value = strings.TrimSpace(value)

	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, ErrTimeFormat
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, ErrInvalidHour
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, ErrInvalidMinute
	}

	if hour < 0 || hour > maxHour {
		return 0, ErrHourOutOfRange
	}

	if minute < 0 || minute >= minutesPerHour {
		return 0, ErrInvalidMinute
	}

	return hour*minutesPerHour + minute, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
