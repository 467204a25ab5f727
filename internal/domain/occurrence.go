package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrBadDate marks a stored date that cannot describe a real calendar
// day. Callers skip the record and keep going.
var ErrBadDate = errors.New("bad birthday date")

// ValidateDate checks that (day, month, year) names a real calendar
// day in that year. Rejects 31.04, month 13, or 29.02 in a non-leap
// birth year; 29.02.2000 is fine.
func ValidateDate(day, month, year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", ErrBadDate, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrBadDate, month)
	}
	// time.Date normalizes overflow, so a round-trip mismatch means
	// the day does not exist in that month and year.
	probe := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if probe.Day() != day || int(probe.Month()) != month {
		return fmt.Errorf("%w: %02d.%02d.%04d", ErrBadDate, day, month, year)
	}
	return nil
}

// Resolve projects a birthday onto its next occurrence relative to now.
//
// The candidate is (day, month) in the current year; if that midnight is
// already behind today's midnight, it moves to next year. A 29.02 date
// normalizes to 1 March in non-leap years (time.Date overflow), which is
// the documented policy for this repo.
//
// Resolve is pure: same inputs, same output, no clock access.
func Resolve(b Birthday, now time.Time) (Occurrence, error) {
	if err := ValidateDate(b.Day, b.Month, b.Year); err != nil {
		return Occurrence{}, err
	}

	// Zero seconds so MinutesUntil is stable for the whole minute.
	nowMin := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	occ := time.Date(now.Year(), time.Month(b.Month), b.Day, 0, 0, 0, 0, now.Location())
	if occ.Before(today) {
		occ = time.Date(now.Year()+1, time.Month(b.Month), b.Day, 0, 0, 0, 0, now.Location())
	}

	return Occurrence{
		Name:         b.Name,
		Tag:          b.Tag,
		Day:          b.Day,
		Month:        b.Month,
		Year:         b.Year,
		Date:         occ,
		Age:          occ.Year() - b.Year,
		MinutesUntil: int(occ.Sub(nowMin) / time.Minute),
		// Rounding absorbs DST days that are not exactly 24h long.
		DaysUntil: int(math.Round(occ.Sub(today).Hours() / 24)),
	}, nil
}
