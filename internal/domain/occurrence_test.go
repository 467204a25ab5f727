package domain

import (
	"testing"
	"time"
)

// helper: build an instant in UTC
func at(t *testing.T, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func mustResolve(t *testing.T, b Birthday, now time.Time) Occurrence {
	t.Helper()
	occ, err := Resolve(b, now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return occ
}

func TestResolve_UpcomingThisYear(t *testing.T) {
	b := Birthday{Name: "Dasha", Day: 15, Month: 3, Year: 1990}
	now := at(t, 2024, time.March, 8, 9, 0)

	occ := mustResolve(t, b, now)
	if want := at(t, 2024, time.March, 15, 0, 0); !occ.Date.Equal(want) {
		t.Fatalf("want occurrence %v, got %v", want, occ.Date)
	}
	if occ.DaysUntil != 7 {
		t.Fatalf("want 7 days until, got %d", occ.DaysUntil)
	}
	if occ.Age != 34 {
		t.Fatalf("want age 34, got %d", occ.Age)
	}
}

func TestResolve_RollsToNextYear(t *testing.T) {
	b := Birthday{Name: "Dasha", Day: 15, Month: 3, Year: 1990}
	now := at(t, 2024, time.March, 16, 0, 0)

	occ := mustResolve(t, b, now)
	if want := at(t, 2025, time.March, 15, 0, 0); !occ.Date.Equal(want) {
		t.Fatalf("want occurrence %v, got %v", want, occ.Date)
	}
	if occ.Age != 35 {
		t.Fatalf("want age 35, got %d", occ.Age)
	}
}

func TestResolve_SameDayStaysThisYear(t *testing.T) {
	// 15.03.1990 at 15.03.2024 00:00: age 34, day-of, not next year.
	b := Birthday{Name: "Dasha", Day: 15, Month: 3, Year: 1990}
	now := at(t, 2024, time.March, 15, 0, 0)

	occ := mustResolve(t, b, now)
	if occ.DaysUntil != 0 {
		t.Fatalf("want 0 days until, got %d", occ.DaysUntil)
	}
	if occ.MinutesUntil != 0 {
		t.Fatalf("want 0 minutes until, got %d", occ.MinutesUntil)
	}
	if occ.Age != 34 {
		t.Fatalf("want age 34, got %d", occ.Age)
	}

	// Later the same day the occurrence still holds; minutes go negative.
	occ = mustResolve(t, b, at(t, 2024, time.March, 15, 10, 0))
	if occ.DaysUntil != 0 {
		t.Fatalf("want 0 days until at 10:00, got %d", occ.DaysUntil)
	}
	if occ.MinutesUntil != -600 {
		t.Fatalf("want -600 minutes until at 10:00, got %d", occ.MinutesUntil)
	}
}

func TestResolve_NeverPast(t *testing.T) {
	dates := []Birthday{
		{Name: "a", Day: 1, Month: 1, Year: 1970},
		{Name: "b", Day: 31, Month: 12, Year: 1999},
		{Name: "c", Day: 29, Month: 2, Year: 2000},
		{Name: "d", Day: 15, Month: 6, Year: 1985},
	}
	instants := []time.Time{
		at(t, 2024, time.January, 1, 0, 0),
		at(t, 2024, time.June, 15, 23, 59),
		at(t, 2025, time.December, 31, 12, 30),
	}
	for _, b := range dates {
		for _, now := range instants {
			occ := mustResolve(t, b, now)
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			if occ.Date.Before(today) {
				t.Fatalf("%s at %v resolved to past occurrence %v", b.Name, now, occ.Date)
			}
		}
	}
}

func TestResolve_Pure(t *testing.T) {
	b := Birthday{Name: "Dasha", Day: 15, Month: 3, Year: 1990}
	now := at(t, 2024, time.March, 8, 9, 17)

	first := mustResolve(t, b, now)
	second := mustResolve(t, b, now)
	if first != second {
		t.Fatalf("resolve is not pure: %+v vs %+v", first, second)
	}
}

func TestResolve_MinuteStableAcrossSeconds(t *testing.T) {
	b := Birthday{Name: "Dasha", Day: 15, Month: 3, Year: 1990}
	base := at(t, 2024, time.March, 14, 23, 30)
	withSeconds := base.Add(42*time.Second + 777*time.Millisecond)

	if a, b2 := mustResolve(t, b, base).MinutesUntil, mustResolve(t, b, withSeconds).MinutesUntil; a != b2 {
		t.Fatalf("minutes until changed within the minute: %d vs %d", a, b2)
	}
}

func TestResolve_LeapDayInNonLeapYear(t *testing.T) {
	// Policy: 29.02 is observed on 1 March in non-leap years.
	b := Birthday{Name: "Leap", Day: 29, Month: 2, Year: 2000}

	occ := mustResolve(t, b, at(t, 2025, time.March, 1, 0, 0))
	if want := at(t, 2025, time.March, 1, 0, 0); !occ.Date.Equal(want) {
		t.Fatalf("want occurrence %v, got %v", want, occ.Date)
	}
	if occ.Age != 25 {
		t.Fatalf("want age 25, got %d", occ.Age)
	}

	occ = mustResolve(t, b, at(t, 2025, time.January, 15, 12, 0))
	if want := at(t, 2025, time.March, 1, 0, 0); !occ.Date.Equal(want) {
		t.Fatalf("want occurrence %v, got %v", want, occ.Date)
	}
}

func TestResolve_LeapDayInLeapYear(t *testing.T) {
	b := Birthday{Name: "Leap", Day: 29, Month: 2, Year: 2000}
	occ := mustResolve(t, b, at(t, 2024, time.February, 1, 0, 0))
	if want := at(t, 2024, time.February, 29, 0, 0); !occ.Date.Equal(want) {
		t.Fatalf("want occurrence %v, got %v", want, occ.Date)
	}
}

func TestResolve_BadDate(t *testing.T) {
	bad := []Birthday{
		{Name: "x", Day: 31, Month: 4, Year: 1990},
		{Name: "x", Day: 0, Month: 1, Year: 1990},
		{Name: "x", Day: 1, Month: 13, Year: 1990},
		{Name: "x", Day: 29, Month: 2, Year: 2001},
		{Name: "x", Day: 1, Month: 1, Year: 0},
	}
	now := at(t, 2024, time.March, 8, 9, 0)
	for _, b := range bad {
		if _, err := Resolve(b, now); err == nil {
			t.Fatalf("expected error for %02d.%02d.%04d", b.Day, b.Month, b.Year)
		}
	}
}
