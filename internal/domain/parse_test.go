package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseDate(t *testing.T) {
	day, month, year, err := ParseDate("25.05.1990")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if day != 25 || month != 5 || year != 1990 {
		t.Fatalf("got %d.%d.%d", day, month, year)
	}

	// Leap day with a leap birth year is a real date.
	if _, _, _, err := ParseDate("29.02.2000"); err != nil {
		t.Fatalf("29.02.2000 should parse: %v", err)
	}

	bad := []string{"", "25.05", "25/05/1990", "31.04.2000", "29.02.2001", "25.05.90", "xx.05.1990"}
	for _, s := range bad {
		if _, _, _, err := ParseDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestParseNotifyTime(t *testing.T) {
	min, err := ParseNotifyTime("09:30")
	if err != nil || min != 9*60+30 {
		t.Fatalf("got %d, %v", min, err)
	}
	for _, s := range []string{"", "9", "25:00", "09:60", "morning"} {
		if _, err := ParseNotifyTime(s); !errors.Is(err, ErrBadNotifyTime) {
			t.Fatalf("expected ErrBadNotifyTime for %q, got %v", s, err)
		}
	}
}

func TestParseMarkers_IgnoresUnknownAndDuplicates(t *testing.T) {
	got := ParseMarkers("30,12,abc,0.5,0.5, 7 ,")
	want := []Marker{MarkerMonth, Marker30Min, MarkerWeek}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestMarkersRoundTrip(t *testing.T) {
	csv := FormatMarkers(DefaultMarkers())
	if csv != "30,7,3,1,0.5,0.08,0" {
		t.Fatalf("unexpected canonical CSV: %q", csv)
	}
	if got := ParseMarkers(csv); !reflect.DeepEqual(got, DefaultMarkers()) {
		t.Fatalf("round trip lost markers: %v", got)
	}
}

func TestParseSettings_FallsBackOnBadNotifyTime(t *testing.T) {
	st, err := ParseSettings(42, "9 o'clock", "30,7")
	if !errors.Is(err, ErrBadNotifyTime) {
		t.Fatalf("expected ErrBadNotifyTime, got %v", err)
	}
	if st.NotifyMin != DefaultNotifyMin {
		t.Fatalf("expected default notify time, got %d", st.NotifyMin)
	}
	if !st.Has(MarkerMonth) || !st.Has(MarkerWeek) || st.Has(MarkerDayOf) {
		t.Fatalf("markers not parsed alongside the fallback: %v", st.Markers)
	}
}
