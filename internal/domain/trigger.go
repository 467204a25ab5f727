package domain

import (
	"fmt"
	"time"
)

// subDayMinutes maps a sub-day marker to its minutes-before threshold.
func subDayMinutes(m Marker) (int, bool) {
	switch m {
	case Marker30Min:
		return 30, true
	case Marker5Min:
		return 5, true
	}
	return 0, false
}

// dayLead maps a day-granularity marker to its days-before value. The
// day-of marker belongs to this class: it fires at the chat's notify
// time on the occurrence day, not at midnight.
func dayLead(m Marker) (int, bool) {
	switch m {
	case MarkerMonth:
		return 30, true
	case MarkerWeek:
		return 7, true
	case Marker3Days:
		return 3, true
	case MarkerTomorrow:
		return 1, true
	case MarkerDayOf:
		return 0, true
	}
	return 0, false
}

// Evaluate returns the reminders whose window is open on this tick,
// most imminent first: sub-day markers before day-granularity ones,
// smaller leads before larger. Markers not in the settings never fire;
// unknown markers are ignored.
//
// A sub-day marker is due while 0 < MinutesUntil <= threshold; a
// day-granularity marker is due while DaysUntil equals its lead and the
// wall clock is at or past the notify time. Windows stay open past the
// nominal minute so a delayed tick can still catch them — firing each
// at most once is the scheduler's job (it keeps a persisted sent-marker
// watermark). Evaluate itself is pure and idempotent.
func Evaluate(occ Occurrence, st Settings, now time.Time) []Fire {
	nowM := now.Hour()*60 + now.Minute()

	var due []Fire
	for _, m := range []Marker{Marker5Min, Marker30Min} {
		thr, _ := subDayMinutes(m)
		if st.Has(m) && occ.MinutesUntil > 0 && occ.MinutesUntil <= thr {
			due = append(due, Fire{ChatID: st.ChatID, Marker: m, Text: Render(occ, m)})
		}
	}
	for _, m := range []Marker{MarkerDayOf, MarkerTomorrow, Marker3Days, MarkerWeek, MarkerMonth} {
		lead, _ := dayLead(m)
		if st.Has(m) && occ.DaysUntil == lead && nowM >= st.NotifyMin {
			due = append(due, Fire{ChatID: st.ChatID, Marker: m, Text: Render(occ, m)})
		}
	}
	return due
}

// Render builds the message text for one reminder. Pure function of the
// resolved fields; no I/O.
func Render(occ Occurrence, m Marker) string {
	who := occ.Name
	if occ.Tag != "" {
		who += " (" + occ.Tag + ")"
	}
	date := fmt.Sprintf("%02d.%02d", occ.Date.Day(), int(occ.Date.Month()))

	switch m {
	case MarkerMonth:
		return fmt.Sprintf("🔔 Reminder: %s has a birthday in a month (%s) — turning %d!", who, date, occ.Age)
	case MarkerWeek:
		return fmt.Sprintf("🔔 Reminder: %s has a birthday in a week (%s)!", who, date)
	case Marker3Days:
		return fmt.Sprintf("🔔 Reminder: %s has a birthday in 3 days!", who)
	case MarkerTomorrow:
		return fmt.Sprintf("🔔 Reminder: %s has a birthday tomorrow!", who)
	case Marker30Min:
		return fmt.Sprintf("🔔 %s's birthday starts in 30 minutes! Get your congratulations ready!", who)
	case Marker5Min:
		return fmt.Sprintf("🔥 Almost time! %s's birthday starts in 5 minutes!", who)
	case MarkerDayOf:
		return fmt.Sprintf("🎉 Today %s turns %d! 🎂", who, occ.Age)
	}
	return fmt.Sprintf("🔔 Reminder: %s has a birthday on %s!", who, date)
}
