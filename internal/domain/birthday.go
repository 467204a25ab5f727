package domain

import "time"

// Birthday is one stored anniversary record. Records are unique per
// (ChatID, Name); no surrogate id is exposed outside the store.
type Birthday struct {
	ChatID    int64
	Name      string
	Day       int
	Month     int
	Year      int // year of birth
	Tag       string // optional telegram mention, e.g. "@dasha"
	CreatedAt time.Time
}

// Marker is a lead-time value in days. Fractional values denote the
// sub-day reminders (0.5 → 30 minutes before, 0.08 → 5 minutes before).
// The raw float form matches the persisted CSV ("30,7,3,1,0.5,0.08,0").
type Marker float64

const (
	MarkerMonth    Marker = 30
	MarkerWeek     Marker = 7
	Marker3Days    Marker = 3
	MarkerTomorrow Marker = 1
	Marker30Min    Marker = 0.5
	Marker5Min     Marker = 0.08
	MarkerDayOf    Marker = 0
)

// DefaultMarkers returns the full reminder set applied when a chat has
// no saved preferences.
func DefaultMarkers() []Marker {
	return []Marker{MarkerMonth, MarkerWeek, Marker3Days, MarkerTomorrow, Marker30Min, Marker5Min, MarkerDayOf}
}

// DefaultNotifyMin is 09:00 as minutes since midnight.
const DefaultNotifyMin = 9 * 60

// Settings holds a chat's notification preferences.
type Settings struct {
	ChatID    int64
	NotifyMin int // minutes since midnight for day-granularity reminders
	Markers   []Marker
}

// Has reports whether the marker is selected.
func (s Settings) Has(m Marker) bool {
	for _, x := range s.Markers {
		if x == m {
			return true
		}
	}
	return false
}

// DefaultSettings returns the preferences used when nothing is stored.
func DefaultSettings(chatID int64) Settings {
	return Settings{ChatID: chatID, NotifyMin: DefaultNotifyMin, Markers: DefaultMarkers()}
}

// Occurrence is a Birthday projected onto its next calendar occurrence.
// Derived every tick, never persisted.
type Occurrence struct {
	Name string
	Tag  string

	// Original date as stored.
	Day, Month, Year int

	// Date is the occurrence midnight, this year or next.
	Date time.Time
	// Age is the age reached on Date.
	Age int
	// MinutesUntil is the whole minutes from "now" (seconds zeroed) to
	// the occurrence midnight. Negative once the day has started.
	MinutesUntil int
	// DaysUntil is the whole calendar days from today to the occurrence.
	DaysUntil int
}

// Fire is one notification ready for dispatch. Ephemeral.
type Fire struct {
	ChatID int64
	Marker Marker
	Text   string
}
