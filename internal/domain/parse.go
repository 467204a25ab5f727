package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrBadDateFormat = errors.New("expected DD.MM.YYYY")
	ErrBadNotifyTime = errors.New("invalid notify time")
)

// ParseDate parses "DD.MM.YYYY" into calendar components and validates
// them. 29.02 is accepted (observed on 1 March in non-leap years).
func ParseDate(s string) (day, month, year int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return 0, 0, 0, ErrBadDateFormat
	}
	day, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, ErrBadDateFormat
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, ErrBadDateFormat
	}
	year, err = strconv.Atoi(parts[2])
	if err != nil || len(parts[2]) != 4 {
		return 0, 0, 0, ErrBadDateFormat
	}
	if err := ValidateDate(day, month, year); err != nil {
		return 0, 0, 0, err
	}
	return day, month, year, nil
}

// FormatDate renders components back to "DD.MM.YYYY".
func FormatDate(day, month, year int) string {
	return fmt.Sprintf("%02d.%02d.%04d", day, month, year)
}

// ParseNotifyTime parses "HH:MM" into minutes since midnight.
func ParseNotifyTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: expected HH:MM", ErrBadNotifyTime)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: hour", ErrBadNotifyTime)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: minute", ErrBadNotifyTime)
	}
	return h*60 + m, nil
}

// FormatMinutes returns HH:MM for minutes since midnight.
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ParseMarkers parses the persisted CSV ("30,7,3,1,0.5,0.08,0") into a
// marker set. Tokens that are not numbers or not known markers are
// dropped silently, never an error. Duplicates collapse.
func ParseMarkers(csv string) []Marker {
	var out []Marker
	seen := make(map[Marker]struct{})
	for _, tok := range strings.Split(csv, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			continue
		}
		m := Marker(f)
		if !knownMarker(m) {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func knownMarker(m Marker) bool {
	if _, ok := subDayMinutes(m); ok {
		return true
	}
	_, ok := dayLead(m)
	return ok
}

// FormatMarkers renders a marker set back to the persisted CSV form.
func FormatMarkers(ms []Marker) string {
	toks := make([]string, 0, len(ms))
	for _, m := range ms {
		toks = append(toks, m.String())
	}
	return strings.Join(toks, ",")
}

// String is the canonical token for a marker ("30", "0.5", "0.08").
// Also used as the watermark key, so it must stay stable.
func (m Marker) String() string {
	return strconv.FormatFloat(float64(m), 'f', -1, 64)
}

// ParseSettings builds usable preferences from stored fields. A bad
// notify time falls back to the default and is reported through the
// returned error so the caller can log it; the Settings are valid
// either way.
func ParseSettings(chatID int64, notifyTime, intervalsCSV string) (Settings, error) {
	st := Settings{ChatID: chatID, NotifyMin: DefaultNotifyMin, Markers: ParseMarkers(intervalsCSV)}

	min, err := ParseNotifyTime(notifyTime)
	if err != nil {
		return st, fmt.Errorf("chat %d: %w", chatID, err)
	}
	st.NotifyMin = min
	return st, nil
}
