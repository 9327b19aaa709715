package workout

import (
	"cmp"
	"slices"
	"time"
)

// DateLayout is the civil date format stored in records.
const DateLayout = "2006-01-02"

var weekdays = [...]string{
	"domingo",
	"segunda-feira",
	"terça-feira",
	"quarta-feira",
	"quinta-feira",
	"sexta-feira",
	"sábado",
}

var weekdaysShort = [...]string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}

// ParseDate parses a civil date. The result is midnight UTC so the weekday
// does not depend on the local time zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// WeekdayLabel returns the full pt-BR weekday name of date, e.g. "quarta-feira".
func WeekdayLabel(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return weekdays[t.Weekday()], nil
}

// ShortWeekday returns the abbreviated pt-BR weekday name of date,
// or "" when date does not parse.
func ShortWeekday(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return weekdaysShort[t.Weekday()]
}

// FormatDate renders a stored date as dd/MM/yyyy. Unparseable input is
// returned unchanged.
func FormatDate(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}

// Today returns now as a civil date in now's location.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// SortByDateDesc orders records newest date first; records on the same date
// keep the latest save first.
func SortByDateDesc(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
}
