package services

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cibounipi/mensabot/internal/schedule"
)

var monthAbbrev = [...]string{"", "GEN", "FEB", "MAR", "APR", "MAG", "GIU", "LUG", "AGO", "SET", "OTT", "NOV", "DIC"}

var monthName = [...]string{"", "GENNAIO", "FEBBRAIO", "MARZO", "APRILE", "MAGGIO", "GIUGNO",
	"LUGLIO", "AGOSTO", "SETTEMBRE", "OTTOBRE", "NOVEMBRE", "DICEMBRE"}

// weekdayAbbrev returns "LUN".."DOM"
func weekdayAbbrev(t time.Time) string {
	return schedule.DayAbbrev[(int(t.Weekday())+6)%7]
}

// shortDate formats "LUN 10 MAR"
func shortDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s", weekdayAbbrev(t), t.Day(), monthAbbrev[t.Month()])
}

// dayMonth formats "10 MARZO"
func dayMonth(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), monthName[t.Month()])
}

// longDate formats "1 SETTEMBRE 2026"
func longDate(t time.Time) string {
	return fmt.Sprintf("%s %d", dayMonth(t), t.Year())
}

// civilDay truncates t to midnight of its calendar date in its own location
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from one date to another, ignoring DST
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// capitalizeFirst upper-cases the first letter and leaves the rest as written
func capitalizeFirst(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
