package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cibounipi/mensabot/internal/domain/entities"
)

// ClosingSoonThreshold switches the open text to its closing-soon variant
const ClosingSoonThreshold = 30 * time.Minute

// State is the structural open/closed classification
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Status is a facility service's situation at a given instant
type Status struct {
	State       State
	ClosingSoon bool
	Until       entities.TimeOfDay
	NextOpen    *entities.TimeOfDay
	Text        string
}

// Labels naming a masculine service ("il grab & go", "il bar") take the
// masculine adjective; the canteen itself ("la mensa") is feminine.
var masculineLabel = regexp.MustCompile(`(?i)\b(grab|bar|take away|punto ristoro|caffetteria)\b`)

type wording struct{ open, closed string }

func wordingFor(label string) wording {
	if masculineLabel.MatchString(label) {
		return wording{open: "APERTO", closed: "CHIUSO"}
	}
	return wording{open: "APERTA", closed: "CHIUSA"}
}

// StatusAt classifies the timetable at now. Only today's intervals are
// considered: a closed facility is annotated with a later opening on the
// same day, never with one on a following day.
func StatusAt(tt entities.WeeklyTimetable, label string, now time.Time) Status {
	words := wordingFor(label)
	clock := entities.TimeOfDayOf(now)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var next *entities.TimeOfDay
	for _, iv := range tt[entities.WeekdayIndex(now)] {
		if iv.Contains(clock) {
			st := Status{State: StateOpen, Until: iv.End}
			closesAt := midnight.Add(time.Duration(iv.End) * time.Minute)
			if closesAt.Sub(now) < ClosingSoonThreshold {
				st.ClosingSoon = true
				st.Text = fmt.Sprintf("%s: IN CHIUSURA alle %s", label, iv.End)
			} else {
				st.Text = fmt.Sprintf("%s: %s fino alle %s", label, words.open, iv.End)
			}
			return st
		}
		if clock < iv.Start && (next == nil || iv.Start < *next) {
			start := iv.Start
			next = &start
		}
	}

	st := Status{State: StateClosed, NextOpen: next}
	if next != nil {
		st.Text = fmt.Sprintf("%s: %s, apre alle %s", label, words.closed, *next)
	} else {
		st.Text = fmt.Sprintf("%s: %s", label, words.closed)
	}
	return st
}

// WeekTable renders the timetable as seven aligned rows; additional
// intervals of the same day go on continuation rows under a blank label.
func WeekTable(tt entities.WeeklyTimetable) string {
	const labelWidth = 5
	blank := strings.Repeat(" ", labelWidth)

	var b strings.Builder
	for d, intervals := range tt {
		if d > 0 {
			b.WriteString("\n")
		}
		label := fmt.Sprintf("%-*s", labelWidth, DayAbbrev[d])
		if len(intervals) == 0 {
			b.WriteString(label + "CHIUSO")
			continue
		}
		for i, iv := range intervals {
			if i > 0 {
				b.WriteString("\n" + blank)
			} else {
				b.WriteString(label)
			}
			b.WriteString(iv.String())
		}
	}
	return b.String()
}

// DaySummary lists the intervals of t's weekday, or the closed word when
// there are none.
func DaySummary(tt entities.WeeklyTimetable, label string, t time.Time) string {
	intervals := tt[entities.WeekdayIndex(t)]
	if len(intervals) == 0 {
		return fmt.Sprintf("%s: %s", label, wordingFor(label).closed)
	}
	parts := make([]string, len(intervals))
	for i, iv := range intervals {
		parts[i] = iv.String()
	}
	return fmt.Sprintf("%s: %s", label, strings.Join(parts, " / "))
}
