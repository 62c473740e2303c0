// Package schedule turns free-text opening hours into weekly timetables and
// classifies a facility as open, closing soon or closed at a given instant.
package schedule

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cibounipi/mensabot/internal/domain/entities"
)

// DayAbbrev holds the display abbreviation per weekday index
var DayAbbrev = [7]string{"LUN", "MAR", "MER", "GIO", "VEN", "SAB", "DOM"}

// Only the first three letters of a day token are significant, so "lunedì"
// and "lun" both resolve to Monday.
var dayIndex = map[string]int{
	"lun": 0, "mar": 1, "mer": 2, "gio": 3, "ven": 4, "sab": 5, "dom": 6,
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

var closedKeywords = []string{"chiuso", "closed"}

var (
	clockPattern = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)
	dashReplacer = strings.NewReplacer("â€“", "-", "–", "-", "—", "-", "−", "-", "‐", "-")
)

// Parse converts text of the form "Lun-Ven: 12:00-14:30 / 19:00-21:15",
// one day group per line, into a weekly timetable. Lines it cannot
// understand contribute nothing; a slot with an out-of-range clock value is
// dropped on its own.
func Parse(text string) entities.WeeklyTimetable {
	tt := emptyTimetable()
	if strings.TrimSpace(text) == "" {
		return tt
	}

	normalized := strings.ReplaceAll(dashReplacer.Replace(text), " - ", "-")
	for _, line := range strings.Split(normalized, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" || isClosedLine(line) {
			continue
		}

		daysPart, timesPart, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		days := parseDays(daysPart)
		if len(days) == 0 {
			continue
		}
		slots := parseSlots(timesPart)
		for _, d := range days {
			tt[d] = append(tt[d], slots...)
		}
	}

	for d := range tt {
		slices.SortStableFunc(tt[d], func(a, b entities.Interval) int {
			return int(a.Start) - int(b.Start)
		})
	}
	return tt
}

// FromSlots builds a timetable from the pre-parsed form written by the old
// migration job: weekday index → list of "HH:MM-HH:MM" strings.
func FromSlots(days map[int][]string) entities.WeeklyTimetable {
	tt := emptyTimetable()
	for d, slots := range days {
		if d < 0 || d > 6 {
			continue
		}
		tt[d] = append(tt[d], parseSlots(strings.Join(slots, "/"))...)
		slices.SortStableFunc(tt[d], func(a, b entities.Interval) int {
			return int(a.Start) - int(b.Start)
		})
	}
	return tt
}

func emptyTimetable() entities.WeeklyTimetable {
	var tt entities.WeeklyTimetable
	for d := range tt {
		tt[d] = []entities.Interval{}
	}
	return tt
}

func isClosedLine(line string) bool {
	for _, kw := range closedKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

// parseDays resolves a single day or an inclusive range that wraps forward
// through the week ("sab-lun" is Saturday, Sunday, Monday).
func parseDays(part string) []int {
	if from, to, isRange := strings.Cut(part, "-"); isRange {
		start, ok1 := lookupDay(from)
		end, ok2 := lookupDay(to)
		if !ok1 || !ok2 {
			return nil
		}
		var days []int
		for d := start; ; d = (d + 1) % 7 {
			days = append(days, d)
			if d == end {
				break
			}
		}
		return days
	}

	if d, ok := lookupDay(part); ok {
		return []int{d}
	}
	return nil
}

func lookupDay(token string) (int, bool) {
	r := []rune(strings.TrimSpace(token))
	if len(r) > 3 {
		r = r[:3]
	}
	d, ok := dayIndex[string(r)]
	return d, ok
}

func parseSlots(part string) []entities.Interval {
	var out []entities.Interval
	for _, slot := range strings.Split(part, "/") {
		clocks := clockPattern.FindAllStringSubmatch(slot, -1)
		if len(clocks) != 2 {
			continue
		}
		start, ok1 := clockValue(clocks[0])
		end, ok2 := clockValue(clocks[1])
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, entities.Interval{Start: start, End: end})
	}
	return out
}

func clockValue(match []string) (entities.TimeOfDay, bool) {
	h, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	return entities.NewTimeOfDay(h, m)
}
