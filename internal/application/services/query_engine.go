package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/navigation"
	"github.com/cibounipi/mensabot/internal/store"
)

// Facility filters understood by the menu queries. Any other value is a
// facility id.
const (
	FilterNone = ""
	FilterAll  = navigation.FacilityAll
)

// Menu messages
const (
	msgNoMenuForDate = "Nessun menù disponibile per questa data."
	msgNoMenuForMeal = "Nessun menù disponibile per %s."
	msgNoDishHere    = "Nessun piatto disponibile in questa mensa per %s."
)

// QueryEngine answers every read query against the snapshot in effect. All
// methods are pure functions of the snapshot, their arguments and now: the
// same inputs always render the same bytes.
type QueryEngine struct {
	holder  *store.Holder
	cutover time.Time
}

// NewQueryEngine creates a query engine. cutover is the calendar date from
// which scholarship holders pay the zero-income band's prices.
func NewQueryEngine(holder *store.Holder, cutover time.Time) *QueryEngine {
	return &QueryEngine{holder: holder, cutover: cutover}
}

// Snapshot returns the data set queries are currently answered from
func (e *QueryEngine) Snapshot() *store.Snapshot {
	return e.holder.Load()
}

// Today returns the local calendar date of now
func (e *QueryEngine) Today(now time.Time) time.Time {
	return civilDay(now.In(e.Snapshot().Location))
}

// ParseDate reads an ISO date in the snapshot's location, falling back to
// the calendar date of now.
func (e *QueryEngine) ParseDate(value string, now time.Time) time.Time {
	loc := e.Snapshot().Location
	if t, err := time.ParseInLocation(entities.DateLayout, strings.TrimSpace(value), loc); err == nil {
		return t
	}
	return civilDay(now.In(loc))
}

// ParseMeal falls back to lunch for anything unrecognized
func ParseMeal(value string) entities.Meal {
	if m, ok := entities.ParseMeal(value); ok {
		return m
	}
	return entities.MealLunch
}

// RenderMenu renders the menu for date and meal. filter is FilterNone,
// FilterAll or a facility id.
func (e *QueryEngine) RenderMenu(date time.Time, meal entities.Meal, filter string) string {
	return renderMenu(e.Snapshot(), date, meal, filter)
}

// MenuView is the menu body with its day navigation, meal toggle and
// opening-hours actions.
func (e *QueryEngine) MenuView(date time.Time, meal entities.Meal, filter string, now time.Time) entities.RenderPayload {
	snap := e.Snapshot()
	today := civilDay(now.In(snap.Location))
	date = civilDay(date.In(snap.Location))
	key := date.Format(entities.DateLayout)

	scheduleTarget := filter
	if scheduleTarget == FilterNone {
		scheduleTarget = FilterAll
	}

	nav := func(d time.Time) string {
		return navigation.MustEncode(navigation.ActionNav, d.Format(entities.DateLayout), string(meal), filter)
	}
	return entities.RenderPayload{
		Body: renderMenu(snap, date, meal, filter),
		Actions: [][]entities.Action{
			{
				{Label: "◀", Token: nav(date.AddDate(0, 0, -1))},
				{Label: "○", Token: nav(today)},
				{Label: "▶", Token: nav(date.AddDate(0, 0, 1))},
			},
			{
				{Label: strings.ToUpper(string(meal.Other())), Token: navigation.MustEncode(navigation.ActionToggle, key, string(meal), filter)},
			},
			{
				{Label: "ORARI", Token: navigation.MustEncode(navigation.ActionSchedule, key, string(meal), scheduleTarget)},
			},
		},
	}
}

func menuHeader(date time.Time) string {
	return "꧁   " + shortDate(date) + "   ꧂\n\n"
}

func renderMenu(snap *store.Snapshot, date time.Time, meal entities.Meal, filter string) string {
	header := menuHeader(date)

	day, ok := snap.Menus.Day(date)
	if !ok {
		return header + msgNoMenuForDate
	}
	menu, ok := day.Meal(meal)
	if !ok {
		return header + fmt.Sprintf(msgNoMenuForMeal, meal.Article())
	}

	var active []string
	if filter == FilterAll {
		active = activeFacilities(menu)
	}

	var b strings.Builder
	b.WriteString(header)
	rendered := 0
	for _, course := range menu.Courses {
		var lines []string
		for _, dish := range course.Dishes {
			if filter != FilterNone && filter != FilterAll && !dish.ServedAt(filter) {
				continue
			}
			lines = append(lines, dishLine(snap, dish, active))
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString("*" + courseTitle(course.Name) + "*\n")
		for _, l := range lines {
			b.WriteString(l + "\n")
		}
		b.WriteString("\n")
		rendered++
	}

	if rendered == 0 {
		if filter == FilterNone || filter == FilterAll {
			return header + fmt.Sprintf(msgNoMenuForMeal, meal.Article())
		}
		return header + fmt.Sprintf(msgNoDishHere, meal.Article())
	}
	return b.String()
}

func courseTitle(name string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), " PIATTI", "")
}

// dishLine renders "- Name (solo a: A, B) [↗](link)". The annotation is
// added only when more than one facility serves the meal and the dish is
// missing from at least one of them.
func dishLine(snap *store.Snapshot, dish entities.Dish, active []string) string {
	line := "- " + capitalizeFirst(dish.Name)
	if len(active) > 1 && !dish.Legacy() && isStrictSubset(dish.AvailableAt, active) {
		line += " (solo a: " + strings.Join(facilityShortNames(snap, dish.AvailableAt), ", ") + ")"
	}
	if dish.Link != "" {
		line += " [↗](" + dish.Link + ")"
	}
	return line
}

// activeFacilities is the union of the facilities serving any dish of the meal
func activeFacilities(menu entities.MealMenu) []string {
	var active []string
	for _, course := range menu.Courses {
		for _, dish := range course.Dishes {
			for _, id := range dish.AvailableAt {
				if !slices.Contains(active, id) {
					active = append(active, id)
				}
			}
		}
	}
	return active
}

func isStrictSubset(subset, set []string) bool {
	if len(subset) >= len(set) {
		return false
	}
	for _, id := range subset {
		if !slices.Contains(set, id) {
			return false
		}
	}
	return true
}

// facilityShortNames maps ids to short names in facility document order;
// references to unknown facilities follow, as written.
func facilityShortNames(snap *store.Snapshot, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, f := range snap.Facilities.All() {
		if slices.Contains(ids, f.ID) {
			names = append(names, f.ShortName)
		}
	}
	for _, id := range ids {
		if _, ok := snap.Facilities.Get(id); !ok {
			names = append(names, id)
		}
	}
	return names
}
