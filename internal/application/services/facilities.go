package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/navigation"
	"github.com/cibounipi/mensabot/internal/schedule"
)

const (
	msgPickFacility     = "*SCEGLI LA MENSA*"
	msgFacilityNotFound = "Mensa non trovata."
	msgNoFacilities     = "Nessuna mensa disponibile."
)

// Facilities returns the facilities in document order
func (e *QueryEngine) Facilities() []*entities.Facility {
	return e.Snapshot().Facilities.All()
}

// Facility returns a facility by id
func (e *QueryEngine) Facility(id string) (*entities.Facility, bool) {
	return e.Snapshot().Facilities.Get(id)
}

// FacilityPicker offers one action per facility plus "all facilities"
func (e *QueryEngine) FacilityPicker() entities.RenderPayload {
	facilities := e.Snapshot().Facilities.All()
	if len(facilities) == 0 {
		return entities.RenderPayload{Body: msgNoFacilities}
	}

	rows := make([][]entities.Action, 0, len(facilities)+1)
	for _, f := range facilities {
		rows = append(rows, []entities.Action{
			{Label: f.Name, Token: navigation.MustEncode(navigation.ActionSelectFacility, f.ID)},
		})
	}
	rows = append(rows, []entities.Action{
		{Label: "TUTTE LE MENSE", Token: navigation.MustEncode(navigation.ActionSelectFacility, navigation.FacilityAll)},
	})
	return entities.RenderPayload{Body: msgPickFacility, Actions: rows}
}

// FacilityInfo renders a facility's card with the current status of each
// of its services.
func (e *QueryEngine) FacilityInfo(id string, now time.Time) entities.RenderPayload {
	snap := e.Snapshot()
	f, ok := snap.Facilities.Get(id)
	if !ok {
		return entities.RenderPayload{
			Body:    msgFacilityNotFound,
			Actions: [][]entities.Action{{pickerAction()}},
		}
	}
	local := now.In(snap.Location)

	var b strings.Builder
	b.WriteString("*" + f.Name + "*\n")
	if f.Seats > 0 {
		b.WriteString("Posti: " + strconv.Itoa(f.Seats) + "\n")
	}
	if len(f.Services) > 0 {
		b.WriteString("Servizi: " + strings.Join(f.Services, ", ") + "\n")
	}
	if f.Website != "" {
		b.WriteString("[Sito web](" + f.Website + ")\n")
	}
	if f.Coordinates != nil {
		b.WriteString(fmt.Sprintf("[Mappa](https://www.google.com/maps?q=%.6f,%.6f)\n", f.Coordinates.Latitude, f.Coordinates.Longitude))
	}
	if len(f.OpeningHours) > 0 {
		b.WriteString("\n")
		for _, h := range f.OpeningHours {
			b.WriteString(schedule.StatusAt(h.Timetable, h.Label, local).Text + "\n")
		}
	}

	today := civilDay(local).Format(entities.DateLayout)
	return entities.RenderPayload{
		Body: strings.TrimRight(b.String(), "\n"),
		Actions: [][]entities.Action{
			{{Label: "AGGIORNA", Token: navigation.MustEncode(navigation.ActionFacilityInfo, f.ID)}},
			{
				{Label: "MENU", Token: navigation.MustEncode(navigation.ActionNav, today, string(entities.MealLunch), f.ID)},
				{Label: "ORARI", Token: navigation.MustEncode(navigation.ActionSchedule, today, string(entities.MealLunch), f.ID)},
			},
			{pickerAction()},
		},
	}
}

func pickerAction() entities.Action {
	return entities.Action{Label: "MENSE", Token: navigation.MustEncode(navigation.ActionSelectFacility, navigation.FacilityReset)}
}

// ScheduleView renders opening hours for date, for one facility or for all
// of them. On the current date each service shows its live status; on
// other dates the day's intervals. A single facility also gets its full
// weekly table. The back action returns to the menu with the same triple.
func (e *QueryEngine) ScheduleView(date time.Time, meal entities.Meal, target string, now time.Time) entities.RenderPayload {
	snap := e.Snapshot()
	local := now.In(snap.Location)
	date = civilDay(date.In(snap.Location))
	isToday := date.Equal(civilDay(local))

	var facilities []*entities.Facility
	if target == FilterAll || target == FilterNone {
		facilities = snap.Facilities.All()
	} else if f, ok := snap.Facilities.Get(target); ok {
		facilities = []*entities.Facility{f}
	}

	back := entities.Action{
		Label: "◀ MENU",
		Token: navigation.MustEncode(navigation.ActionNav, date.Format(entities.DateLayout), string(meal), target),
	}
	if len(facilities) == 0 {
		return entities.RenderPayload{Body: msgFacilityNotFound, Actions: [][]entities.Action{{back}}}
	}

	var b strings.Builder
	b.WriteString("*ORARI " + shortDate(date) + "*\n")
	for _, f := range facilities {
		b.WriteString("\n*" + f.Name + "*\n")
		if len(f.OpeningHours) == 0 {
			b.WriteString("Orari non disponibili\n")
			continue
		}
		for _, h := range f.OpeningHours {
			if isToday {
				b.WriteString(schedule.StatusAt(h.Timetable, h.Label, local).Text + "\n")
			} else {
				b.WriteString(schedule.DaySummary(h.Timetable, h.Label, date) + "\n")
			}
		}
		if len(facilities) == 1 {
			writeWeekTables(&b, f)
		}
	}

	return entities.RenderPayload{
		Body:    strings.TrimRight(b.String(), "\n"),
		Actions: [][]entities.Action{{back}},
	}
}

func writeWeekTables(b *strings.Builder, f *entities.Facility) {
	for _, h := range f.OpeningHours {
		b.WriteString("\n" + h.Label + "\n```\n" + schedule.WeekTable(h.Timetable) + "\n```\n")
	}
}

// ResolveFacility finds a facility by id, full name or short name
func (e *QueryEngine) ResolveFacility(ref string) (*entities.Facility, bool) {
	snap := e.Snapshot()
	id, ok := snap.Facilities.Resolve(ref)
	if !ok {
		return nil, false
	}
	return snap.Facilities.Get(id)
}

// FacilityFilter maps a user supplied facility reference to a menu filter:
// FilterNone, FilterAll, or the id of a facility named by id, full name or
// short name. Unresolved references pass through and match no dish.
func (e *QueryEngine) FacilityFilter(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == FilterNone || strings.EqualFold(ref, FilterAll) {
		return strings.ToLower(ref)
	}
	if f, ok := e.ResolveFacility(ref); ok {
		return f.ID
	}
	return ref
}
